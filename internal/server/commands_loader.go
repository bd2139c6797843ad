package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/loader"
	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
)

type installLoaderRequest struct {
	InstanceID    string `json:"instance_id"`
	LoaderType    string `json:"loader_type"`
	MCVersion     string `json:"mc_version"`
	LoaderVersion string `json:"loader_version"`
}

// handleInstallLoader installs a loader version against an instance's
// vanilla base game version and updates the instance's version/loader
// fields to point at the derived id, per §4.6: mc_version stays the pure
// vanilla id, only version becomes the derived loader id.
func (s *Server) handleInstallLoader(c *gin.Context) {
	var req installLoaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	installer, err := loader.InstallerFor(loader.Type(req.LoaderType))
	if err != nil {
		writeError(c, err)
		return
	}

	derivedID, err := installer.Install(c.Request.Context(), s.root, s.fetcher, req.MCVersion, req.LoaderVersion)
	if err != nil {
		writeError(c, err)
		return
	}

	inst.Version = derivedID
	inst.Loader = mcversion.LoaderType(req.LoaderType)
	inst.LoaderVersion = req.LoaderVersion
	if err := s.store.Save(inst); err != nil {
		writeError(c, err)
		return
	}
	s.bus.Emit(events.InstanceStateChanged, inst)

	c.JSON(http.StatusOK, gin.H{"version_id": derivedID})
}

type getLoaderVersionsRequest struct {
	LoaderType   string `json:"loader_type"`
	MCVersion    string `json:"mc_version"`
	IncludeBeta  bool   `json:"include_beta"`
}

func (s *Server) handleGetLoaderVersions(c *gin.Context) {
	var req getLoaderVersionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	installer, err := loader.InstallerFor(loader.Type(req.LoaderType))
	if err != nil {
		writeError(c, err)
		return
	}

	versions, err := installer.ListVersions(c.Request.Context(), s.fetcher, req.MCVersion, req.IncludeBeta)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, versions)
}

// LoaderCandidate is one loader version offered for an instance's detected
// Minecraft version.
type LoaderCandidate struct {
	LoaderType string `json:"loader_type"`
	Version    string `json:"version"`
}

type findLoaderCandidatesRequest struct {
	InstanceID string `json:"instance_id"`
	Loader     string `json:"loader"`
}

func (s *Server) handleFindLoaderCandidates(c *gin.Context) {
	var req findLoaderCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	installer, err := loader.InstallerFor(loader.Type(req.Loader))
	if err != nil {
		writeError(c, err)
		return
	}

	versions, err := installer.ListVersions(c.Request.Context(), s.fetcher, inst.MCVersion, false)
	if err != nil {
		writeError(c, err)
		return
	}

	candidates := make([]LoaderCandidate, 0, len(versions))
	for _, v := range versions {
		candidates = append(candidates, LoaderCandidate{LoaderType: req.Loader, Version: v})
	}

	c.JSON(http.StatusOK, candidates)
}

type downloadLoaderVersionRequest struct {
	InstanceID string `json:"instance_id"`
	ProjectID  string `json:"project_id"`
	VersionID  string `json:"version_id"`
}

// handleDownloadLoaderVersion installs a Modrinth project version that a
// detected loader depends on (e.g. the Fabric API mod a modpack's loader
// bundle requires) into the instance's mods directory.
func (s *Server) handleDownloadLoaderVersion(c *gin.Context) {
	var req downloadLoaderVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	version, err := s.modrinth.GetVersion(c.Request.Context(), req.VersionID)
	if err != nil {
		writeError(c, err)
		return
	}

	modsDir := filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods")
	if err := modrinth.InstallMod(c.Request.Context(), s.fetcher, *version, modsDir); err != nil {
		writeError(c, err)
		return
	}

	s.bus.Emit(events.LoaderInstalled, events.LoaderInstalledPayload{
		InstanceID: req.InstanceID,
		ProjectID:  req.ProjectID,
		VersionID:  req.VersionID,
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}
