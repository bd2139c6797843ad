package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/loader"
	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
	"github.com/quasar/launchercore/internal/mods"
)

type searchProjectsRequest struct {
	Query       string `json:"query"`
	ProjectType string `json:"project_type"`
}

func (s *Server) handleSearchProjects(c *gin.Context) {
	var req searchProjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := s.modrinth.Search(c.Request.Context(), modrinth.SearchOptions{
		Query:       req.Query,
		ProjectType: req.ProjectType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type getProjectVersionsRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) handleGetProjectVersions(c *gin.Context) {
	var req getProjectVersionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	versions, err := s.modrinth.GetProjectVersions(c.Request.Context(), req.ProjectID, nil, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

type getCompatibleModVersionsRequest struct {
	InstanceID string `json:"instance_id"`
	ProjectID  string `json:"project_id"`
}

func (s *Server) handleGetCompatibleModVersions(c *gin.Context) {
	var req getCompatibleModVersionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	versions, err := s.modrinth.GetProjectVersions(c.Request.Context(), req.ProjectID, nil, nil)
	if err != nil {
		writeError(c, err)
		return
	}

	compatible := modrinth.CompatibleVersions(versions, inst.Loader, inst.MCVersion)
	c.JSON(http.StatusOK, compatible)
}

type getPopularModsRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleGetPopularMods(c *gin.Context) {
	var req getPopularModsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	result, err := s.modrinth.Search(c.Request.Context(), modrinth.SearchOptions{
		ProjectType: "mod",
		Index:       "downloads",
		Limit:       req.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type installModrinthModRequest struct {
	InstanceID string `json:"instance_id"`
	ProjectID  string `json:"project_id"`
	VersionID  string `json:"version_id"`
}

func (s *Server) handleInstallModrinthMod(c *gin.Context) {
	var req installModrinthModRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()

	var version *modrinth.ProjectVersion
	if req.VersionID != "" {
		version, err = s.modrinth.GetVersion(ctx, req.VersionID)
	} else {
		var versions []modrinth.ProjectVersion
		versions, err = s.modrinth.GetProjectVersions(ctx, req.ProjectID, nil, nil)
		if err == nil {
			compatible := modrinth.CompatibleVersions(versions, inst.Loader, inst.MCVersion)
			if len(compatible) == 0 {
				writeError(c, modrinthNoCompatibleVersion())
				return
			}
			version = &compatible[0]
		}
	}
	if err != nil {
		writeError(c, err)
		return
	}

	modsDir := filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods")
	if err := modrinth.InstallMod(ctx, s.fetcher, *version, modsDir); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type installModpackVersionRequest struct {
	Name      string `json:"name"`
	VersionID string `json:"version_id"`
}

func (s *Server) handleInstallModpackVersion(c *gin.Context) {
	var req installModpackVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	version, err := s.modrinth.GetVersion(ctx, req.VersionID)
	if err != nil {
		writeError(c, err)
		return
	}
	file, ok := version.PrimaryFile()
	if !ok {
		writeError(c, modrinthNoPrimaryFile())
		return
	}

	archivePath := filepath.Join(s.root.CacheDir(), "modpacks", file.Filename)
	result, err := s.fetcher.Download(ctx, []fetch.Item{{
		URL:      file.URL,
		Path:     archivePath,
		Expected: fetch.Expected{SHA1: file.Hashes.SHA1, Size: file.Size},
	}}, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	if result.Failed > 0 {
		writeError(c, result.Errors[0])
		return
	}

	idx, err := modrinth.ParsePackIndex(archivePath)
	if err != nil {
		writeError(c, err)
		return
	}

	loaderType, loaderVersion := idx.Loader()

	// version starts pinned to the vanilla base; it is bumped to the
	// derived loader id below once (and only if) a loader installs.
	inst, err := s.store.Create(req.Name, idx.MCVersion(), idx.MCVersion(), loaderType)
	if err != nil {
		writeError(c, err)
		return
	}
	inst.LoaderVersion = loaderVersion

	if loaderType != mcversion.LoaderNone {
		s.bus.Emit(events.ModpackLoaderDetected, events.ModpackLoaderDetectedPayload{
			InstanceID:    inst.ID,
			Loader:        loaderType,
			LoaderVersion: loaderVersion,
		})

		installer, err := loader.InstallerFor(loader.Type(loaderType))
		if err != nil {
			writeError(c, err)
			return
		}
		derivedID, err := installer.Install(ctx, s.root, s.fetcher, idx.MCVersion(), loaderVersion)
		if err != nil {
			writeError(c, err)
			return
		}
		inst.Version = derivedID

		s.bus.Emit(events.LoaderInstalled, events.LoaderInstalledPayload{
			InstanceID: inst.ID,
			VersionID:  derivedID,
		})
	}

	if err := modrinth.ApplyPack(ctx, s.fetcher, archivePath, idx, s.root.InstanceMinecraftDir(inst.ID)); err != nil {
		writeError(c, err)
		return
	}

	if err := s.store.Save(inst); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"instance_id": inst.ID})
}

type instanceModsRequest struct {
	InstanceID string `json:"instance_id"`
	Filename   string `json:"filename"`
}

func (s *Server) handleListInstanceMods(c *gin.Context) {
	var req instanceModsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	list, err := mods.List(filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleToggleMod(c *gin.Context) {
	var req instanceModsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := mods.Toggle(filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods"), req.Filename); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRemoveMod(c *gin.Context) {
	var req instanceModsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := mods.Remove(filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods"), req.Filename); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCheckModUpdates(c *gin.Context) {
	var req instanceModsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	modsDir := filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "mods")
	list, err := mods.List(modsDir)
	if err != nil {
		writeError(c, err)
		return
	}

	updates, err := mods.CheckUpdates(c.Request.Context(), s.modrinth, list, inst.Loader, inst.MCVersion)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updates)
}

func modrinthNoCompatibleVersion() error {
	return corerr.New(corerr.NotFound, "no compatible mod version found for this instance")
}

func modrinthNoPrimaryFile() error {
	return corerr.New(corerr.NotFound, "modpack version has no primary file")
}
