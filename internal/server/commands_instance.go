package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/config"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/mcversion"
)

func (s *Server) handleGetVersionManifest(c *gin.Context) {
	manifest, err := s.resolver.GetManifest(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, manifest)
}

func (s *Server) handleListInstances(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.List())
}

type createInstanceRequest struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	MCVersion string `json:"mc_version"`
}

func (s *Server) handleCreateInstance(c *gin.Context) {
	var req createInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	mcVersion := req.MCVersion
	if mcVersion == "" {
		mcVersion = req.Version
	}

	inst, err := s.store.Create(req.Name, req.Version, mcVersion, mcversion.LoaderNone)
	if err != nil {
		writeError(c, err)
		return
	}
	s.bus.Emit(events.InstanceStateChanged, inst)
	c.JSON(http.StatusOK, gin.H{"instance_id": inst.ID})
}

type saveInstanceRequest struct {
	Instance *instanceOverrides `json:"instance"`
}

// instanceOverrides mirrors the subset of instance.Instance a frontend is
// allowed to persist directly; state and schema fields are never taken
// from the wire.
type instanceOverrides struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Icon               string `json:"icon"`
	MinMemory          int    `json:"min_memory"`
	MaxMemory          int    `json:"max_memory"`
	JavaPathOverride   string `json:"java_path_override"`
	JavaArgs           string `json:"java_args"`
	JavaWarningIgnored bool   `json:"java_warning_ignored"`
}

func (s *Server) handleSaveInstance(c *gin.Context) {
	var req saveInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Instance == nil {
		badRequest(c, errMissingField("instance"))
		return
	}

	inst, err := s.store.Get(req.Instance.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	inst.Name = req.Instance.Name
	inst.Icon = req.Instance.Icon
	inst.MinMemory = req.Instance.MinMemory
	inst.MaxMemory = req.Instance.MaxMemory
	inst.JavaPathOverride = req.Instance.JavaPathOverride
	inst.JavaArgs = req.Instance.JavaArgs
	inst.JavaWarningIgnored = req.Instance.JavaWarningIgnored

	if err := s.store.Save(inst); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type deleteInstanceRequest struct {
	InstanceID    string `json:"instance_id"`
	DeleteVersion bool   `json:"delete_version"`
}

func (s *Server) handleDeleteInstance(c *gin.Context) {
	var req deleteInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.Delete(req.InstanceID, req.DeleteVersion); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type checkVersionUsageRequest struct {
	InstanceID string `json:"instance_id"`
	VersionID  string `json:"version_id"`
}

func (s *Server) handleCheckVersionUsage(c *gin.Context) {
	var req checkVersionUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"only_user": s.store.IsOnlyUserOf(req.VersionID, req.InstanceID)})
}

type downloadVersionRequest struct {
	InstanceID string `json:"instance_id"`
	VersionID  string `json:"version_id"`
}

func (s *Server) handleDownloadVersion(c *gin.Context) {
	var req downloadVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := s.store.BeginInstall(req.InstanceID); err != nil {
		writeError(c, err)
		return
	}
	defer s.store.EndInstall(req.InstanceID)

	ctx := c.Request.Context()
	eff, err := s.resolver.Resolve(ctx, req.VersionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := mcversion.EnsureClientJar(ctx, s.root, s.fetcher, req.VersionID, eff); err != nil {
		writeError(c, err)
		return
	}
	if _, err := s.materializeLibraries(ctx, req.InstanceID, eff); err != nil {
		writeError(c, err)
		return
	}

	rootID, err := s.resolver.RootID(ctx, req.VersionID)
	if err != nil {
		writeError(c, err)
		return
	}

	inst.Version = req.VersionID
	inst.MCVersion = rootID
	if err := s.store.Save(inst); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := config.Load(s.root)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleSaveSettings(c *gin.Context) {
	var settings config.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return
	}
	if err := settings.Save(s.root); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
