// Package server exposes the command/event surface described by the
// launcher core's external interface: a small JSON HTTP API for commands
// and a websocket for the event stream, both backed directly by the
// internal packages that own the actual state.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/instance"
	"github.com/quasar/launchercore/internal/java"
	"github.com/quasar/launchercore/internal/launcher"
	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
)

// Server wires every core component behind the command/event surface.
type Server struct {
	log      *zap.Logger
	root     corepath.Root
	store    *instance.Store
	resolver *mcversion.Resolver
	fetcher  *fetch.Fetcher
	bus      *events.Bus
	launch   *launcher.Launcher
	detector *java.Detector
	modrinth *modrinth.Client
}

// Deps collects the components New needs. All fields are required.
type Deps struct {
	Log      *zap.Logger
	Root     corepath.Root
	Store    *instance.Store
	Resolver *mcversion.Resolver
	Fetcher  *fetch.Fetcher
	Bus      *events.Bus
	Launcher *launcher.Launcher
	Detector *java.Detector
	Modrinth *modrinth.Client
}

func New(d Deps) *Server {
	return &Server{
		log:      d.Log,
		root:     d.Root,
		store:    d.Store,
		resolver: d.Resolver,
		fetcher:  d.Fetcher,
		bus:      d.Bus,
		launch:   d.Launcher,
		detector: d.Detector,
		modrinth: d.Modrinth,
	}
}

// Router builds the gin engine with every command route and the event
// websocket registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		writeError(c, corerr.New(corerr.Internal, fmt.Sprint(recovered)))
	}), s.requestLogger())

	r.GET("/events", s.handleEventStream)

	r.GET("/commands/get_version_manifest", s.handleGetVersionManifest)
	r.GET("/commands/list_instances", s.handleListInstances)
	r.POST("/commands/create_instance", s.handleCreateInstance)
	r.POST("/commands/save_instance", s.handleSaveInstance)
	r.POST("/commands/delete_instance", s.handleDeleteInstance)
	r.POST("/commands/check_version_usage", s.handleCheckVersionUsage)
	r.POST("/commands/download_version", s.handleDownloadVersion)

	r.POST("/commands/install_loader", s.handleInstallLoader)
	r.POST("/commands/get_loader_versions", s.handleGetLoaderVersions)
	r.POST("/commands/find_loader_candidates", s.handleFindLoaderCandidates)
	r.POST("/commands/download_loader_version", s.handleDownloadLoaderVersion)

	r.POST("/commands/search_projects", s.handleSearchProjects)
	r.POST("/commands/get_project_versions", s.handleGetProjectVersions)
	r.POST("/commands/get_compatible_mod_versions", s.handleGetCompatibleModVersions)
	r.POST("/commands/get_popular_mods", s.handleGetPopularMods)
	r.POST("/commands/install_modrinth_mod", s.handleInstallModrinthMod)
	r.POST("/commands/install_modpack_version", s.handleInstallModpackVersion)

	r.POST("/commands/list_instance_mods", s.handleListInstanceMods)
	r.POST("/commands/toggle_mod", s.handleToggleMod)
	r.POST("/commands/remove_mod", s.handleRemoveMod)
	r.POST("/commands/check_mod_updates", s.handleCheckModUpdates)

	r.POST("/commands/launch_instance", s.handleLaunchInstance)
	r.POST("/commands/kill_instance", s.handleKillInstance)
	r.POST("/commands/check_java_compatibility", s.handleCheckJavaCompatibility)

	r.GET("/commands/get_settings", s.handleGetSettings)
	r.POST("/commands/save_settings", s.handleSaveSettings)

	r.POST("/commands/list_instance_screenshots", s.handleListScreenshots)
	r.POST("/commands/list_instance_worlds", s.handleListWorlds)
	r.POST("/commands/list_instance_servers", s.handleListServers)
	r.POST("/commands/get_instance_crash_logs", s.handleGetCrashLogs)
	r.POST("/commands/clear_instance_logs", s.handleClearInstanceLogs)

	r.GET("/commands/get_system_info", s.handleGetSystemInfo)
	r.GET("/commands/get_cleanup_info", s.handleGetCleanupInfo)
	r.POST("/commands/cleanup_unused_versions", s.handleCleanupUnusedVersions)
	r.POST("/commands/clear_asset_cache", s.handleClearAssetCache)

	r.POST("/commands/open_path", s.handleOpenPath)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			s.log.Warn("request error", zap.String("path", c.Request.URL.Path), zap.Errors("errors", c.Errors.Errors()))
			return
		}
		s.log.Debug("request", zap.String("path", c.Request.URL.Path), zap.Int("status", c.Writer.Status()))
	}
}

// badRequest replies with a generic 400 for a request that failed to
// decode before it ever reached core logic.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "reason": err.Error()})
}
