package server

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/corerr"
	"github.com/quasar/launchercore/internal/nbt"
)

func (s *Server) handleListScreenshots(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, listDirEntries(filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "screenshots")))
}

func (s *Server) handleListWorlds(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, listDirEntries(filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "saves")))
}

func (s *Server) handleListServers(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	path := filepath.Join(s.root.InstanceMinecraftDir(req.InstanceID), "servers.dat")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		c.JSON(http.StatusOK, []nbt.ServerEntry{})
		return
	}

	entries, err := nbt.ReadServersDat(path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func listDirEntries(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (s *Server) handleGetCrashLogs(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, listDirEntries(s.root.InstanceCrashesDir(req.InstanceID)))
}

func (s *Server) handleClearInstanceLogs(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := clearDirContents(s.root.InstanceLogsDir(req.InstanceID)); err != nil {
		writeError(c, corerr.Wrap(corerr.Filesystem, "clearing instance logs", err))
		return
	}
	if err := clearDirContents(s.root.InstanceCrashesDir(req.InstanceID)); err != nil {
		writeError(c, corerr.Wrap(corerr.Filesystem, "clearing instance crash logs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func clearDirContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleGetSystemInfo(c *gin.Context) {
	instances := s.store.List()

	var versionsSize, librariesSize, assetsSize int64
	versionsSize, _ = dirSize(s.root.VersionsDir())
	librariesSize, _ = dirSize(s.root.LibrariesDir())
	assetsSize, _ = dirSize(s.root.AssetsDir())

	c.JSON(http.StatusOK, gin.H{
		"os":                runtime.GOOS,
		"arch":              runtime.GOARCH,
		"instance_count":    len(instances),
		"versions_size":     humanize.Bytes(uint64(versionsSize)),
		"libraries_size":    humanize.Bytes(uint64(librariesSize)),
		"assets_size":       humanize.Bytes(uint64(assetsSize)),
		"data_root":         s.root.String(),
	})
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func (s *Server) handleGetCleanupInfo(c *gin.Context) {
	unused, err := s.unusedVersionIDs()
	if err != nil {
		writeError(c, err)
		return
	}

	var reclaimable int64
	for _, id := range unused {
		size, _ := dirSize(s.root.VersionDir(id))
		reclaimable += size
	}

	c.JSON(http.StatusOK, gin.H{
		"unused_versions":    unused,
		"reclaimable_bytes":  reclaimable,
		"reclaimable_human":  humanize.Bytes(uint64(reclaimable)),
	})
}

func (s *Server) handleCleanupUnusedVersions(c *gin.Context) {
	unused, err := s.unusedVersionIDs()
	if err != nil {
		writeError(c, err)
		return
	}

	removed := make([]string, 0, len(unused))
	for _, id := range unused {
		if err := os.RemoveAll(s.root.VersionDir(id)); err != nil {
			continue
		}
		removed = append(removed, id)
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// unusedVersionIDs lists every id under versions/ that no instance
// currently references.
func (s *Server) unusedVersionIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root.VersionsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, corerr.Wrap(corerr.Filesystem, "listing versions directory", err)
	}

	referenced := make(map[string]bool)
	for _, inst := range s.store.List() {
		referenced[inst.Version] = true
	}

	var unused []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if !referenced[e.Name()] {
			unused = append(unused, e.Name())
		}
	}
	return unused, nil
}

func (s *Server) handleClearAssetCache(c *gin.Context) {
	if err := clearDirContents(s.root.AssetObjectsDir()); err != nil {
		writeError(c, corerr.Wrap(corerr.Filesystem, "clearing asset objects", err))
		return
	}
	if err := clearDirContents(s.root.AssetVirtualDir()); err != nil {
		writeError(c, corerr.Wrap(corerr.Filesystem, "clearing virtual assets", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type openPathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpenPath(c *gin.Context) {
	var req openPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", req.Path)
	case "windows":
		cmd = exec.Command("explorer", req.Path)
	default:
		cmd = exec.Command("xdg-open", req.Path)
	}

	if err := cmd.Start(); err != nil {
		writeError(c, corerr.Wrap(corerr.Internal, "opening path", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
