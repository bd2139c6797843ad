package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/java"
	"github.com/quasar/launchercore/internal/launcher"
	"github.com/quasar/launchercore/internal/mcversion"
)

type launchInstanceRequest struct {
	InstanceID    string `json:"instance_id"`
	PlayerName    string `json:"player_name"`
	Offline       bool   `json:"offline"`
	UUID          string `json:"uuid"`
	AccessToken   string `json:"access_token"`
	JavaPath      string `json:"java_path"`
	SkipJavaCheck bool   `json:"skip_java_check"`
	MinMemory     int    `json:"min_memory"`
	MaxMemory     int    `json:"max_memory"`
}

func (s *Server) handleLaunchInstance(c *gin.Context) {
	var req launchInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := s.launch.Launch(c.Request.Context(), req.InstanceID, launcher.Options{
		PlayerName:    req.PlayerName,
		Offline:       req.Offline,
		UUID:          req.UUID,
		AccessToken:   req.AccessToken,
		JavaPath:      req.JavaPath,
		SkipJavaCheck: req.SkipJavaCheck,
		MinMemory:     req.MinMemory,
		MaxMemory:     req.MaxMemory,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type instanceIDRequest struct {
	InstanceID string `json:"instance_id"`
}

func (s *Server) handleKillInstance(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.launch.Kill(req.InstanceID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCheckJavaCompatibility(c *gin.Context) {
	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inst, err := s.store.Get(req.InstanceID)
	if err != nil {
		writeError(c, err)
		return
	}

	required := mcversion.DefaultJavaMajorVersion(inst.MCVersion)

	javaPath := inst.JavaPathOverride
	var found *java.Installation
	if javaPath != "" {
		found = s.detector.Probe(javaPath)
	} else {
		found = s.detector.FindBest(required)
		if found != nil {
			javaPath = found.Path
		}
	}

	if found == nil {
		c.JSON(http.StatusOK, gin.H{
			"compatible":        false,
			"actual_version":    0,
			"required_version":  required,
			"path":              javaPath,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"compatible":       found.MajorVersion == required,
		"actual_version":   found.MajorVersion,
		"required_version": required,
		"path":             found.Path,
	})
}
