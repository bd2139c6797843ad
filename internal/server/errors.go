package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quasar/launchercore/internal/corerr"
)

// writeError translates a CoreError's Kind into the appropriate HTTP
// status and a structured JSON body; a plain error (one that never
// touched corerr) is reported as Internal.
func writeError(c *gin.Context, err error) {
	ce, ok := corerr.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"kind":    string(corerr.Internal),
			"reason":  err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch ce.Kind {
	case corerr.NotFound:
		status = http.StatusNotFound
	case corerr.Busy:
		status = http.StatusConflict
	case corerr.SchemaTooNew, corerr.SchemaInvalid, corerr.JavaIncompat:
		status = http.StatusUnprocessableEntity
	case corerr.Network, corerr.Checksum, corerr.Filesystem:
		status = http.StatusBadGateway
	case corerr.Cancelled:
		status = 499
	case corerr.Internal:
		status = http.StatusInternalServerError
	}

	body := gin.H{
		"success": false,
		"kind":    string(ce.Kind),
		"reason":  ce.Message,
	}
	if ce.Context != nil {
		body["context"] = ce.Context
	}
	c.JSON(status, body)
}
