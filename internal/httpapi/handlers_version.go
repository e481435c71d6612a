package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// versionHandler returns a bare JSON string, per SPEC_FULL.md's
// `/version` response-shape supplement (original_source/crate/server/src/
// routes/version.rs returns a bare string, not an object).
func versionHandler(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, version)
	}
}
