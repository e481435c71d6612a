package apierr

import (
	"github.com/gin-gonic/gin"
)

// Respond is the single handler-boundary error serializer: every handler
// calls c.Error(err) for the teacher's zap request logger to pick up, then
// Respond(c, err) to write the mapped status and body.
func Respond(c *gin.Context, err error) {
	_ = c.Error(err)
	apiErr := As(err)
	c.JSON(apiErr.Kind.Status(), gin.H{"message": apiErr.Msg})
}
