// Package httpapi assembles the HTTP Server (S): authentication, permission
// resolution, and per-route handlers that forward wire-encoded batch_read /
// guarded_write bodies to the Backend Memory, generalized from the
// teacher's internal/http/middleware/authz.go Authorization(auth, kinds...)
// pattern — there, principal kind must be one of an allowed set; here, the
// caller's stored Permission on the path's index_id must be >= a required
// level.
package httpapi

import (
	"github.com/edirooss/findex-server/internal/apierr"
	"github.com/edirooss/findex-server/internal/authn"
	"github.com/edirooss/findex-server/internal/permission"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxIndexID = "findex.index_id"
	ctxUser    = "findex.user"
	ctxPerm    = "findex.permission"
)

// requireAuthenticated ensures authn.Middleware already resolved a caller
// and stores it under ctxUser for handlers that don't also need a
// permission check (e.g. create_index, permission/list).
func requireAuthenticated(c *gin.Context) {
	user, ok := authn.User(c)
	if !ok {
		apierr.Respond(c, apierr.New(apierr.Unauthorized, "authentication required"))
		c.Abort()
		return
	}
	c.Set(ctxUser, user)
	c.Next()
}

// requirePermission resolves the :index path param and aborts with 401
// (Unauthorized) unless the caller's stored permission on it is >= need, per spec.md §4.3's
// authorization rule. Resolved index_id and permission are stashed in the
// context for the handler.
func requirePermission(store permission.Store, need permission.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authn.User(c)
		if !ok {
			apierr.Respond(c, apierr.New(apierr.Unauthorized, "authentication required"))
			c.Abort()
			return
		}

		indexID, err := uuid.Parse(c.Param("index"))
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "invalid index id", err))
			c.Abort()
			return
		}

		got, err := store.Get(c.Request.Context(), user, indexID)
		if err != nil {
			apierr.Respond(c, apierr.New(apierr.Unauthorized, "no permission on this index"))
			c.Abort()
			return
		}
		if got < need {
			apierr.Respond(c, apierr.New(apierr.Unauthorized, "insufficient permission"))
			c.Abort()
			return
		}

		c.Set(ctxUser, user)
		c.Set(ctxIndexID, indexID)
		c.Set(ctxPerm, got)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	v, _ := c.Get(ctxUser)
	s, _ := v.(string)
	return s
}

func currentIndexID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(ctxIndexID)
	id, _ := v.(uuid.UUID)
	return id
}

func currentPermission(c *gin.Context) permission.Permission {
	v, _ := c.Get(ctxPerm)
	p, _ := v.(permission.Permission)
	return p
}

// checkEscalation enforces spec.md §4.3's privilege-escalation rule: a
// caller cannot grant a permission on indexID strictly greater than their
// own, given they already hold (at least) Admin via requirePermission.
func checkEscalation(callerPerm, grant permission.Permission) error {
	if grant > callerPerm {
		return apierr.New(apierr.Unauthorized, "cannot grant a permission greater than your own")
	}
	return nil
}
