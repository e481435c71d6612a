package httpapi

import (
	"net/http"

	"github.com/edirooss/findex-server/internal/apierr"
	"github.com/edirooss/findex-server/internal/permission"
	"github.com/gin-gonic/gin"
)

// successResponse is SPEC_FULL.md's two-field envelope for create_index,
// permission/set and permission/revoke, kept from
// original_source/crate/server/src/routes/permissions.rs instead of a bare
// 200.
type successResponse struct {
	Success string `json:"success"`
	IndexID string `json:"index_id,omitempty"`
}

// createIndexHandler implements `POST /create/index`: any authenticated
// user may create an index and is granted Admin on it.
func createIndexHandler(store permission.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		indexID, err := store.CreateIndex(c.Request.Context(), user)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "create index failed", err))
			return
		}
		c.JSON(http.StatusOK, successResponse{Success: "index created", IndexID: indexID.String()})
	}
}

// setPermissionHandler implements `POST /permission/set/{user}/{perm}/{index}`.
// requirePermission(Admin) already confirmed the caller holds Admin on
// :index; only the escalation check (grant <= caller's own level) remains.
func setPermissionHandler(store permission.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		indexID := currentIndexID(c)
		grant, err := permission.ParsePermission(c.Param("perm"))
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.BadRequest, "invalid permission", err))
			return
		}
		subject := c.Param("user")

		if err := checkEscalation(currentPermission(c), grant); err != nil {
			apierr.Respond(c, err)
			return
		}

		if err := store.Set(c.Request.Context(), subject, grant, indexID); err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "set permission failed", err))
			return
		}
		c.JSON(http.StatusOK, successResponse{Success: "permission set", IndexID: indexID.String()})
	}
}

// revokePermissionHandler implements `POST /permission/revoke/{user}/{index}`.
func revokePermissionHandler(store permission.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		indexID := currentIndexID(c)
		subject := c.Param("user")

		if err := store.Revoke(c.Request.Context(), subject, indexID); err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "revoke permission failed", err))
			return
		}
		c.JSON(http.StatusOK, successResponse{Success: "permission revoked", IndexID: indexID.String()})
	}
}

// listPermissionHandler implements `POST /permission/list/{user}` with the
// element-wise minimum visibility rule (spec.md §4.2): the caller cannot
// discover an index they hold no permission on, even if the listed subject
// does.
func listPermissionHandler(store permission.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := currentUser(c)
		subject := c.Param("user")

		subjectPerms, err := store.List(c.Request.Context(), subject)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "list permissions failed", err))
			return
		}

		out := make(map[string]string, len(subjectPerms))
		if subject == caller {
			for id, p := range subjectPerms {
				out[id.String()] = p.String()
			}
			c.JSON(http.StatusOK, out)
			return
		}

		callerPerms, err := store.List(c.Request.Context(), caller)
		if err != nil {
			apierr.Respond(c, apierr.Wrap(apierr.Internal, "list permissions failed", err))
			return
		}

		for id, subjectPerm := range subjectPerms {
			callerPerm, ok := callerPerms[id]
			if !ok {
				continue // caller has no visibility into this index at all
			}
			out[id.String()] = permission.Min(subjectPerm, callerPerm).String()
		}
		c.JSON(http.StatusOK, out)
	}
}
