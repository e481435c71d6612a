package httpapi

import (
	"time"

	"github.com/edirooss/findex-server/internal/authn"
	"github.com/edirooss/findex-server/internal/dataset"
	"github.com/edirooss/findex-server/internal/memory"
	"github.com/edirooss/findex-server/internal/permission"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are every collaborator the router needs, assembled by main() from
// the selected backend/store implementations.
type Deps struct {
	Log         *zap.Logger
	Version     string
	Memory      memory.IndexedADT
	Permissions permission.Store
	Datasets    dataset.Store
	WordLength  int
	Auth        authn.Config
	DevCORS     bool // enable permissive CORS for local frontend development
}

// NewRouter assembles the gin.Engine: recovery first (outermost), then
// dev-only CORS, structured request logging, request-id correlation and
// security headers, matching the teacher's middleware ordering in
// cmd/zmux-server/main.go, generalized with an authentication layer that
// did not exist there.
func NewRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	_ = r.SetTrustedProxies(nil)

	r.Use(gin.Recovery())

	if deps.DevCORS {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(zapLogger(deps.Log))
	r.Use(requestID())
	r.Use(secure.New(secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	}))

	r.GET("/version", versionHandler(deps.Version))

	authenticated := r.Group("/")
	authenticated.Use(authn.Middleware(deps.Auth))

	authenticated.POST("/create/index", requireAuthenticated, createIndexHandler(deps.Permissions))
	authenticated.POST("/permission/list/:user", requireAuthenticated, listPermissionHandler(deps.Permissions))
	authenticated.POST("/permission/set/:user/:perm/:index",
		requirePermission(deps.Permissions, permission.Admin), setPermissionHandler(deps.Permissions))
	authenticated.POST("/permission/revoke/:user/:index",
		requirePermission(deps.Permissions, permission.Admin), revokePermissionHandler(deps.Permissions))

	authenticated.POST("/indexes/:index/batch_read",
		requirePermission(deps.Permissions, permission.Read), batchReadHandler(deps.Memory))
	authenticated.POST("/indexes/:index/guarded_write",
		requirePermission(deps.Permissions, permission.Write), guardedWriteHandler(deps.Memory, deps.WordLength))

	authenticated.POST("/datasets/:index/add_entries",
		requirePermission(deps.Permissions, permission.Write), addEntriesHandler(deps.Datasets))
	authenticated.POST("/datasets/:index/delete_entries",
		requirePermission(deps.Permissions, permission.Write), deleteEntriesHandler(deps.Datasets))
	authenticated.POST("/datasets/:index/get_entries",
		requirePermission(deps.Permissions, permission.Read), getEntriesHandler(deps.Datasets))

	return r
}
