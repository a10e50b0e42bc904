package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ris-backend/internal/core/auth"
	"ris-backend/internal/service"
	mdw "ris-backend/internal/transport/http/middleware"
)

// Deps 引擎装配需要的依赖
type Deps struct {
	Log        *zap.Logger
	JWTer      *auth.JWTer
	Users      *service.UserService
	Facilities *service.FacilityService
}

// NewAPIEngine 组好中间件链并挂载全部模块。路由前缀沿用 /ris/api。
func NewAPIEngine(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		cors.Default(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(4<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(d.Log, true),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/ris/api")
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.JWTer, ""))

	Reset()
	Register(&authModule{users: d.Users, jwter: d.JWTer})
	Register(&userModule{users: d.Users})
	Register(&facilityModule{facilities: d.Facilities})

	MountAllPublic(api)
	MountAllProtected(authed)

	return r
}
