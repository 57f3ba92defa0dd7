package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stlauncher/stsync/internal/manifest"
	"github.com/stlauncher/stsync/internal/server/accesslog"
	"github.com/stlauncher/stsync/internal/server/handlers/api"
	"github.com/stlauncher/stsync/internal/server/handlers/datasync"
	"github.com/stlauncher/stsync/internal/server/middlewares"
	"github.com/stlauncher/stsync/internal/version"
)

// SetupRoutes builds the sync API. transfers may be nil to disable per-device transfer logs.
func SetupRoutes(cfg *Config, builder *manifest.Builder, transfers *accesslog.Logger) (http.Handler, error) {
	r := gin.New()

	syncH := datasync.New(builder, cfg.Host, cfg.Port)

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.GZIP())
	r.Use(middlewares.CORS())
	r.Use(middlewares.SecureHeaders())

	if cfg.RateLimit != "" {
		limit, err := middlewares.RateLimiter(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		r.Use(limit)
	}

	if transfers != nil {
		r.Use(accesslog.Middleware(transfers, "/manifest", "/zip", "/file"))
	}

	r.GET("/", IndexHandler)
	r.GET("/health", syncH.Health)
	r.GET("/info", syncH.Info)
	r.GET("/manifest", syncH.Manifest)
	r.GET("/zip", syncH.Bundle)
	r.HEAD("/zip", syncH.Bundle)
	r.GET("/file", syncH.File)

	r.NoRoute(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusNotFound, api.CodeNotFound, errors.New("not found"))
	})

	r.NoMethod(func(c *gin.Context) {
		api.AbortWithError(c, http.StatusMethodNotAllowed, api.CodeInvalidRequest, errors.New("method not allowed"))
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
