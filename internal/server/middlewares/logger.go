package middlewares

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"
)

// Logger writes one access log line per request under the "http" group.
// Health probes are frequent during network discovery and are not logged.
func Logger() gin.HandlerFunc {
	httpLogger := slog.Default().WithGroup("http")

	return slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
		WithUserAgent:    true,
		Filters: []slogGin.Filter{
			slogGin.IgnorePath("/health"),
		},
	})
}
