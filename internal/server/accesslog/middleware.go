package accesslog

import (
	"time"

	"github.com/gin-gonic/gin"
)

const deviceHeader = "X-Stsync-Device-Id"

// Middleware logs the requests of the given endpoints after they are served
func Middleware(l *Logger, endpoints ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(endpoints))
	for _, e := range endpoints {
		tracked[e] = true
	}

	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if !tracked[endpoint] {
			return
		}

		l.Log(Entry{
			Timestamp: start,
			Device:    ctx.GetHeader(deviceHeader),
			IP:        ctx.ClientIP(),
			UserAgent: ctx.Request.UserAgent(),
			Method:    ctx.Request.Method,
			Endpoint:  endpoint,
			File:      ctx.Query("path"),
			Status:    ctx.Writer.Status(),
			Bytes:     max(ctx.Writer.Size(), 0),
			Millis:    time.Since(start).Milliseconds(),
		})
	}
}
