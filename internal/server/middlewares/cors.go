package middlewares

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets the browser WebUI on another port query the sync endpoints
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Accept", "Content-Type"},
		ExposeHeaders:    []string{"Content-Disposition", "Content-Length", "X-File-Mtime"},
		AllowCredentials: false,
	})
}
