package middlewares

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// archives and raw files go out as they are stored
var excludedPaths = []string{
	"/zip",
	"/file",
}

func GZIP() gin.HandlerFunc {
	return gzip.Gzip(
		gzip.BestSpeed,
		gzip.WithExcludedPaths(excludedPaths),
	)
}
