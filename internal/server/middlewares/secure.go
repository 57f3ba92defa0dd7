package middlewares

import (
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
)

// SecureHeaders sets browser hardening headers. The server runs over plain http on a LAN,
// so there is no TLS redirect and no HSTS.
func SecureHeaders() gin.HandlerFunc {
	return secure.New(secure.Config{
		SSLRedirect:        false,
		IsDevelopment:      false,
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		IENoOpen:           true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})
}
