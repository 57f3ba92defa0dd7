package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stlauncher/stsync/internal/server/handlers/api"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

// RateLimiter limits requests per client IP. formattedRate uses the limiter
// notation, e.g. "1000-M" for a thousand requests per minute.
func RateLimiter(formattedRate string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", formattedRate, err)
	}
	limiter := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(
		limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.PureJSON(http.StatusTooManyRequests, api.NewError(api.CodeRateLimited, "rate limit exceeded"))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.PureJSON(http.StatusInternalServerError, api.NewError(api.CodeInternalError, err.Error()))
		}),
	), nil
}
