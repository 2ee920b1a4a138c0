package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimit limits requests per client IP. rate uses the limiter format,
// e.g. "100-M". With a redis client the counters are shared between
// instances; without one they live in memory.
func RateLimit(rate string, client *redis.Client, prefix string) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)

	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	var store limiter.Store

	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: prefix + "limiter"})
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return ginmiddleware.NewMiddleware(limiter.New(store, parsed), ginmiddleware.WithKeyGetter(func(c *gin.Context) string {
		return c.ClientIP()
	})), nil
}
