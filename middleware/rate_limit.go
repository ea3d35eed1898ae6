package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"safehorizon/models"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// GlobalRateLimit applies a per-client fixed-window limit backed by
// Redis so the limit holds across instances. A broker outage fails
// open: requests pass with a warning.
func GlobalRateLimit(client *redis.Client, requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), time.Now().Unix()/int64(window.Seconds()))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logrus.Warnf("rate limit check failed, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(ctx, key, window)
		}

		if count > int64(requests) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.APIResponse{
				Success: false,
				Message: "Rate limit exceeded",
				Error:   &models.APIError{Code: models.ErrCodeRateLimit, Message: "Rate limit exceeded"},
			})
			return
		}

		c.Next()
	}
}
