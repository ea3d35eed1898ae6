package middleware

import (
	"net/http"
	"time"

	"safehorizon/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery converts panics into a 500 with the correlation id and a
// structured log line. No stack traces in response bodies.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString("requestID")

				logrus.WithFields(logrus.Fields{
					"requestId": requestID,
					"panic":     r,
					"path":      c.Request.URL.Path,
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
					Success: false,
					Message: "Internal server error",
					Error: &models.APIError{
						Code:          models.ErrCodeInternal,
						Message:       "Internal server error",
						CorrelationID: requestID,
					},
					Timestamp: time.Now(),
				})
			}
		}()

		c.Next()
	}
}
