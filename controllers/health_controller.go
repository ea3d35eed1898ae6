package controllers

import (
	"context"
	"fmt"
	"time"

	"safehorizon/database"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const version = "1.0.0"

type HealthController struct {
	broker    *redis.Client
	startedAt time.Time
}

func NewHealthController(broker *redis.Client) *HealthController {
	return &HealthController{
		broker:    broker,
		startedAt: time.Now(),
	}
}

func (hc *HealthController) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"database": "healthy",
		"broker":   "healthy",
	}

	if !database.IsConnected() {
		services["database"] = "unhealthy"
	}

	if hc.broker != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := hc.broker.Ping(ctx).Err(); err != nil {
			services["broker"] = "unhealthy"
		}
	}

	uptime := fmt.Sprintf("%.0fs", time.Since(hc.startedAt).Seconds())
	utils.SuccessResponse(c, "Health check", utils.HealthCheckResponse(services, version, uptime))
}
