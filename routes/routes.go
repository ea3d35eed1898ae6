package routes

import (
	"time"

	"safehorizon/config"
	"safehorizon/controllers"
	"safehorizon/middleware"
	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/services"
	"safehorizon/utils"
	"safehorizon/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// App bundles everything main needs a handle on after wiring.
type App struct {
	Router    *gin.Engine
	Hub       *websocket.Hub
	Gateway   *websocket.Gateway
	ZoneIndex *services.ZoneIndex

	LocationRepo   *repositories.LocationRepository
	ScoringService *services.ScoringService
}

// Setup wires repositories, services, controllers and routes.
func Setup(cfg *config.Config, db *mongo.Database, broker *redis.Client, notifier utils.Notifier) *App {
	router := gin.New()

	// Repositories
	touristRepo := repositories.NewTouristRepository(db)
	authorityRepo := repositories.NewAuthorityRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	alertRepo := repositories.NewAlertRepository(db)
	zoneRepo := repositories.NewZoneRepository(db)
	tripRepo := repositories.NewTripRepository(db)
	efirRepo := repositories.NewEFIRRepository(db)
	broadcastRepo := repositories.NewBroadcastRepository(db)
	deviceRepo := repositories.NewDeviceRepository(db)
	incidentRepo := repositories.NewIncidentRepository(db)

	// Core components
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry())
	hub := websocket.NewHub(broker)
	zoneIndex := services.NewZoneIndex(zoneRepo)
	gateway := websocket.NewGateway(hub, jwtService, alertRepo, cfg.SessionIdleTimeout())

	// Services
	authService := services.NewAuthService(touristRepo, authorityRepo, jwtService)
	zoneService := services.NewZoneService(zoneRepo, zoneIndex)
	scoringService := services.NewScoringService(alertRepo, touristRepo, locationRepo, zoneIndex)
	alertService := services.NewAlertService(alertRepo, touristRepo, locationRepo, hub)
	ingestService := services.NewIngestService(touristRepo, locationRepo, tripRepo, scoringService, alertService)
	broadcastService := services.NewBroadcastService(broadcastRepo, touristRepo, deviceRepo, zoneRepo, zoneIndex, hub, notifier)
	efirService := services.NewEFIRService(efirRepo, touristRepo, authorityRepo, alertRepo)
	tripService := services.NewTripService(tripRepo)
	incidentService := services.NewIncidentService(incidentRepo, alertRepo)
	deviceService := services.NewDeviceService(deviceRepo)

	// Controllers
	authController := controllers.NewAuthController(authService)
	locationController := controllers.NewLocationController(ingestService, scoringService, alertService, touristRepo)
	alertController := controllers.NewAlertController(alertService)
	broadcastController := controllers.NewBroadcastController(broadcastService)
	efirController := controllers.NewEFIRController(efirService)
	zoneController := controllers.NewZoneController(zoneService)
	tripController := controllers.NewTripController(tripService)
	deviceController := controllers.NewDeviceController(deviceService)
	incidentController := controllers.NewIncidentController(incidentService)
	healthController := controllers.NewHealthController(broker)
	wsController := controllers.NewWebSocketController(gateway)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.GlobalRateLimit(broker, cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindowMin)*time.Minute))

	// Public
	router.GET("/health", healthController.HealthCheck)

	api := router.Group("/api")
	{
		// Authentication
		api.POST("/auth/register", authController.RegisterTourist)
		api.POST("/auth/login", authController.LoginTourist)
		api.POST("/auth/authority/register", authController.RegisterAuthority)
		api.POST("/auth/authority/login", authController.LoginAuthority)

		// Anonymized public feed
		api.GET("/public/panic-alerts", alertController.ListPublicPanic)

		// Persistent alert stream; token auth on the query string
		api.GET("/alerts/subscribe", wsController.Subscribe)
	}

	// Tourist endpoints
	tourist := api.Group("")
	tourist.Use(authMiddleware.RequireAuth())
	tourist.Use(authMiddleware.RequireRole(models.RoleTourist))
	{
		tourist.POST("/location/update", locationController.UpdateLocation)
		tourist.GET("/location/history", locationController.GetHistory)
		tourist.GET("/location/nearby-risks", locationController.GetNearbyRisks)
		tourist.GET("/safety/score", locationController.GetSafetyScore)
		tourist.POST("/sos/trigger", locationController.TriggerSOS)

		tourist.POST("/trip/start", tripController.Start)
		tourist.POST("/trip/end", tripController.End)
		tourist.POST("/trip/cancel", tripController.Cancel)
		tourist.GET("/trip/history", tripController.History)

		tourist.GET("/alerts/mine", alertController.ListMine)

		tourist.POST("/efir/generate", efirController.Generate)
		tourist.GET("/efir/mine", efirController.ListMine)

		tourist.GET("/broadcasts", broadcastController.ListActive)
		tourist.POST("/broadcasts/:id/acknowledge", broadcastController.Acknowledge)

		tourist.POST("/devices/register", deviceController.Register)
		tourist.GET("/devices", deviceController.List)
	}

	// Shared authenticated endpoints
	authed := api.Group("")
	authed.Use(authMiddleware.RequireAuth())
	{
		authed.GET("/zones/list", zoneController.List)
		authed.GET("/efir/verify/:txId", efirController.Verify)
	}

	// Authority endpoints
	authority := api.Group("/authority")
	authority.Use(authMiddleware.RequireAuth())
	authority.Use(authMiddleware.RequireRole(models.RoleAuthority, models.RoleAdmin))
	{
		authority.GET("/alerts", alertController.ListActive)
		authority.POST("/alerts/:id/acknowledge", alertController.Acknowledge)
		authority.POST("/alerts/:id/resolve", alertController.Resolve)

		authority.POST("/zones", zoneController.Create)
		authority.GET("/zones/:id", zoneController.Get)
		authority.DELETE("/zones/:id", zoneController.Delete)

		authority.POST("/incidents", incidentController.Create)
		authority.PUT("/incidents/:id", incidentController.UpdateStatus)
		authority.GET("/incidents", incidentController.List)

		authority.POST("/efir/generate/:touristId", efirController.GenerateForTourist)
	}

	// Emergency broadcasts live at the spec'd /api/broadcast paths,
	// gated on the authority role.
	broadcast := api.Group("/broadcast")
	broadcast.Use(authMiddleware.RequireAuth())
	broadcast.Use(authMiddleware.RequireRole(models.RoleAuthority, models.RoleAdmin))
	{
		broadcast.POST("/radius", broadcastController.SendRadius)
		broadcast.POST("/zone", broadcastController.SendZone)
		broadcast.POST("/region", broadcastController.SendRegion)
		broadcast.POST("/all", broadcastController.SendAll)
		broadcast.GET("/history", broadcastController.ListHistory)
	}

	return &App{
		Router:         router,
		Hub:            hub,
		Gateway:        gateway,
		ZoneIndex:      zoneIndex,
		LocationRepo:   locationRepo,
		ScoringService: scoringService,
	}
}
