package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type LocationController struct {
	ingestService  *services.IngestService
	scoringService *services.ScoringService
	alertService   *services.AlertService
	touristRepo    *repositories.TouristRepository
}

func NewLocationController(
	ingestService *services.IngestService,
	scoringService *services.ScoringService,
	alertService *services.AlertService,
	touristRepo *repositories.TouristRepository,
) *LocationController {
	return &LocationController{
		ingestService:  ingestService,
		scoringService: scoringService,
		alertService:   alertService,
		touristRepo:    touristRepo,
	}
}

// UpdateLocation is the telemetry ingest endpoint.
func (lc *LocationController) UpdateLocation(c *gin.Context) {
	touristID := c.GetString("userID")

	var req models.LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid location data")
		return
	}

	result, err := lc.ingestService.Ingest(c.Request.Context(), touristID, req)
	if err != nil {
		logrus.Errorf("location ingest failed for %s: %v", touristID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated", result)
}

// GetHistory returns the caller's own samples.
func (lc *LocationController) GetHistory(c *gin.Context) {
	touristID := c.GetString("userID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "100"))

	locations, total, err := lc.ingestService.History(c.Request.Context(), touristID, page, pageSize)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Location history retrieved", locations,
		utils.CreatePaginationMeta(page, pageSize, total))
}

// GetNearbyRisks lists recent alerts and risk zones around the
// caller's position.
func (lc *LocationController) GetNearbyRisks(c *gin.Context) {
	touristID := c.GetString("userID")

	radiusKm, _ := strconv.ParseFloat(c.DefaultQuery("radius_km", "5"), 64)

	tourist, err := lc.touristRepo.GetByID(c.Request.Context(), touristID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Tourist")
		} else {
			utils.ServiceUnavailableResponse(c, "")
		}
		return
	}
	if tourist.LastLocation == nil {
		utils.BadRequestResponse(c, "No known location; post a location update first")
		return
	}

	risks, err := lc.scoringService.NearbyRisks(c.Request.Context(),
		tourist.LastLocation.Lat, tourist.LastLocation.Lon, radiusKm)
	if err != nil {
		utils.ServiceUnavailableResponse(c, "")
		return
	}

	utils.SuccessResponse(c, "Nearby risks retrieved", risks)
}

// GetSafetyScore returns the caller's rolling score.
func (lc *LocationController) GetSafetyScore(c *gin.Context) {
	touristID := c.GetString("userID")

	tourist, err := lc.touristRepo.GetByID(c.Request.Context(), touristID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Tourist")
		} else {
			utils.ServiceUnavailableResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, "Safety score retrieved", gin.H{
		"safety_score": tourist.SafetyScore,
		"risk_level":   services.RiskLevel(float64(tourist.SafetyScore)),
		"last_seen":    tourist.LastSeen,
	})
}

// TriggerSOS creates a panic alert at the caller's last location.
func (lc *LocationController) TriggerSOS(c *gin.Context) {
	touristID := c.GetString("userID")

	tourist, err := lc.touristRepo.GetByID(c.Request.Context(), touristID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.NotFoundResponse(c, "Tourist")
		} else {
			utils.ServiceUnavailableResponse(c, "")
		}
		return
	}

	alert, err := lc.alertService.CreatePanic(c.Request.Context(), tourist, models.AlertPanic)
	if err != nil {
		logrus.Errorf("sos trigger failed for %s: %v", touristID, err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "SOS alert created", gin.H{
		"alert_id": alert.ID,
	})
}
