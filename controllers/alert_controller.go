package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AlertController struct {
	alertService *services.AlertService
}

func NewAlertController(alertService *services.AlertService) *AlertController {
	return &AlertController{
		alertService: alertService,
	}
}

// ListActive returns unresolved alerts for the dashboard.
func (ac *AlertController) ListActive(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	alerts, err := ac.alertService.ListActive(c.Request.Context(), limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Active alerts retrieved", alerts)
}

// ListMine returns the caller's own alerts.
func (ac *AlertController) ListMine(c *gin.Context) {
	touristID := c.GetString("userID")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	alerts, err := ac.alertService.ListByTourist(c.Request.Context(), touristID, limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alerts retrieved", alerts)
}

// Acknowledge stamps an alert as seen by the calling authority.
func (ac *AlertController) Acknowledge(c *gin.Context) {
	authorityID := c.GetString("userID")

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert id")
		return
	}

	alert, err := ac.alertService.Acknowledge(c.Request.Context(), alertID, authorityID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert acknowledged", alert)
}

// Resolve closes an alert.
func (ac *AlertController) Resolve(c *gin.Context) {
	authorityID := c.GetString("userID")

	alertID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert id")
		return
	}

	var req models.ResolveAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	alert, err := ac.alertService.Resolve(c.Request.Context(), alertID, authorityID, req.Notes)
	if err != nil {
		logrus.Errorf("alert resolve failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Alert resolved", alert)
}

// ListPublicPanic is the unauthenticated anonymized panic feed.
func (ac *AlertController) ListPublicPanic(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	hoursBack, _ := strconv.Atoi(c.DefaultQuery("hours_back", "24"))
	showResolved := c.DefaultQuery("show_resolved", "false") == "true"

	alerts, err := ac.alertService.ListPublicPanic(c.Request.Context(), hoursBack, showResolved, limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Panic alerts retrieved", alerts)
}
