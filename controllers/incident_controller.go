package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
)

type IncidentController struct {
	incidentService *services.IncidentService
}

func NewIncidentController(incidentService *services.IncidentService) *IncidentController {
	return &IncidentController{
		incidentService: incidentService,
	}
}

// Create opens a case from an alert.
func (ic *IncidentController) Create(c *gin.Context) {
	authorityID := c.GetString("userID")

	var req models.CreateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid incident data")
		return
	}

	incident, err := ic.incidentService.CreateFromAlert(c.Request.Context(), authorityID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Incident created", incident)
}

type updateIncidentRequest struct {
	Status     string `json:"status" validate:"required,oneof=open investigating resolved"`
	AssignedTo string `json:"assignedTo"`
	Notes      string `json:"notes"`
}

func (ic *IncidentController) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid incident id")
		return
	}

	var req updateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	incident, err := ic.incidentService.UpdateStatus(c.Request.Context(), id,
		models.IncidentStatus(req.Status), req.AssignedTo, req.Notes)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Incident updated", incident)
}

func (ic *IncidentController) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	incidents, err := ic.incidentService.List(c.Request.Context(), limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Incidents retrieved", incidents)
}
