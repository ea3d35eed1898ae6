package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
)

type ZoneController struct {
	zoneService *services.ZoneService
}

func NewZoneController(zoneService *services.ZoneService) *ZoneController {
	return &ZoneController{
		zoneService: zoneService,
	}
}

// Create adds a zone and invalidates the index snapshot.
func (zc *ZoneController) Create(c *gin.Context) {
	authorityID := c.GetString("userID")

	var req models.CreateZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid zone data")
		return
	}

	zone, err := zc.zoneService.CreateZone(c.Request.Context(), authorityID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Zone created", zone)
}

// List returns all active zones; available to any authenticated user.
func (zc *ZoneController) List(c *gin.Context) {
	zones, err := zc.zoneService.ListZones(c.Request.Context())
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Zones retrieved", zones)
}

func (zc *ZoneController) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid zone id")
		return
	}

	zone, err := zc.zoneService.GetZone(c.Request.Context(), id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone retrieved", zone)
}

// Delete soft-deletes a zone.
func (zc *ZoneController) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid zone id")
		return
	}

	if err := zc.zoneService.DeleteZone(c.Request.Context(), id); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Zone deleted", nil)
}
