package controllers

import (
	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
)

type DeviceController struct {
	deviceService *services.DeviceService
}

func NewDeviceController(deviceService *services.DeviceService) *DeviceController {
	return &DeviceController{
		deviceService: deviceService,
	}
}

// Register stores a push token for the caller.
func (dc *DeviceController) Register(c *gin.Context) {
	touristID := c.GetString("userID")

	var req models.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid device data")
		return
	}

	device, err := dc.deviceService.Register(c.Request.Context(), touristID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Device registered", device)
}

func (dc *DeviceController) List(c *gin.Context) {
	touristID := c.GetString("userID")

	devices, err := dc.deviceService.ListForTourist(c.Request.Context(), touristID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Devices retrieved", devices)
}
