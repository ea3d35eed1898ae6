package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type BroadcastController struct {
	broadcastService *services.BroadcastService
}

func NewBroadcastController(broadcastService *services.BroadcastService) *BroadcastController {
	return &BroadcastController{
		broadcastService: broadcastService,
	}
}

func (bc *BroadcastController) SendRadius(c *gin.Context) {
	bc.dispatch(c, models.BroadcastRadius)
}

func (bc *BroadcastController) SendZone(c *gin.Context) {
	bc.dispatch(c, models.BroadcastZone)
}

func (bc *BroadcastController) SendRegion(c *gin.Context) {
	bc.dispatch(c, models.BroadcastRegion)
}

func (bc *BroadcastController) SendAll(c *gin.Context) {
	bc.dispatch(c, models.BroadcastAll)
}

func (bc *BroadcastController) dispatch(c *gin.Context, broadcastType models.BroadcastType) {
	senderID := c.GetString("userID")

	var req models.BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid broadcast request")
		return
	}

	broadcast, err := bc.broadcastService.Dispatch(c.Request.Context(), senderID, broadcastType, req)
	if err != nil {
		logrus.Errorf("broadcast dispatch failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Broadcast sent", broadcast)
}

// Acknowledge records the caller's response to a broadcast.
func (bc *BroadcastController) Acknowledge(c *gin.Context) {
	touristID := c.GetString("userID")

	broadcastID, err := services.ParseBroadcastID(c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	var req models.AcknowledgeBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid acknowledgment")
		return
	}

	ack, created, err := bc.broadcastService.Acknowledge(c.Request.Context(), broadcastID, touristID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	message := "Broadcast acknowledged"
	if !created {
		message = "Broadcast already acknowledged"
	}
	utils.SuccessResponse(c, message, ack)
}

// ListHistory is the authority-side broadcast history.
func (bc *BroadcastController) ListHistory(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	broadcasts, err := bc.broadcastService.ListRecent(c.Request.Context(), limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Broadcast history retrieved", broadcasts)
}

// ListActive is the tourist-side listing: expired broadcasts are
// filtered out.
func (bc *BroadcastController) ListActive(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	broadcasts, err := bc.broadcastService.ListActiveForTourists(c.Request.Context(), limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Active broadcasts retrieved", broadcasts)
}
