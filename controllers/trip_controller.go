package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
)

type TripController struct {
	tripService *services.TripService
}

func NewTripController(tripService *services.TripService) *TripController {
	return &TripController{
		tripService: tripService,
	}
}

func (tc *TripController) Start(c *gin.Context) {
	touristID := c.GetString("userID")

	var req models.StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid trip data")
		return
	}

	trip, err := tc.tripService.Start(c.Request.Context(), touristID, req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Trip started", trip)
}

func (tc *TripController) End(c *gin.Context) {
	touristID := c.GetString("userID")

	trip, err := tc.tripService.End(c.Request.Context(), touristID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip completed", trip)
}

func (tc *TripController) Cancel(c *gin.Context) {
	touristID := c.GetString("userID")

	trip, err := tc.tripService.Cancel(c.Request.Context(), touristID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip cancelled", trip)
}

func (tc *TripController) History(c *gin.Context) {
	touristID := c.GetString("userID")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	trips, err := tc.tripService.History(c.Request.Context(), touristID, limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip history retrieved", trips)
}
