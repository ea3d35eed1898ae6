package controllers

import (
	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	authService *services.AuthService
}

func NewAuthController(authService *services.AuthService) *AuthController {
	return &AuthController{
		authService: authService,
	}
}

// RegisterTourist creates a tourist account.
func (ac *AuthController) RegisterTourist(c *gin.Context) {
	var req models.RegisterTouristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid registration data")
		return
	}

	tourist, err := ac.authService.RegisterTourist(c.Request.Context(), req)
	if err != nil {
		logrus.Warnf("tourist registration failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Tourist registered successfully", gin.H{
		"user_id": tourist.ID,
		"email":   tourist.Email,
	})
}

// RegisterAuthority creates an authority account.
func (ac *AuthController) RegisterAuthority(c *gin.Context) {
	var req models.RegisterAuthorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid registration data")
		return
	}

	authority, err := ac.authService.RegisterAuthority(c.Request.Context(), req)
	if err != nil {
		logrus.Warnf("authority registration failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Authority registered successfully", gin.H{
		"user_id":      authority.ID,
		"email":        authority.Email,
		"badge_number": authority.BadgeNumber,
	})
}

func (ac *AuthController) LoginTourist(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid login data")
		return
	}

	response, err := ac.authService.LoginTourist(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Login successful", response)
}

func (ac *AuthController) LoginAuthority(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid login data")
		return
	}

	response, err := ac.authService.LoginAuthority(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Login successful", response)
}
