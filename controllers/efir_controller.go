package controllers

import (
	"strconv"

	"safehorizon/models"
	"safehorizon/services"
	"safehorizon/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type EFIRController struct {
	efirService *services.EFIRService
}

func NewEFIRController(efirService *services.EFIRService) *EFIRController {
	return &EFIRController{
		efirService: efirService,
	}
}

// Generate issues a tourist-filed E-FIR.
func (ec *EFIRController) Generate(c *gin.Context) {
	touristID := c.GetString("userID")

	var req models.GenerateEFIRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid E-FIR request")
		return
	}

	efir, err := ec.efirService.Issue(c.Request.Context(), touristID, "", req)
	if err != nil {
		logrus.Errorf("E-FIR issuance failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "E-FIR generated", efir)
}

// GenerateForTourist issues an authority-filed E-FIR on behalf of a
// tourist; the filing officer is snapshotted into the record.
func (ec *EFIRController) GenerateForTourist(c *gin.Context) {
	authorityID := c.GetString("userID")
	touristID := c.Param("touristId")

	var req models.GenerateEFIRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid E-FIR request")
		return
	}

	efir, err := ec.efirService.Issue(c.Request.Context(), touristID, authorityID, req)
	if err != nil {
		logrus.Errorf("E-FIR issuance failed: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "E-FIR generated", efir)
}

// Verify recomputes a record's hashes against the chain.
func (ec *EFIRController) Verify(c *gin.Context) {
	txID := c.Param("txId")
	if txID == "" {
		utils.BadRequestResponse(c, "Transaction id required")
		return
	}

	verification, err := ec.efirService.Verify(c.Request.Context(), txID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	if !verification.Valid {
		logrus.WithFields(logrus.Fields{
			"txId":   txID,
			"reason": verification.Reason,
		}).Error("E-FIR verification failed: possible tampering")
	}

	utils.SuccessResponse(c, "Verification complete", verification)
}

// ListMine returns the caller's own E-FIRs.
func (ec *EFIRController) ListMine(c *gin.Context) {
	touristID := c.GetString("userID")
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	efirs, err := ec.efirService.ListByTourist(c.Request.Context(), touristID, limit)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "E-FIRs retrieved", efirs)
}
