package services

import (
	"context"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

type IncidentService struct {
	incidentRepo *repositories.IncidentRepository
	alertRepo    *repositories.AlertRepository
	validator    *utils.ValidationService
}

func NewIncidentService(incidentRepo *repositories.IncidentRepository, alertRepo *repositories.AlertRepository) *IncidentService {
	return &IncidentService{
		incidentRepo: incidentRepo,
		alertRepo:    alertRepo,
		validator:    utils.NewValidationService(),
	}
}

// CreateFromAlert opens a case for an alert. One incident per alert;
// a second attempt is a conflict.
func (is *IncidentService) CreateFromAlert(ctx context.Context, authorityID string, req models.CreateIncidentRequest) (*models.Incident, error) {
	if errs := is.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	if _, err := is.alertRepo.GetByID(ctx, req.AlertID); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAlertNotFoundError()
		}
		return nil, utils.NewDatabaseError("get alert", err)
	}

	number, err := is.incidentRepo.NextNumber(ctx, time.Now())
	if err != nil {
		return nil, utils.NewDatabaseError("allocate incident number", err)
	}

	incident := &models.Incident{
		AlertID:        req.AlertID,
		IncidentNumber: number,
		Status:         models.IncidentOpen,
		Priority:       req.Priority,
		AssignedTo:     authorityID,
	}

	created, err := is.incidentRepo.Create(ctx, incident)
	if err != nil {
		return nil, utils.NewDatabaseError("create incident", err)
	}
	if !created {
		return nil, utils.NewConflictError("an incident already exists for this alert")
	}

	return incident, nil
}

func (is *IncidentService) UpdateStatus(ctx context.Context, id int64, status models.IncidentStatus, assignedTo, notes string) (*models.Incident, error) {
	switch status {
	case models.IncidentOpen, models.IncidentInvestigating, models.IncidentResolved:
	default:
		return nil, utils.NewValidationError("invalid incident status")
	}

	if err := is.incidentRepo.UpdateStatus(ctx, id, status, assignedTo, notes); err != nil {
		return nil, utils.NewDatabaseError("update incident", err)
	}

	incident, err := is.incidentRepo.GetByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("Incident")
		}
		return nil, utils.NewDatabaseError("get incident", err)
	}
	return incident, nil
}

// AttachEFIR links an issued E-FIR to the incident record.
func (is *IncidentService) AttachEFIR(ctx context.Context, id int64, txID string) error {
	if err := is.incidentRepo.SetEFIRReference(ctx, id, txID); err != nil {
		return utils.NewDatabaseError("attach E-FIR", err)
	}
	return nil
}

func (is *IncidentService) List(ctx context.Context, limit int64) ([]models.Incident, error) {
	incidents, err := is.incidentRepo.List(ctx, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list incidents", err)
	}
	return incidents, nil
}
