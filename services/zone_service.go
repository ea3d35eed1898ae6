package services

import (
	"context"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"

	"go.mongodb.org/mongo-driver/mongo"
)

// ZoneService owns zone CRUD and keeps the index snapshot in step by
// refreshing it after every mutation.
type ZoneService struct {
	zoneRepo  *repositories.ZoneRepository
	zoneIndex *ZoneIndex
	validator *utils.ValidationService
}

func NewZoneService(zoneRepo *repositories.ZoneRepository, zoneIndex *ZoneIndex) *ZoneService {
	return &ZoneService{
		zoneRepo:  zoneRepo,
		zoneIndex: zoneIndex,
		validator: utils.NewValidationService(),
	}
}

func (zs *ZoneService) CreateZone(ctx context.Context, authorityID string, req models.CreateZoneRequest) (*models.Zone, error) {
	if errs := zs.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	if len(req.Bounds) == 0 && req.RadiusM <= 0 {
		return nil, utils.NewValidationError("zone requires either a radius or polygon bounds")
	}

	zone := models.Zone{
		Name:        req.Name,
		Description: req.Description,
		Type:        models.ZoneType(req.Type),
		Center:      models.GeoPoint{Lat: req.CenterLat, Lon: req.CenterLon},
		RadiusM:     req.RadiusM,
		Bounds:      req.Bounds,
		IsActive:    true,
		CreatedBy:   authorityID,
	}

	if err := zs.zoneRepo.Create(ctx, &zone); err != nil {
		return nil, utils.NewDatabaseError("create zone", err)
	}

	// Invalidation signal: rebuild the snapshot now rather than waiting
	// for the next scheduled refresh.
	zs.zoneIndex.Refresh(ctx)

	return &zone, nil
}

func (zs *ZoneService) ListZones(ctx context.Context) ([]models.Zone, error) {
	zones, err := zs.zoneRepo.ListActive(ctx)
	if err != nil {
		return nil, utils.NewDatabaseError("list zones", err)
	}
	return zones, nil
}

func (zs *ZoneService) GetZone(ctx context.Context, id int64) (*models.Zone, error) {
	zone, err := zs.zoneRepo.GetByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewZoneNotFoundError()
		}
		return nil, utils.NewDatabaseError("get zone", err)
	}
	return zone, nil
}

func (zs *ZoneService) DeleteZone(ctx context.Context, id int64) error {
	if err := zs.zoneRepo.SoftDelete(ctx, id); err != nil {
		if err == mongo.ErrNoDocuments {
			return utils.NewZoneNotFoundError()
		}
		return utils.NewDatabaseError("delete zone", err)
	}

	zs.zoneIndex.Refresh(ctx)
	return nil
}
