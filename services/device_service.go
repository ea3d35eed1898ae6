package services

import (
	"context"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"
)

type DeviceService struct {
	deviceRepo *repositories.DeviceRepository
	validator  *utils.ValidationService
}

func NewDeviceService(deviceRepo *repositories.DeviceRepository) *DeviceService {
	return &DeviceService{
		deviceRepo: deviceRepo,
		validator:  utils.NewValidationService(),
	}
}

// Register stores or reactivates a push token for the tourist.
func (ds *DeviceService) Register(ctx context.Context, touristID string, req models.RegisterDeviceRequest) (*models.Device, error) {
	if errs := ds.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	device, err := ds.deviceRepo.Register(ctx, touristID, req.DeviceToken, models.DevicePlatform(req.Platform))
	if err != nil {
		return nil, utils.NewDatabaseError("register device", err)
	}
	return device, nil
}

func (ds *DeviceService) ListForTourist(ctx context.Context, touristID string) ([]models.Device, error) {
	devices, err := ds.deviceRepo.ListActiveForTourist(ctx, touristID)
	if err != nil {
		return nil, utils.NewDatabaseError("list devices", err)
	}
	return devices, nil
}

func (ds *DeviceService) Deactivate(ctx context.Context, token string) error {
	if err := ds.deviceRepo.Deactivate(ctx, token); err != nil {
		return utils.NewDatabaseError("deactivate device", err)
	}
	return nil
}
