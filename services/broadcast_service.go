package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"
	"safehorizon/websocket"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// Radius/zone/region targeting only considers tourists seen within
	// the last day; "all" goes back a week.
	targetRecency    = 24 * time.Hour
	targetRecencyAll = 7 * 24 * time.Hour

	// Per-leg delivery deadline.
	legDeadline = 10 * time.Second
)

// BroadcastService resolves target sets and fans emergency broadcasts
// out across the hub, device push, and SMS legs. Legs are independent:
// one failing never aborts its siblings.
type BroadcastService struct {
	broadcastRepo *repositories.BroadcastRepository
	touristRepo   *repositories.TouristRepository
	deviceRepo    *repositories.DeviceRepository
	zoneRepo      *repositories.ZoneRepository
	zoneIndex     *ZoneIndex
	hub           *websocket.Hub
	notifier      utils.Notifier
	validator     *utils.ValidationService
}

func NewBroadcastService(
	broadcastRepo *repositories.BroadcastRepository,
	touristRepo *repositories.TouristRepository,
	deviceRepo *repositories.DeviceRepository,
	zoneRepo *repositories.ZoneRepository,
	zoneIndex *ZoneIndex,
	hub *websocket.Hub,
	notifier utils.Notifier,
) *BroadcastService {
	return &BroadcastService{
		broadcastRepo: broadcastRepo,
		touristRepo:   touristRepo,
		deviceRepo:    deviceRepo,
		zoneRepo:      zoneRepo,
		zoneIndex:     zoneIndex,
		hub:           hub,
		notifier:      notifier,
		validator:     utils.NewValidationService(),
	}
}

// Dispatch validates the request, materializes the target set, records
// the broadcast, and runs the delivery pipeline.
func (bs *BroadcastService) Dispatch(ctx context.Context, senderID string, broadcastType models.BroadcastType, req models.BroadcastRequest) (*models.Broadcast, error) {
	if errs := bs.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	targets, broadcast, err := bs.resolveTargets(ctx, broadcastType, req)
	if err != nil {
		return nil, err
	}

	broadcastID, err := bs.broadcastRepo.NextBroadcastID(ctx, time.Now())
	if err != nil {
		return nil, utils.NewDatabaseError("allocate broadcast id", err)
	}

	broadcast.BroadcastID = broadcastID
	broadcast.Type = broadcastType
	broadcast.Title = req.Title
	broadcast.Message = req.Message
	broadcast.Severity = models.BroadcastSeverity(req.Severity)
	broadcast.ActionRequired = req.ActionRequired
	broadcast.SentBy = senderID
	broadcast.ExpiresAt = req.ExpiresAt

	if err := bs.broadcastRepo.Insert(ctx, broadcast); err != nil {
		return nil, utils.NewDatabaseError("insert broadcast", err)
	}

	tourists, devices := bs.deliver(ctx, broadcast, targets)
	broadcast.TouristsNotified = tourists
	broadcast.DevicesNotified = devices

	if err := bs.broadcastRepo.SetDeliveryCounts(ctx, broadcast.ID, tourists, devices); err != nil {
		logrus.Errorf("broadcast %s: failed to record delivery counts: %v", broadcast.BroadcastID, err)
	}

	logrus.Infof("broadcast %s: notified %d tourists on %d devices", broadcast.BroadcastID, tourists, devices)
	return broadcast, nil
}

// resolveTargets materializes the recipient set in one read-consistent
// query pass. Tourists moving into range later are not notified.
func (bs *BroadcastService) resolveTargets(ctx context.Context, broadcastType models.BroadcastType, req models.BroadcastRequest) ([]models.Tourist, *models.Broadcast, error) {
	broadcast := &models.Broadcast{}

	switch broadcastType {
	case models.BroadcastRadius:
		if req.CenterLat == nil || req.CenterLon == nil || req.RadiusKm == nil {
			return nil, nil, utils.NewValidationError("radius broadcast requires centerLat, centerLon and radiusKm")
		}
		broadcast.Center = &models.GeoPoint{Lat: *req.CenterLat, Lon: *req.CenterLon}
		broadcast.RadiusKm = req.RadiusKm

		targets, err := bs.targetsInRadius(ctx, *req.CenterLat, *req.CenterLon, *req.RadiusKm)
		return targets, broadcast, err

	case models.BroadcastZone:
		if req.ZoneID == nil {
			return nil, nil, utils.NewValidationError("zone broadcast requires zoneId")
		}
		zone, err := bs.zoneRepo.GetByID(ctx, *req.ZoneID)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, nil, utils.NewZoneNotFoundError()
			}
			return nil, nil, utils.NewDatabaseError("get zone", err)
		}
		broadcast.ZoneID = req.ZoneID

		targets, err := bs.targetsInZone(ctx, zone)
		return targets, broadcast, err

	case models.BroadcastRegion:
		if req.Region == nil {
			return nil, nil, utils.NewValidationError("region broadcast requires bounds")
		}
		broadcast.Region = req.Region

		targets, err := bs.touristRepo.FindActiveInBox(ctx,
			req.Region.MinLat, req.Region.MaxLat,
			req.Region.MinLon, req.Region.MaxLon,
			time.Now().Add(-targetRecency))
		if err != nil {
			return nil, nil, utils.NewDatabaseError("resolve region targets", err)
		}
		return targets, broadcast, nil

	case models.BroadcastAll:
		targets, err := bs.touristRepo.FindActiveSeenSince(ctx, time.Now().Add(-targetRecencyAll))
		if err != nil {
			return nil, nil, utils.NewDatabaseError("resolve targets", err)
		}
		return targets, broadcast, nil

	default:
		return nil, nil, utils.NewValidationError("unknown broadcast type")
	}
}

func (bs *BroadcastService) targetsInRadius(ctx context.Context, lat, lon, radiusKm float64) ([]models.Tourist, error) {
	box := utils.CalculateBoundingBox(lat, lon, radiusKm*1000)
	candidates, err := bs.touristRepo.FindActiveInBox(ctx,
		box.SouthWest.Latitude, box.NorthEast.Latitude,
		box.SouthWest.Longitude, box.NorthEast.Longitude,
		time.Now().Add(-targetRecency))
	if err != nil {
		return nil, utils.NewDatabaseError("resolve radius targets", err)
	}

	return FilterByRadius(candidates, lat, lon, radiusKm), nil
}

func (bs *BroadcastService) targetsInZone(ctx context.Context, zone *models.Zone) ([]models.Tourist, error) {
	// Candidate pull by bounding box around the zone, exact membership
	// via the geofence geometry.
	searchRadius := zone.RadiusM
	if zone.IsPolygon() || searchRadius <= 0 {
		searchRadius = 10000
	}

	box := utils.CalculateBoundingBox(zone.Center.Lat, zone.Center.Lon, searchRadius+1000)
	candidates, err := bs.touristRepo.FindActiveInBox(ctx,
		box.SouthWest.Latitude, box.NorthEast.Latitude,
		box.SouthWest.Longitude, box.NorthEast.Longitude,
		time.Now().Add(-targetRecency))
	if err != nil {
		return nil, utils.NewDatabaseError("resolve zone targets", err)
	}

	var targets []models.Tourist
	for _, tourist := range candidates {
		if tourist.LastLocation == nil {
			continue
		}
		for _, match := range bs.zoneIndex.Locate(tourist.LastLocation.Lat, tourist.LastLocation.Lon) {
			if match.Zone.ID == zone.ID {
				targets = append(targets, tourist)
				break
			}
		}
	}
	return targets, nil
}

// FilterByRadius keeps tourists whose last location is within radiusKm
// of the center. Pure; also used by tests.
func FilterByRadius(candidates []models.Tourist, lat, lon, radiusKm float64) []models.Tourist {
	var targets []models.Tourist
	for _, tourist := range candidates {
		if tourist.LastLocation == nil {
			continue
		}
		if utils.CalculateDistanceKm(lat, lon, tourist.LastLocation.Lat, tourist.LastLocation.Lon) <= radiusKm {
			targets = append(targets, tourist)
		}
	}
	return targets
}

// deliver runs the three legs for each resolved tourist. Counters
// reflect legs submitted to their transports.
func (bs *BroadcastService) deliver(ctx context.Context, broadcast *models.Broadcast, targets []models.Tourist) (int, int) {
	if len(targets) == 0 {
		return 0, 0
	}

	event := models.BroadcastEvent{
		BroadcastID:    broadcast.BroadcastID,
		Type:           broadcast.Type,
		Title:          broadcast.Title,
		Message:        broadcast.Message,
		Severity:       broadcast.Severity,
		ActionRequired: broadcast.ActionRequired,
		ExpiresAt:      broadcast.ExpiresAt,
	}

	touristIDs := make([]string, 0, len(targets))
	for i := range targets {
		touristIDs = append(touristIDs, targets[i].ID)
	}

	devicesByTourist := make(map[string][]models.Device)
	devices, err := bs.deviceRepo.ListActiveForTourists(ctx, touristIDs)
	if err != nil {
		logrus.Errorf("broadcast %s: device lookup failed, push leg skipped: %v", broadcast.BroadcastID, err)
	} else {
		for _, device := range devices {
			devicesByTourist[device.TouristID] = append(devicesByTourist[device.TouristID], device)
		}
	}

	smsEligible := broadcast.Severity == models.BroadcastHigh || broadcast.Severity == models.BroadcastCritical

	pushData := map[string]string{
		"broadcast_id": broadcast.BroadcastID,
		"severity":     string(broadcast.Severity),
		"type":         string(broadcast.Type),
	}

	devicesNotified := 0
	for i := range targets {
		tourist := &targets[i]

		// Leg A: hub publish reaches connected sessions everywhere.
		bs.hub.Publish(models.TouristChannel(tourist.ID), models.EventBroadcast, event)

		// Leg B: platform push per active device.
		for _, device := range devicesByTourist[tourist.ID] {
			legCtx, cancel := context.WithTimeout(ctx, legDeadline)
			if err := bs.notifier.Push(legCtx, device.DeviceToken, broadcast.Title, broadcast.Message, pushData); err != nil {
				logrus.Warnf("broadcast %s: push to device %d failed: %v", broadcast.BroadcastID, device.ID, err)
			}
			cancel()
			devicesNotified++
		}

		// Leg C: SMS for severe broadcasts when a phone is on file.
		if smsEligible && tourist.Phone != "" {
			legCtx, cancel := context.WithTimeout(ctx, legDeadline)
			body := fmt.Sprintf("[%s] %s: %s", broadcast.Severity, broadcast.Title, broadcast.Message)
			if err := bs.notifier.SMS(legCtx, tourist.Phone, body); err != nil {
				logrus.Warnf("broadcast %s: sms to tourist %s failed: %v", broadcast.BroadcastID, tourist.ID, err)
			}
			cancel()
		}
	}

	return len(targets), devicesNotified
}

// Acknowledge records a tourist's response; repeats are no-ops.
func (bs *BroadcastService) Acknowledge(ctx context.Context, broadcastDBID int64, touristID string, req models.AcknowledgeBroadcastRequest) (*models.BroadcastAck, bool, error) {
	if errs := bs.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, false, utils.NewValidationError(errs[0].Message)
	}

	if _, err := bs.broadcastRepo.GetByID(ctx, broadcastDBID); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, utils.NewBroadcastNotFoundError()
		}
		return nil, false, utils.NewDatabaseError("get broadcast", err)
	}

	ack := &models.BroadcastAck{
		BroadcastID: broadcastDBID,
		TouristID:   touristID,
		Status:      models.BroadcastAckStatus(req.Status),
		Notes:       req.Notes,
	}
	if req.Lat != nil && req.Lon != nil {
		ack.Location = &models.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
	}

	created, err := bs.broadcastRepo.Acknowledge(ctx, ack)
	if err != nil {
		return nil, false, utils.NewDatabaseError("acknowledge broadcast", err)
	}
	return ack, created, nil
}

func (bs *BroadcastService) ListRecent(ctx context.Context, limit int64) ([]models.Broadcast, error) {
	broadcasts, err := bs.broadcastRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list broadcasts", err)
	}
	return broadcasts, nil
}

// ListActiveForTourists excludes expired broadcasts from tourist-side
// listings; history keeps them.
func (bs *BroadcastService) ListActiveForTourists(ctx context.Context, limit int64) ([]models.Broadcast, error) {
	broadcasts, err := bs.broadcastRepo.ListUnexpired(ctx, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list broadcasts", err)
	}
	return broadcasts, nil
}

// ParseBroadcastID resolves a path parameter to the numeric id.
func ParseBroadcastID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, utils.NewValidationError("invalid broadcast id")
	}
	return id, nil
}
