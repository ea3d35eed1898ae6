package services

import (
	"context"
	"fmt"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"
	"safehorizon/websocket"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dedupWindow     = 30 * time.Minute
	dedupBucketSecs = 1800

	sequenceLength    = 5
	sequenceScoreMax  = 50.0
	sequenceSpan      = 20 * time.Minute
	collapseScoreMax  = 40.0
	collapsePrevFloor = 60.0
)

// AlertService decides when alerts exist and owns their lifecycle.
// Creation publishes on the hub in the same call path, so alerts made
// by one instance reach its local subscribers in creation order.
type AlertService struct {
	alertRepo    *repositories.AlertRepository
	touristRepo  *repositories.TouristRepository
	locationRepo *repositories.LocationRepository
	hub          *websocket.Hub
}

func NewAlertService(
	alertRepo *repositories.AlertRepository,
	touristRepo *repositories.TouristRepository,
	locationRepo *repositories.LocationRepository,
	hub *websocket.Hub,
) *AlertService {
	return &AlertService{
		alertRepo:    alertRepo,
		touristRepo:  touristRepo,
		locationRepo: locationRepo,
		hub:          hub,
	}
}

// DedupBucket returns the 30-minute bucket a timestamp falls in.
func DedupBucket(t time.Time) int64 {
	return t.Unix() / dedupBucketSecs
}

// CreatePanic creates a panic or sos alert from an explicit tourist
// action. Scoring never creates these kinds.
func (as *AlertService) CreatePanic(ctx context.Context, tourist *models.Tourist, kind models.AlertKind) (*models.Alert, error) {
	if kind != models.AlertPanic && kind != models.AlertSOS {
		return nil, utils.NewValidationError("kind must be panic or sos")
	}

	display := tourist.Name
	if display == "" {
		display = tourist.Email
	}

	alert := &models.Alert{
		TouristID:   tourist.ID,
		Kind:        kind,
		Severity:    models.SeverityCritical,
		Title:       "SOS Emergency Alert",
		Description: fmt.Sprintf("Emergency %s triggered by %s", kind, display),
		Metadata:    map[string]interface{}{"source": "tourist_action"},
	}
	if tourist.LastLocation != nil {
		alert.Latitude = &tourist.LastLocation.Lat
		alert.Longitude = &tourist.LastLocation.Lon
	}

	if err := as.alertRepo.Create(ctx, alert); err != nil {
		return nil, utils.NewDatabaseError("create alert", err)
	}

	as.publish(alert)
	return alert, nil
}

// EvaluateScored applies the decision rules to a freshly scored
// sample. Rules run in order; the first match wins. Returns nil when
// nothing fires.
func (as *AlertService) EvaluateScored(
	ctx context.Context,
	tourist *models.Tourist,
	location *models.Location,
	result *ScoreResult,
	previousScores []float64,
) (*models.Alert, error) {
	// Rule 2/3: geofence entry into restricted or risky zones.
	if alert, err := as.evaluateGeofence(ctx, tourist, location, result); err != nil || alert != nil {
		return alert, err
	}

	// Rule 4: score collapse against the previous two samples.
	if result.SafetyScore <= collapseScoreMax {
		for _, prev := range previousScores {
			if prev > collapsePrevFloor {
				return as.createScored(ctx, tourist, location, result, models.AlertAnomaly,
					severityForScore(result.SafetyScore),
					fmt.Sprintf("Safety score collapsed to %.0f", result.SafetyScore), nil)
			}
		}
	}

	// Rule 5: sustained low-score sequence.
	if fires, err := as.evaluateSequence(ctx, tourist.ID, location, result); err != nil {
		return nil, err
	} else if fires {
		return as.createScored(ctx, tourist, location, result, models.AlertSequence,
			models.SeverityHigh,
			fmt.Sprintf("Sustained low safety scores (last %d samples)", sequenceLength), nil)
	}

	return nil, nil
}

func (as *AlertService) evaluateGeofence(ctx context.Context, tourist *models.Tourist, location *models.Location, result *ScoreResult) (*models.Alert, error) {
	var restricted, risky *ZoneMatch
	for i := range result.ZoneMatches {
		match := &result.ZoneMatches[i]
		switch match.Zone.Type {
		case models.ZoneRestricted:
			if restricted == nil {
				restricted = match
			}
		case models.ZoneRisky:
			if risky == nil {
				risky = match
			}
		}
	}

	if restricted != nil {
		return as.createZoneAlert(ctx, tourist, location, result, restricted.Zone, models.SeverityCritical)
	}
	if risky != nil {
		return as.createZoneAlert(ctx, tourist, location, result, risky.Zone, models.SeverityHigh)
	}
	return nil, nil
}

func (as *AlertService) createZoneAlert(ctx context.Context, tourist *models.Tourist, location *models.Location, result *ScoreResult, zone *models.Zone, severity models.AlertSeverity) (*models.Alert, error) {
	open, err := as.alertRepo.HasOpenInBucketWindow(ctx, tourist.ID, models.AlertGeofence, &zone.ID, dedupWindow)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, nil
	}

	title := fmt.Sprintf("Entered %s zone: %s", zone.Type, zone.Name)
	return as.createScored(ctx, tourist, location, result, models.AlertGeofence, severity, title, &zone.ID)
}

func (as *AlertService) evaluateSequence(ctx context.Context, touristID string, location *models.Location, result *ScoreResult) (bool, error) {
	if result.SafetyScore > sequenceScoreMax {
		return false, nil
	}

	open, err := as.alertRepo.HasOpenInBucketWindow(ctx, touristID, models.AlertSequence, nil, dedupWindow)
	if err != nil || open {
		return false, err
	}

	recent, err := as.locationRepo.GetRecent(ctx, touristID, sequenceLength+1)
	if err != nil {
		return false, err
	}

	prior := make([]ScoredSample, 0, sequenceLength-1)
	for i := range recent {
		sample := &recent[i]
		if sample.ID == location.ID || sample.SafetyScore == nil {
			continue
		}
		prior = append(prior, ScoredSample{Score: *sample.SafetyScore, Timestamp: sample.Timestamp})
		if len(prior) == sequenceLength-1 {
			break
		}
	}

	return SequenceFires(prior, result.SafetyScore, location.Timestamp), nil
}

// createScored writes the alert after claiming the cross-instance
// dedup slot, then publishes it.
func (as *AlertService) createScored(
	ctx context.Context,
	tourist *models.Tourist,
	location *models.Location,
	result *ScoreResult,
	kind models.AlertKind,
	severity models.AlertSeverity,
	title string,
	zoneID *int64,
) (*models.Alert, error) {
	reserved, err := as.alertRepo.ReserveDedup(ctx, models.AlertDedupEntry{
		TouristID: tourist.ID,
		Kind:      kind,
		ZoneID:    zoneID,
		Bucket:    DedupBucket(time.Now()),
	})
	if err != nil {
		return nil, utils.NewDatabaseError("reserve alert dedup", err)
	}
	if !reserved {
		// Another writer, possibly on a different instance, already
		// created this alert.
		return nil, nil
	}

	metadata := map[string]interface{}{
		"safety_score": result.SafetyScore,
		"risk_level":   result.RiskLevel,
	}
	if zoneID != nil {
		metadata["zone_id"] = *zoneID
	}

	alert := &models.Alert{
		TouristID:   tourist.ID,
		LocationID:  &location.ID,
		Kind:        kind,
		Severity:    severity,
		Title:       title,
		Description: fmt.Sprintf("Risk level %s at (%.4f, %.4f)", result.RiskLevel, location.Latitude, location.Longitude),
		Metadata:    metadata,
		Latitude:    &location.Latitude,
		Longitude:   &location.Longitude,
	}

	if err := as.alertRepo.Create(ctx, alert); err != nil {
		return nil, utils.NewDatabaseError("create alert", err)
	}

	as.publish(alert)
	return alert, nil
}

func (as *AlertService) publish(alert *models.Alert) {
	payload := models.AlertEvent{Alert: alert}
	as.hub.Publish(models.ChannelAuthority, models.EventAlertCreated, payload)
	as.hub.Publish(models.TouristChannel(alert.TouristID), models.EventAlertCreated, payload)
}

// Acknowledge stamps the alert for an authority; idempotent.
func (as *AlertService) Acknowledge(ctx context.Context, alertID int64, authorityID string) (*models.Alert, error) {
	if err := as.alertRepo.Acknowledge(ctx, alertID, authorityID); err != nil {
		return nil, utils.NewDatabaseError("acknowledge alert", err)
	}
	alert, err := as.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAlertNotFoundError()
		}
		return nil, utils.NewDatabaseError("get alert", err)
	}

	as.hub.Publish(models.ChannelAuthority, models.EventAlertUpdated, models.AlertEvent{Alert: alert})
	return alert, nil
}

// Resolve closes the alert, acknowledging first when needed so the
// acknowledged-before-resolved invariant holds.
func (as *AlertService) Resolve(ctx context.Context, alertID int64, authorityID, notes string) (*models.Alert, error) {
	if err := as.alertRepo.Resolve(ctx, alertID, authorityID, notes); err != nil {
		return nil, utils.NewDatabaseError("resolve alert", err)
	}
	alert, err := as.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewAlertNotFoundError()
		}
		return nil, utils.NewDatabaseError("get alert", err)
	}

	as.hub.Publish(models.ChannelAuthority, models.EventAlertUpdated, models.AlertEvent{Alert: alert})
	return alert, nil
}

func (as *AlertService) ListActive(ctx context.Context, limit int64) ([]models.Alert, error) {
	alerts, err := as.alertRepo.ListActive(ctx, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list alerts", err)
	}
	return alerts, nil
}

func (as *AlertService) ListByTourist(ctx context.Context, touristID string, limit int64) ([]models.Alert, error) {
	alerts, err := as.alertRepo.ListByTourist(ctx, touristID, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list alerts", err)
	}
	return alerts, nil
}

// ListPublicPanic returns anonymized panic/sos alerts: identities are
// stripped and coordinates snapped to a 100 m grid.
func (as *AlertService) ListPublicPanic(ctx context.Context, hoursBack int, showResolved bool, limit int64) ([]models.PublicAlert, error) {
	if hoursBack <= 0 || hoursBack > 24*7 {
		hoursBack = 24
	}

	alerts, err := as.alertRepo.ListPanic(ctx, time.Now().Add(-time.Duration(hoursBack)*time.Hour), showResolved, limit)
	if err != nil {
		return nil, utils.NewDatabaseError("list panic alerts", err)
	}

	public := make([]models.PublicAlert, 0, len(alerts))
	for i := range alerts {
		alert := &alerts[i]
		entry := models.PublicAlert{
			ID:        alert.ID,
			Kind:      alert.Kind,
			Severity:  alert.Severity,
			Resolved:  alert.ResolvedAt != nil,
			CreatedAt: alert.CreatedAt,
		}
		if alert.Latitude != nil && alert.Longitude != nil {
			lat, lon := utils.CoarsenCoordinate(*alert.Latitude, *alert.Longitude, 100)
			entry.Lat = &lat
			entry.Lon = &lon
		}
		public = append(public, entry)
	}
	return public, nil
}

// SequenceFires is the pure sequence rule: the window is full, every
// score at or below the threshold, and the whole span inside the
// limit. currentScore covers the sample being evaluated; prior holds
// the stored scores of earlier samples, newest first, paired with
// their timestamps.
func SequenceFires(prior []ScoredSample, currentScore float64, currentTS time.Time) bool {
	if currentScore > sequenceScoreMax {
		return false
	}
	if len(prior) < sequenceLength-1 {
		return false
	}

	oldest := currentTS
	for i := 0; i < sequenceLength-1; i++ {
		sample := prior[i]
		if sample.Score > sequenceScoreMax {
			return false
		}
		if sample.Timestamp.Before(oldest) {
			oldest = sample.Timestamp
		}
	}

	return currentTS.Sub(oldest) <= sequenceSpan
}

func severityForScore(score float64) models.AlertSeverity {
	switch RiskLevel(score) {
	case "critical":
		return models.SeverityCritical
	case "high":
		return models.SeverityHigh
	case "medium":
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ScoredSample pairs a stored sample's score with its timestamp.
type ScoredSample struct {
	Score     float64
	Timestamp time.Time
}
