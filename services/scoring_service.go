package services

import (
	"context"
	"math"
	"time"

	"safehorizon/models"
	"safehorizon/repositories"
	"safehorizon/utils"
)

// Scoring engine constants.
const (
	alertRadiusKm        = 2.0
	alertWindow          = 6 * time.Hour
	crowdRadiusKm        = 1.0
	crowdWindow          = 15 * time.Minute
	historicalRadiusKm   = 1.0
	speedSampleCount     = 10
	riskSearchRadiusM    = 5000.0
	riskNeutralDistanceM = 500.0
	clockSkewTolerance   = 5 * time.Minute
)

// Factor weights. They sum to 1.
var factorWeights = struct {
	NearbyAlerts, ZoneRisk, TimeOfDay, CrowdDensity, SpeedAnomaly, HistoricalRisk float64
}{
	NearbyAlerts:   0.30,
	ZoneRisk:       0.25,
	TimeOfDay:      0.15,
	CrowdDensity:   0.10,
	SpeedAnomaly:   0.10,
	HistoricalRisk: 0.10,
}

type FactorScore struct {
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

type FactorBreakdown struct {
	NearbyAlerts   FactorScore `json:"nearby_alerts"`
	ZoneRisk       FactorScore `json:"zone_risk"`
	TimeOfDay      FactorScore `json:"time_of_day"`
	CrowdDensity   FactorScore `json:"crowd_density"`
	SpeedAnomaly   FactorScore `json:"speed_anomaly"`
	HistoricalRisk FactorScore `json:"historical_risk"`
}

type ScoreResult struct {
	SafetyScore     float64         `json:"safety_score"`
	RiskLevel       string          `json:"risk_level"`
	Factors         FactorBreakdown `json:"factors"`
	Recommendations []string        `json:"recommendations"`
	CalculatedAt    time.Time       `json:"calculated_at"`

	// ZoneMatches carries the geofence lookup forward so the alert
	// generator does not query the index twice.
	ZoneMatches []ZoneMatch `json:"-"`
}

// ScoringInputs is everything the pure computation needs. Gathering is
// separate so the arithmetic stays deterministic and testable.
type ScoringInputs struct {
	Lat, Lon float64
	Speed    *float64

	// EffectiveTime is the timestamp used for the time-of-day factor,
	// already skew-corrected.
	EffectiveTime time.Time

	// WeightedAlertCount is the severity-weighted count of alerts
	// within alertRadiusKm over alertWindow.
	WeightedAlertCount int

	ZoneMatches      []ZoneMatch
	NearestRiskDistM float64
	CrowdCount       int64
	RecentSpeeds     []float64
	HistoricalAlerts int64
}

type ScoringService struct {
	alertRepo    *repositories.AlertRepository
	touristRepo  *repositories.TouristRepository
	locationRepo *repositories.LocationRepository
	zoneIndex    *ZoneIndex
}

func NewScoringService(
	alertRepo *repositories.AlertRepository,
	touristRepo *repositories.TouristRepository,
	locationRepo *repositories.LocationRepository,
	zoneIndex *ZoneIndex,
) *ScoringService {
	return &ScoringService{
		alertRepo:    alertRepo,
		touristRepo:  touristRepo,
		locationRepo: locationRepo,
		zoneIndex:    zoneIndex,
	}
}

// Score computes the safety score for a location sample. It reads the
// database and the zone index but never mutates persistent state.
func (ss *ScoringService) Score(ctx context.Context, touristID string, lat, lon float64, speed *float64, clientTS time.Time) (*ScoreResult, error) {
	now := time.Now()

	// Clock skew: a client timestamp more than five minutes away from
	// server time is not trusted for the time-of-day factor.
	effective := clientTS
	if clientTS.IsZero() || absDuration(now.Sub(clientTS)) > clockSkewTolerance {
		effective = now
	}

	weighted, err := ss.weightedNearbyAlerts(ctx, lat, lon, now)
	if err != nil {
		return nil, err
	}

	crowdBox := utils.CalculateBoundingBox(lat, lon, crowdRadiusKm*1000)
	crowd, err := ss.touristRepo.CountSeenInBox(ctx,
		crowdBox.SouthWest.Latitude, crowdBox.NorthEast.Latitude,
		crowdBox.SouthWest.Longitude, crowdBox.NorthEast.Longitude,
		now.Add(-crowdWindow), touristID)
	if err != nil {
		return nil, err
	}

	speeds, err := ss.locationRepo.GetRecentSpeeds(ctx, touristID, speedSampleCount)
	if err != nil {
		return nil, err
	}

	histBox := utils.CalculateBoundingBox(lat, lon, historicalRadiusKm*1000)
	historical, err := ss.alertRepo.CountInBox(ctx,
		histBox.SouthWest.Latitude, histBox.NorthEast.Latitude,
		histBox.SouthWest.Longitude, histBox.NorthEast.Longitude)
	if err != nil {
		return nil, err
	}

	inputs := ScoringInputs{
		Lat:                lat,
		Lon:                lon,
		Speed:              speed,
		EffectiveTime:      effective,
		WeightedAlertCount: weighted,
		ZoneMatches:        ss.zoneIndex.Locate(lat, lon),
		NearestRiskDistM:   ss.zoneIndex.NearestRiskDistanceM(lat, lon, riskSearchRadiusM),
		CrowdCount:         crowd,
		RecentSpeeds:       speeds,
		HistoricalAlerts:   historical,
	}

	result := ComputeScore(inputs)
	result.CalculatedAt = now
	return result, nil
}

func (ss *ScoringService) weightedNearbyAlerts(ctx context.Context, lat, lon float64, now time.Time) (int, error) {
	alerts, err := ss.alertRepo.FindSince(ctx, now.Add(-alertWindow))
	if err != nil {
		return 0, err
	}

	weighted := 0
	for i := range alerts {
		alert := &alerts[i]
		if alert.Latitude == nil || alert.Longitude == nil {
			continue
		}
		if utils.CalculateDistanceKm(lat, lon, *alert.Latitude, *alert.Longitude) <= alertRadiusKm {
			weighted += models.SeverityWeight(alert.Severity)
		}
	}
	return weighted, nil
}

// NearbyRisks lists recent alerts and risky/restricted zones around a
// point with their distances, nearest first.
func (ss *ScoringService) NearbyRisks(ctx context.Context, lat, lon, radiusKm float64) ([]models.NearbyRisk, error) {
	if radiusKm <= 0 || radiusKm > 50 {
		radiusKm = 5
	}

	alerts, err := ss.alertRepo.FindSince(ctx, time.Now().Add(-alertWindow))
	if err != nil {
		return nil, err
	}

	var risks []models.NearbyRisk
	for i := range alerts {
		alert := &alerts[i]
		if alert.Latitude == nil || alert.Longitude == nil {
			continue
		}
		dist := utils.CalculateDistanceKm(lat, lon, *alert.Latitude, *alert.Longitude)
		if dist > radiusKm {
			continue
		}
		risks = append(risks, models.NearbyRisk{
			Kind:       "alert",
			Title:      alert.Title,
			Severity:   string(alert.Severity),
			Lat:        *alert.Latitude,
			Lon:        *alert.Longitude,
			DistanceKm: dist,
		})
	}

	for _, match := range ss.zoneIndex.Near(lat, lon, radiusKm*1000) {
		if match.Zone.Type == models.ZoneSafe {
			continue
		}
		risks = append(risks, models.NearbyRisk{
			Kind:       "zone",
			Title:      match.Zone.Name,
			ZoneType:   string(match.Zone.Type),
			Lat:        match.Zone.Center.Lat,
			Lon:        match.Zone.Center.Lon,
			DistanceKm: math.Max(0, match.BoundaryDistanceM) / 1000,
		})
	}

	for i := 1; i < len(risks); i++ {
		for j := i; j > 0 && risks[j].DistanceKm < risks[j-1].DistanceKm; j-- {
			risks[j], risks[j-1] = risks[j-1], risks[j]
		}
	}

	return risks, nil
}

// ComputeScore is the pure composite computation: deterministic given
// the same inputs.
func ComputeScore(inputs ScoringInputs) *ScoreResult {
	breakdown := FactorBreakdown{
		NearbyAlerts:   factor(nearbyAlertsScore(inputs.WeightedAlertCount), factorWeights.NearbyAlerts),
		ZoneRisk:       factor(zoneRiskScore(inputs.ZoneMatches, inputs.NearestRiskDistM), factorWeights.ZoneRisk),
		TimeOfDay:      factor(timeOfDayScore(inputs.EffectiveTime), factorWeights.TimeOfDay),
		CrowdDensity:   factor(crowdDensityScore(inputs.CrowdCount), factorWeights.CrowdDensity),
		SpeedAnomaly:   factor(speedAnomalyScore(inputs.Speed, inputs.RecentSpeeds), factorWeights.SpeedAnomaly),
		HistoricalRisk: factor(historicalRiskScore(inputs.HistoricalAlerts), factorWeights.HistoricalRisk),
	}

	composite := breakdown.NearbyAlerts.Contribution +
		breakdown.ZoneRisk.Contribution +
		breakdown.TimeOfDay.Contribution +
		breakdown.CrowdDensity.Contribution +
		breakdown.SpeedAnomaly.Contribution +
		breakdown.HistoricalRisk.Contribution

	score := utils.Clamp(math.Round(composite), 0, 100)

	return &ScoreResult{
		SafetyScore:     score,
		RiskLevel:       RiskLevel(score),
		Factors:         breakdown,
		Recommendations: recommendations(breakdown),
		ZoneMatches:     inputs.ZoneMatches,
	}
}

func factor(score, weight float64) FactorScore {
	return FactorScore{
		Score:        score,
		Weight:       weight,
		Contribution: score * weight,
	}
}

// RiskLevel maps a score to its band. The critical band is closed at
// 40, so high begins strictly above 40; medium begins at 60 and low at
// 80.
func RiskLevel(score float64) string {
	switch {
	case score <= 40:
		return "critical"
	case score < 60:
		return "high"
	case score < 80:
		return "medium"
	default:
		return "low"
	}
}

func nearbyAlertsScore(weightedCount int) float64 {
	return math.Max(0, 100-15*float64(weightedCount))
}

func zoneRiskScore(matches []ZoneMatch, nearestRiskDistM float64) float64 {
	// Inside a zone, the most dangerous classification wins.
	inRestricted, inRisky, inSafe := false, false, false
	for _, match := range matches {
		switch match.Zone.Type {
		case models.ZoneRestricted:
			inRestricted = true
		case models.ZoneRisky:
			inRisky = true
		case models.ZoneSafe:
			inSafe = true
		}
	}

	switch {
	case inRestricted:
		return 0
	case inRisky:
		return 40
	case inSafe:
		return 100
	}

	// Outside all zones: interpolate toward neutral with distance to
	// the nearest risky/restricted boundary.
	if math.IsInf(nearestRiskDistM, 1) || nearestRiskDistM >= riskNeutralDistanceM {
		return 90
	}
	return 40 + 50*(nearestRiskDistM/riskNeutralDistanceM)
}

func timeOfDayScore(t time.Time) float64 {
	hour := t.Hour()
	switch {
	case hour >= 22 || hour < 6:
		return 50
	case hour < 9:
		return 75
	case hour < 18:
		return 95
	default: // 18:00–22:00
		return 75
	}
}

func crowdDensityScore(count int64) float64 {
	switch {
	case count == 0:
		return 50
	case count <= 3:
		return 70
	case count <= 10:
		return 85
	default:
		return 95
	}
}

func speedAnomalyScore(speed *float64, recentSpeeds []float64) float64 {
	if speed == nil {
		return 90
	}
	if len(recentSpeeds) == 0 {
		return 90
	}

	median := utils.Median(recentSpeeds)
	std := utils.StdDev(recentSpeeds)

	if std < 1e-9 {
		if math.Abs(*speed-median) < 1e-9 {
			return 95
		}
		return 40
	}

	z := math.Abs(*speed-median) / std
	switch {
	case z > 3:
		return 40
	case z > 2:
		return 60
	case z > 1:
		return 80
	default:
		return 95
	}
}

func historicalRiskScore(count int64) float64 {
	capped := math.Min(float64(count), 30)
	return math.Max(40, 100-2*capped)
}

// Canonical recommendation strings, emitted in fixed factor order for
// every factor scoring below 70.
var factorRecommendations = []struct {
	pick func(FactorBreakdown) float64
	text string
}{
	{func(b FactorBreakdown) float64 { return b.NearbyAlerts.Score }, "Recent incidents reported nearby - stay alert"},
	{func(b FactorBreakdown) float64 { return b.ZoneRisk.Score }, "You are in or near a high-risk zone - move to a safer area"},
	{func(b FactorBreakdown) float64 { return b.TimeOfDay.Score }, "Late hours increase risk - avoid isolated areas"},
	{func(b FactorBreakdown) float64 { return b.CrowdDensity.Score }, "Low crowd density - consider moving to a more populated area"},
	{func(b FactorBreakdown) float64 { return b.SpeedAnomaly.Score }, "Unusual movement pattern detected - confirm you are safe"},
	{func(b FactorBreakdown) float64 { return b.HistoricalRisk.Score }, "This area has a history of incidents - stay cautious"},
}

func recommendations(breakdown FactorBreakdown) []string {
	var recs []string
	for _, fr := range factorRecommendations {
		if fr.pick(breakdown) < 70 {
			recs = append(recs, fr.text)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Location appears safe - maintain normal precautions")
	}
	return recs
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
