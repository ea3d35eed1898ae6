package services

import (
	"testing"
	"time"

	"safehorizon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestRiskLevelBands(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, "critical"},
		{39.9, "critical"},
		{40.0, "critical"}, // boundary stays in the lower band
		{40.1, "high"},
		{59.9, "high"},
		{60, "medium"},
		{79.9, "medium"},
		{80, "low"},
		{100, "low"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.score), "score %v", tt.score)
	}
}

func TestNearbyAlertsScore(t *testing.T) {
	assert.Equal(t, 100.0, nearbyAlertsScore(0))
	assert.Equal(t, 85.0, nearbyAlertsScore(1))
	assert.Equal(t, 40.0, nearbyAlertsScore(4))
	assert.Equal(t, 0.0, nearbyAlertsScore(7))
	assert.Equal(t, 0.0, nearbyAlertsScore(100), "floored at zero")
}

func TestZoneRiskScore(t *testing.T) {
	restricted := models.Zone{ID: 1, Type: models.ZoneRestricted}
	risky := models.Zone{ID: 2, Type: models.ZoneRisky}
	safe := models.Zone{ID: 3, Type: models.ZoneSafe}

	inside := func(z *models.Zone) []ZoneMatch {
		return []ZoneMatch{{Zone: z, Inside: true}}
	}

	assert.Equal(t, 0.0, zoneRiskScore(inside(&restricted), 0))
	assert.Equal(t, 40.0, zoneRiskScore(inside(&risky), 0))
	assert.Equal(t, 100.0, zoneRiskScore(inside(&safe), 0))

	// Restricted dominates when zones overlap.
	overlap := []ZoneMatch{{Zone: &safe, Inside: true}, {Zone: &restricted, Inside: true}}
	assert.Equal(t, 0.0, zoneRiskScore(overlap, 0))

	// Outside: interpolation up to the neutral distance.
	assert.Equal(t, 90.0, zoneRiskScore(nil, 500))
	assert.Equal(t, 90.0, zoneRiskScore(nil, 10000))
	assert.Equal(t, 40.0, zoneRiskScore(nil, 0))
	assert.InDelta(t, 65.0, zoneRiskScore(nil, 250), 0.001)
}

func TestTimeOfDayScore(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
	}

	assert.Equal(t, 50.0, timeOfDayScore(at(23)))
	assert.Equal(t, 50.0, timeOfDayScore(at(3)))
	assert.Equal(t, 75.0, timeOfDayScore(at(7)))
	assert.Equal(t, 95.0, timeOfDayScore(at(12)))
	assert.Equal(t, 75.0, timeOfDayScore(at(19)))
	assert.Equal(t, 50.0, timeOfDayScore(at(22)))
}

func TestCrowdDensityScore(t *testing.T) {
	assert.Equal(t, 50.0, crowdDensityScore(0))
	assert.Equal(t, 70.0, crowdDensityScore(1))
	assert.Equal(t, 70.0, crowdDensityScore(3))
	assert.Equal(t, 85.0, crowdDensityScore(4))
	assert.Equal(t, 85.0, crowdDensityScore(10))
	assert.Equal(t, 95.0, crowdDensityScore(11))
}

func TestSpeedAnomalyScore(t *testing.T) {
	// Missing speed and missing history are both neutral.
	assert.Equal(t, 90.0, speedAnomalyScore(nil, []float64{1, 2, 3}))
	assert.Equal(t, 90.0, speedAnomalyScore(floatPtr(3), nil))

	speeds := []float64{1.0, 1.2, 1.1, 0.9, 1.0, 1.3, 1.1, 1.0, 0.8, 1.2}
	assert.Equal(t, 95.0, speedAnomalyScore(floatPtr(1.05), speeds))
	assert.Equal(t, 40.0, speedAnomalyScore(floatPtr(15.0), speeds))

	// Constant history: any deviation is anomalous.
	constant := []float64{2, 2, 2, 2, 2}
	assert.Equal(t, 95.0, speedAnomalyScore(floatPtr(2), constant))
	assert.Equal(t, 40.0, speedAnomalyScore(floatPtr(9), constant))
}

func TestHistoricalRiskScore(t *testing.T) {
	assert.Equal(t, 100.0, historicalRiskScore(0))
	assert.Equal(t, 90.0, historicalRiskScore(5))
	assert.Equal(t, 40.0, historicalRiskScore(30))
	assert.Equal(t, 40.0, historicalRiskScore(500), "floored at 40")
}

func TestComputeScoreBounds(t *testing.T) {
	// The composite must stay in [0, 100] for extreme inputs.
	worst := ScoringInputs{
		EffectiveTime:      time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
		WeightedAlertCount: 50,
		ZoneMatches:        []ZoneMatch{{Zone: &models.Zone{Type: models.ZoneRestricted}, Inside: true}},
		NearestRiskDistM:   0,
		CrowdCount:         0,
		RecentSpeeds:       []float64{1, 1, 1, 1, 1},
		Speed:              floatPtr(50),
		HistoricalAlerts:   1000,
	}
	result := ComputeScore(worst)
	require.GreaterOrEqual(t, result.SafetyScore, 0.0)
	require.LessOrEqual(t, result.SafetyScore, 100.0)
	assert.Equal(t, "critical", result.RiskLevel)

	best := ScoringInputs{
		EffectiveTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		NearestRiskDistM: 10000,
		CrowdCount:       20,
		HistoricalAlerts: 0,
	}
	result = ComputeScore(best)
	require.LessOrEqual(t, result.SafetyScore, 100.0)
	assert.Equal(t, "low", result.RiskLevel)
}

func TestComputeScoreDeterministic(t *testing.T) {
	inputs := ScoringInputs{
		EffectiveTime:      time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		WeightedAlertCount: 2,
		NearestRiskDistM:   300,
		CrowdCount:         5,
		RecentSpeeds:       []float64{1, 1.1, 0.9, 1.2, 1.0},
		Speed:              floatPtr(1.0),
		HistoricalAlerts:   3,
	}

	first := ComputeScore(inputs)
	second := ComputeScore(inputs)

	assert.Equal(t, first.SafetyScore, second.SafetyScore)
	assert.Equal(t, first.Factors, second.Factors)
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestComputeScoreWeightedComposite(t *testing.T) {
	// All-neutral daytime inputs with no zones: verify the exact
	// weighted sum.
	inputs := ScoringInputs{
		EffectiveTime:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		NearestRiskDistM: 1000,
		CrowdCount:       5,
		HistoricalAlerts: 0,
	}

	// 100*.30 + 90*.25 + 95*.15 + 85*.10 + 90*.10 + 100*.10 = 94.25
	result := ComputeScore(inputs)
	assert.Equal(t, 94.0, result.SafetyScore)
}

func TestRecommendationsKeyedByWeakFactors(t *testing.T) {
	inputs := ScoringInputs{
		EffectiveTime:      time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC), // night: 50
		WeightedAlertCount: 3,                                           // 55
		NearestRiskDistM:   1000,                                        // 90
		CrowdCount:         0,                                           // 50
		HistoricalAlerts:   0,                                           // 100
	}

	result := ComputeScore(inputs)
	require.Len(t, result.Recommendations, 3)
	assert.Equal(t, "Recent incidents reported nearby - stay alert", result.Recommendations[0])
	assert.Equal(t, "Late hours increase risk - avoid isolated areas", result.Recommendations[1])
	assert.Equal(t, "Low crowd density - consider moving to a more populated area", result.Recommendations[2])
}

func TestBlendScore(t *testing.T) {
	// 30% prior, 70% new.
	assert.Equal(t, 62, BlendScore(90, 50))
	assert.Equal(t, 100, BlendScore(100, 100))
	assert.Equal(t, 0, BlendScore(0, 0))
	assert.Equal(t, 70, BlendScore(0, 100))
}
