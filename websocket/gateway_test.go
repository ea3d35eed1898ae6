package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"safehorizon/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelsForRole(t *testing.T) {
	channels, ok := channelsForRole(models.RoleAuthority, "a1")
	require.True(t, ok)
	assert.Contains(t, channels, models.ChannelAuthority)

	channels, ok = channelsForRole(models.RoleAdmin, "admin1")
	require.True(t, ok)
	assert.Contains(t, channels, models.ChannelAuthority)

	channels, ok = channelsForRole(models.RoleTourist, "t1")
	require.True(t, ok)
	assert.Contains(t, channels, "alerts.tourist.t1")
	assert.Contains(t, channels, models.ChannelBroadcastsAll)

	// Unknown roles and empty tourist subjects are policy violations.
	_, ok = channelsForRole("support", "x")
	assert.False(t, ok)
	_, ok = channelsForRole(models.RoleTourist, "")
	assert.False(t, ok)
}

func TestEncodeFrameInlinesPayload(t *testing.T) {
	lat, lon := 28.6139, 77.2090
	alert := &models.Alert{
		ID:        7,
		TouristID: "T1",
		Kind:      models.AlertPanic,
		Severity:  models.SeverityCritical,
		Latitude:  &lat,
		Longitude: &lon,
	}

	frame, err := EncodeFrame(models.Event{
		EventType: models.EventAlertCreated,
		Timestamp: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Payload:   models.AlertEvent{Alert: alert},
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))

	assert.Equal(t, "alert_created", decoded["event_type"])
	assert.NotEmpty(t, decoded["timestamp"])

	alertField, ok := decoded["alert"].(map[string]interface{})
	require.True(t, ok, "alert payload must be inlined at the top level")
	assert.Equal(t, "panic", alertField["kind"])
	assert.Equal(t, "critical", alertField["severity"])
	assert.Equal(t, "T1", alertField["tourist_id"])
	assert.InDelta(t, 28.6139, alertField["lat"], 1e-9)
}

func TestEncodeFrameScalarPayload(t *testing.T) {
	frame, err := EncodeFrame(models.Event{
		EventType: models.EventSystemNotice,
		Timestamp: time.Now(),
		Payload:   "maintenance window",
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "maintenance window", decoded["payload"])
}

func TestAlertFrameUsableForReplay(t *testing.T) {
	alert := &models.Alert{ID: 9, TouristID: "T2", Kind: models.AlertGeofence, Severity: models.SeverityHigh}
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	frame, err := AlertFrame(alert, created)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "alert_created", decoded["event_type"])
	assert.Equal(t, created.Format(time.RFC3339Nano), decoded["timestamp"])
}
