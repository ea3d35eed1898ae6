package models

import (
	"strconv"
	"time"
)

// Reserved hub channel namespaces.
const (
	ChannelAuthority     = "alerts.authority"
	ChannelTouristPrefix = "alerts.tourist."
	ChannelBroadcastsAll = "broadcasts.all"
	ChannelZonePrefix    = "broadcasts.zone."
	ChannelSystem        = "admin.system"
)

// TouristChannel returns the private channel for one tourist.
func TouristChannel(touristID string) string {
	return ChannelTouristPrefix + touristID
}

// ZoneChannel returns the broadcast channel for one zone.
func ZoneChannel(zoneID int64) string {
	return ChannelZonePrefix + strconv.FormatInt(zoneID, 10)
}

// Event kinds carried over the hub and the websocket wire.
const (
	EventAlertCreated = "alert_created"
	EventAlertUpdated = "alert_updated"
	EventBroadcast    = "emergency_broadcast"
	EventSystemNotice = "system_notice"
)

// Event is the self-describing message the hub carries. PublishID is
// unique per publish and is what the cross-instance bridge dedups on.
type Event struct {
	Channel   string      `json:"channel"`
	EventType string      `json:"event_type"`
	Timestamp time.Time   `json:"timestamp"`
	PublishID string      `json:"publish_id"`
	Origin    string      `json:"origin"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AlertEvent is the payload published when an alert is created or
// updated.
type AlertEvent struct {
	Alert *Alert `json:"alert"`
}

// BroadcastEvent is the per-tourist payload of an emergency broadcast.
type BroadcastEvent struct {
	BroadcastID    string            `json:"broadcast_id"`
	Type           BroadcastType     `json:"type"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Severity       BroadcastSeverity `json:"severity"`
	ActionRequired string            `json:"actionRequired,omitempty"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty"`
}
