package models

import "time"

type BroadcastType string

const (
	BroadcastRadius BroadcastType = "radius"
	BroadcastZone   BroadcastType = "zone"
	BroadcastRegion BroadcastType = "region"
	BroadcastAll    BroadcastType = "all"
)

type BroadcastSeverity string

const (
	BroadcastLow      BroadcastSeverity = "low"
	BroadcastMedium   BroadcastSeverity = "medium"
	BroadcastHigh     BroadcastSeverity = "high"
	BroadcastCritical BroadcastSeverity = "critical"
)

// RegionBounds is a lat/lon bounding box.
type RegionBounds struct {
	MinLat float64 `bson:"minLat" json:"minLat"`
	MaxLat float64 `bson:"maxLat" json:"maxLat"`
	MinLon float64 `bson:"minLon" json:"minLon"`
	MaxLon float64 `bson:"maxLon" json:"maxLon"`
}

// Broadcast is an operator-initiated area-targeted notification. The
// target set is materialized at dispatch time; counters record how
// many legs were submitted to their transports, not how many were
// acknowledged.
type Broadcast struct {
	ID             int64             `bson:"_id" json:"id"`
	BroadcastID    string            `bson:"broadcastId" json:"broadcast_id"`
	Type           BroadcastType     `bson:"type" json:"type"`
	Title          string            `bson:"title" json:"title"`
	Message        string            `bson:"message" json:"message"`
	Severity       BroadcastSeverity `bson:"severity" json:"severity"`
	ActionRequired string            `bson:"actionRequired,omitempty" json:"actionRequired,omitempty"`
	Center         *GeoPoint         `bson:"center,omitempty" json:"center,omitempty"`
	RadiusKm       *float64          `bson:"radiusKm,omitempty" json:"radiusKm,omitempty"`
	ZoneID         *int64            `bson:"zoneId,omitempty" json:"zoneId,omitempty"`
	Region         *RegionBounds     `bson:"region,omitempty" json:"region,omitempty"`
	SentBy         string            `bson:"sentBy" json:"sentBy"`
	SentAt         time.Time         `bson:"sentAt" json:"sentAt"`
	ExpiresAt      *time.Time        `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`

	TouristsNotified    int `bson:"touristsNotified" json:"tourists_notified"`
	DevicesNotified     int `bson:"devicesNotified" json:"devices_notified"`
	AcknowledgmentCount int `bson:"acknowledgmentCount" json:"acknowledgment_count"`
}

type BroadcastAckStatus string

const (
	AckSafe       BroadcastAckStatus = "safe"
	AckNeedHelp   BroadcastAckStatus = "need_help"
	AckEvacuating BroadcastAckStatus = "evacuating"
)

// BroadcastAck records a tourist's response to a broadcast. Unique on
// (broadcast, tourist); re-acknowledging is a no-op.
type BroadcastAck struct {
	BroadcastID    int64              `bson:"broadcastId" json:"broadcastId"`
	TouristID      string             `bson:"touristId" json:"touristId"`
	Status         BroadcastAckStatus `bson:"status" json:"status"`
	Location       *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
	AcknowledgedAt time.Time          `bson:"acknowledgedAt" json:"acknowledgedAt"`
}

type BroadcastRequest struct {
	Title          string     `json:"title" validate:"required,min=1,max=200"`
	Message        string     `json:"message" validate:"required,min=1,max=2000"`
	Severity       string     `json:"severity" validate:"required,broadcast_severity"`
	ActionRequired string     `json:"actionRequired" validate:"omitempty,max=500"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`

	// radius targeting
	CenterLat *float64 `json:"centerLat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	CenterLon *float64 `json:"centerLon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm  *float64 `json:"radiusKm,omitempty" validate:"omitempty,gt=0,lte=500"`

	// zone targeting
	ZoneID *int64 `json:"zoneId,omitempty"`

	// region targeting
	Region *RegionBounds `json:"region,omitempty"`
}

type AcknowledgeBroadcastRequest struct {
	Status string   `json:"status" validate:"required,oneof=safe need_help evacuating"`
	Lat    *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon    *float64 `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Notes  string   `json:"notes" validate:"omitempty,max=1000"`
}
