package models

import "time"

type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Trip is a tourist's travel plan. A tourist has at most one active
// trip at a time.
type Trip struct {
	ID          int64      `bson:"_id" json:"id"`
	TouristID   string     `bson:"touristId" json:"touristId"`
	Destination string     `bson:"destination,omitempty" json:"destination,omitempty"`
	Itinerary   []string   `bson:"itinerary,omitempty" json:"itinerary,omitempty"`
	Status      TripStatus `bson:"status" json:"status"`
	StartDate   *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

type StartTripRequest struct {
	Destination string   `json:"destination" validate:"omitempty,max=200"`
	Itinerary   []string `json:"itinerary" validate:"omitempty"`
}
