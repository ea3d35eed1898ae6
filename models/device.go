package models

import "time"

type DevicePlatform string

const (
	PlatformIOS     DevicePlatform = "ios"
	PlatformAndroid DevicePlatform = "android"
)

// Device is a push-notification registration. Tokens are unique; a
// tourist may register several devices.
type Device struct {
	ID          int64          `bson:"_id" json:"id"`
	TouristID   string         `bson:"touristId" json:"touristId"`
	DeviceToken string         `bson:"deviceToken" json:"deviceToken"`
	Platform    DevicePlatform `bson:"platform" json:"platform"`
	IsActive    bool           `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"deviceToken" validate:"required,min=8,max=4096"`
	Platform    string `json:"platform" validate:"required,oneof=ios android"`
}
