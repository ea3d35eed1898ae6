package models

import "time"

const (
	RoleTourist   = "tourist"
	RoleAuthority = "authority"
	RoleAdmin     = "admin"
)

type RegisterTouristRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8,max=128"`
	Name             string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	EmergencyContact string `json:"emergencyContact" validate:"omitempty,min=1,max=100"`
	EmergencyPhone   string `json:"emergencyPhone" validate:"omitempty,phone"`
}

type RegisterAuthorityRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	Name        string `json:"name" validate:"required,min=1,max=100"`
	BadgeNumber string `json:"badgeNumber" validate:"required,min=1,max=50"`
	Department  string `json:"department" validate:"required,min=1,max=100"`
	Rank        string `json:"rank" validate:"omitempty,max=50"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
}

// Tourist is a registered tourist account.
type Tourist struct {
	ID               string     `bson:"_id" json:"id"`
	Email            string     `bson:"email" json:"email"`
	Name             string     `bson:"name,omitempty" json:"name,omitempty"`
	Phone            string     `bson:"phone,omitempty" json:"phone,omitempty"`
	EmergencyContact string     `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	EmergencyPhone   string     `bson:"emergencyPhone,omitempty" json:"emergencyPhone,omitempty"`
	PasswordHash     string     `bson:"passwordHash" json:"-"`
	SafetyScore      int        `bson:"safetyScore" json:"safetyScore"`
	LastLocation     *GeoPoint  `bson:"lastLocation,omitempty" json:"lastLocation,omitempty"`
	LastSeen         *time.Time `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	IsActive         bool       `bson:"isActive" json:"isActive"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// UpdateTouristRequest carries the mutable fields of a tourist profile.
type UpdateTouristRequest struct {
	Name             string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	EmergencyContact string `json:"emergencyContact" validate:"omitempty,min=1,max=100"`
	EmergencyPhone   string `json:"emergencyPhone" validate:"omitempty,phone"`
}

// Authority is a registered authority (responder) account.
type Authority struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	BadgeNumber  string    `bson:"badgeNumber" json:"badgeNumber"`
	Department   string    `bson:"department" json:"department"`
	Rank         string    `bson:"rank,omitempty" json:"rank,omitempty"`
	Phone        string    `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	IsActive     bool      `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
