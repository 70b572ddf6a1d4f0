package models

import "time"

// User status values. "aprobado" is kept as stored by the original dataset.
const (
	StatusPending   = "pending"
	StatusApproved  = "aprobado"
	StatusSuspended = "suspended"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Location is a GPS fix written by the presence tracker.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// User represents a member account.
type User struct {
	ID         string `bson:"_id" json:"id"`
	Name       string `bson:"name" json:"name"`
	FirstName  string `bson:"firstName" json:"first_name"`
	LastName   string `bson:"lastName" json:"last_name"`
	Email      string `bson:"email" json:"email"`
	Password   string `bson:"password" json:"-"`
	Phone      string `bson:"phone" json:"phone,omitempty"`
	Address    string `bson:"address" json:"address,omitempty"`
	PostalCode string `bson:"postalCode" json:"postal_code,omitempty"`
	City       string `bson:"city" json:"city,omitempty"`
	Province   string `bson:"province" json:"province,omitempty"`
	Country    string `bson:"country" json:"country,omitempty"`
	Avatar     string `bson:"avatar" json:"avatar,omitempty"`

	EmailVerified     bool   `bson:"emailVerified" json:"email_verified"`
	VerificationToken string `bson:"verificationToken,omitempty" json:"-"`

	Status      string `bson:"status" json:"status"`
	Role        string `bson:"role" json:"role"`
	ChatEnabled bool   `bson:"chatEnabled" json:"chat_enabled"`

	Online   bool      `bson:"online" json:"online"`
	Location *Location `bson:"location,omitempty" json:"location,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// IsApproved reports whether the user may appear in rosters and chats.
func (u User) IsApproved() bool {
	return u.Status == StatusApproved
}

// Profile holds the self-editable fields of a user.
type Profile struct {
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	City       string `json:"city" binding:"required"`
	Province   string `json:"province" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Avatar     string `json:"avatar" binding:"omitempty,url"`
}

// RosterEntry is the map view of an approved, online user.
type RosterEntry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	Role        string    `json:"role"`
	ChatEnabled bool      `json:"chat_enabled"`
	Online      bool      `json:"online"`
	Location    *Location `json:"location,omitempty"`
}
