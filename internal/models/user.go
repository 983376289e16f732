package models

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleCustomer UserRole = "customer"
)

type SubscriptionStatus string

const (
	SubscriptionFree  SubscriptionStatus = "free"
	SubscriptionLead  SubscriptionStatus = "lead"
	SubscriptionTrial SubscriptionStatus = "trial"
	SubscriptionPaid  SubscriptionStatus = "paid"
)

type User struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	PasswordHash       string             `json:"-"`
	FirstName          string             `json:"first_name,omitempty"`
	LastName           string             `json:"last_name,omitempty"`
	Role               UserRole           `json:"role"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	IsActive           bool               `json:"is_active"`
	CreatedAt          time.Time          `json:"created_at"`
	LastLogin          *time.Time         `json:"last_login,omitempty"`
	PurchasedAt        *time.Time         `json:"purchased_at,omitempty"`
}

// HasPremiumAccess reports whether the user may read premium prompts.
func (u *User) HasPremiumAccess() bool {
	return u.SubscriptionStatus == SubscriptionPaid || u.SubscriptionStatus == SubscriptionTrial
}

type UserStats struct {
	Total         int64
	Paid          int64
	RecentSignups int64
}
