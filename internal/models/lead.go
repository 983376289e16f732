package models

import "time"

const (
	DefaultLeadMagnetType = "ai_prompts_guide"
	DefaultLeadSource     = "website"
)

type LeadMagnetSignup struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name,omitempty"`
	LeadMagnetType string    `json:"lead_magnet_type"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}
