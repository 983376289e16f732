package models

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LeadSignupRequest struct {
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name" validate:"omitempty,max=100"`
	LeadMagnetType string `json:"lead_magnet_type" validate:"omitempty,max=100"`
	Source         string `json:"source" validate:"omitempty,max=100"`
}

type LeadSignupResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	LeadMagnetURL string `json:"lead_magnet_url"`
}
