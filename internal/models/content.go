package models

import "time"

type PromptCategory string

const (
	CategoryEmail    PromptCategory = "email"
	CategoryContent  PromptCategory = "content"
	CategoryResearch PromptCategory = "research"
	CategoryMeetings PromptCategory = "meetings"
	CategorySales    PromptCategory = "sales"
)

type Prompt struct {
	ID               string         `json:"id" yaml:"id"`
	Title            string         `json:"title" yaml:"title"`
	Description      string         `json:"description" yaml:"description"`
	Category         PromptCategory `json:"category" yaml:"category"`
	PromptText       string         `json:"prompt_text" yaml:"prompt_text"`
	TimeSavedMinutes int            `json:"time_saved_minutes" yaml:"time_saved_minutes"`
	DifficultyLevel  string         `json:"difficulty_level" yaml:"difficulty_level"`
	Tags             []string       `json:"tags" yaml:"tags"`
	IsPremium        bool           `json:"is_premium" yaml:"is_premium"`
}

type CategoryCount struct {
	Category PromptCategory `json:"category"`
	Count    int            `json:"count"`
}

type SurveyQuestion struct {
	ID       string   `json:"id" yaml:"id"`
	Type     string   `json:"type" yaml:"type"`
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options,omitempty" yaml:"options"`
}

type Survey struct {
	ID          string           `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description" yaml:"description"`
	Questions   []SurveyQuestion `json:"questions" yaml:"questions"`
	IsActive    bool             `json:"is_active" yaml:"is_active"`
}

type SurveyResponse struct {
	ID          string         `json:"id"`
	SurveyID    string         `json:"survey_id"`
	UserEmail   string         `json:"user_email"`
	Responses   map[string]any `json:"responses"`
	SubmittedAt time.Time      `json:"submitted_at"`
}
