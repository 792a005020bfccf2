package models

import "time"

type LinkStatus string

const (
	LinkActive   LinkStatus = "active"
	LinkInactive LinkStatus = "inactive"
)

// GeneratedLink is a shareable reference to a survey. The validity window
// is informational only; submissions are accepted regardless of it.
type GeneratedLink struct {
	ID          string     `json:"id"`
	SurveyID    string     `json:"survey_id"`
	SurveyTitle string     `json:"survey_title"`
	URL         string     `json:"url"`
	ValidFrom   time.Time  `json:"valid_from"`
	ValidTo     time.Time  `json:"valid_to"`
	CreatedAt   time.Time  `json:"created_at"`
	Status      LinkStatus `json:"status"`
}
