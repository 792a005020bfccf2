package models

import "time"

type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionSingle, QuestionMultiple:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from Options.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

type SurveyStatus string

const (
	StatusDraft  SurveyStatus = "draft"
	StatusActive SurveyStatus = "active"
	StatusClosed SurveyStatus = "closed"
)

type SurveyQuestion struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options"`
}

type Survey struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Questions     []SurveyQuestion `json:"questions"`
	ResponseCount int              `json:"response_count"`
	Status        SurveyStatus     `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	LastModified  time.Time        `json:"last_modified"`
}

// SurveyDraft is the authoring input for creating or editing a survey.
type SurveyDraft struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []SurveyQuestion `json:"questions"`
}

func (s Survey) Question(id string) (SurveyQuestion, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return SurveyQuestion{}, false
}
