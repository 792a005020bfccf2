package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Answer holds either a single string (text/single questions) or a set of
// selected options (multiple questions). On the wire it is a JSON string or
// a JSON array of strings.
type Answer struct {
	Text     string
	Selected []string
	Multi    bool
}

func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

func ChoiceAnswer(options ...string) Answer {
	return Answer{Selected: options, Multi: true}
}

// Empty reports whether the answer carries no non-blank value.
func (a Answer) Empty() bool {
	if !a.Multi {
		return strings.TrimSpace(a.Text) == ""
	}
	for _, s := range a.Selected {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Values returns the answer as a list: one element for text/single, the
// selection for multiple.
func (a Answer) Values() []string {
	if a.Multi {
		return a.Selected
	}
	return []string{a.Text}
}

func (a Answer) String() string {
	if a.Multi {
		return strings.Join(a.Selected, "; ")
	}
	return a.Text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		sel := a.Selected
		if sel == nil {
			sel = []string{}
		}
		return json.Marshal(sel)
	}
	return json.Marshal(a.Text)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch data[0] {
	case '[':
		var sel []string
		if err := json.Unmarshal(data, &sel); err != nil {
			return err
		}
		*a = Answer{Selected: sel, Multi: true}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer{Text: s}
	default:
		return errors.New("answer must be a string or an array of strings")
	}
	return nil
}

type SurveyResponse struct {
	ID          string            `json:"id"`
	SurveyID    string            `json:"survey_id"`
	Fingerprint string            `json:"fingerprint"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Answers     map[string]Answer `json:"answers"`
}
