// Package analytics turns stored responses into tallies, day series, text
// reports and spreadsheet exports. Every function is pure: the same inputs
// always produce the same output.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vnkhanh/surveyflow/models"
)

type Kind string

const (
	KindText  Kind = "text"
	KindChart Kind = "chart"
)

type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionAnalytics is the tally of one question. Text questions fill
// Values; choice questions fill Answered and Entries.
type QuestionAnalytics struct {
	QuestionID string        `json:"question_id"`
	Prompt     string        `json:"prompt"`
	Type       string        `json:"type"`
	Kind       Kind          `json:"kind"`
	Values     []string      `json:"values,omitempty"`
	Answered   int           `json:"answered"`
	Entries    []OptionCount `json:"entries,omitempty"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

const dayLayout = "2006-01-02"

// Tally counts the answers to q. For choice questions the denominator is the
// number of responses that answered q, so multiple-choice percentages can
// add up to more than 100.
func Tally(q models.SurveyQuestion, responses []models.SurveyResponse) QuestionAnalytics {
	out := QuestionAnalytics{
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Type:       string(q.Type),
	}

	if !q.Type.IsChoice() {
		out.Kind = KindText
		out.Values = []string{}
		for _, r := range responses {
			a, ok := r.Answers[q.ID]
			if !ok || a.Empty() {
				continue
			}
			out.Values = append(out.Values, a.String())
			out.Answered++
		}
		return out
	}

	out.Kind = KindChart
	out.Entries = []OptionCount{}
	counts := make(map[string]int)
	var order []string
	for _, r := range responses {
		a, ok := r.Answers[q.ID]
		if !ok || a.Empty() {
			continue
		}
		out.Answered++
		for _, v := range a.Values() {
			if strings.TrimSpace(v) == "" {
				continue
			}
			if _, seen := counts[v]; !seen {
				order = append(order, v)
			}
			counts[v]++
		}
	}
	if out.Answered == 0 {
		return out
	}
	for _, opt := range order {
		out.Entries = append(out.Entries, OptionCount{
			Option:     opt,
			Count:      counts[opt],
			Percentage: percent(counts[opt], out.Answered),
		})
	}
	return out
}

// TallyAll tallies every question of the survey in question order.
func TallyAll(survey models.Survey, responses []models.SurveyResponse) []QuestionAnalytics {
	out := make([]QuestionAnalytics, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		out = append(out, Tally(q, responses))
	}
	return out
}

func percent(count, total int) float64 {
	return math.Round(float64(count)*1000/float64(total)) / 10
}

// FrequencyByDay buckets responses by UTC calendar day, oldest first. Days
// without responses are not listed.
func FrequencyByDay(responses []models.SurveyResponse) []DayCount {
	counts := make(map[string]int)
	for _, r := range responses {
		counts[r.SubmittedAt.UTC().Format(dayLayout)]++
	}
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		out = append(out, DayCount{Date: d, Count: counts[d]})
	}
	return out
}

// dateRange returns the first and last submission times; ok is false when
// there are no responses.
func dateRange(responses []models.SurveyResponse) (first, last time.Time, ok bool) {
	for i, r := range responses {
		t := r.SubmittedAt.UTC()
		if i == 0 || t.Before(first) {
			first = t
		}
		if i == 0 || t.After(last) {
			last = t
		}
	}
	return first, last, len(responses) > 0
}

// BuildReport renders the plain text report of a survey.
func BuildReport(survey models.Survey, responses []models.SurveyResponse) string {
	var b strings.Builder

	start, end := "N/A", "N/A"
	if first, last, ok := dateRange(responses); ok {
		start, end = first.Format(dayLayout), last.Format(dayLayout)
	}

	fmt.Fprintf(&b, "Survey Report: %s\n\n", survey.Title)
	fmt.Fprintf(&b, "Total Responses: %d\n", len(responses))
	fmt.Fprintf(&b, "Date Range: %s - %s\n", start, end)

	for i, q := range survey.Questions {
		qa := Tally(q, responses)
		fmt.Fprintf(&b, "\nQuestion %d: %s\n", i+1, q.Prompt)
		fmt.Fprintf(&b, "Type: %s\n", q.Type)
		fmt.Fprintf(&b, "Answered: %d\n", qa.Answered)
		if qa.Kind == KindText {
			fmt.Fprintf(&b, "Text responses: %d\n", len(qa.Values))
			continue
		}
		for _, e := range qa.Entries {
			fmt.Fprintf(&b, "%s: %d (%s%%)\n", e.Option, e.Count, strconv.FormatFloat(e.Percentage, 'f', 1, 64))
		}
	}
	return b.String()
}

// Summary is the headline block of the reports panel.
type Summary struct {
	TotalQuestions       int        `json:"total_questions"`
	TotalResponses       int        `json:"total_responses"`
	ActiveDays           int        `json:"active_days"`
	AverageDailyResponse int        `json:"average_daily_responses"`
	FirstResponseAt      *time.Time `json:"first_response_at"`
	LastResponseAt       *time.Time `json:"last_response_at"`
}

func Summarize(survey models.Survey, responses []models.SurveyResponse) Summary {
	s := Summary{
		TotalQuestions: len(survey.Questions),
		TotalResponses: len(responses),
		ActiveDays:     len(FrequencyByDay(responses)),
	}
	if s.ActiveDays > 0 {
		s.AverageDailyResponse = int(math.Round(float64(s.TotalResponses) / float64(s.ActiveDays)))
	}
	if first, last, ok := dateRange(responses); ok {
		s.FirstResponseAt, s.LastResponseAt = &first, &last
	}
	return s
}
