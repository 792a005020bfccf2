package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/store"
)

// ResponseService collects survey responses and keeps at most one response
// per (survey, fingerprint).
type ResponseService struct {
	store   store.Store
	surveys *SurveyService
	now     func() time.Time
}

func NewResponseService(st store.Store, surveys *SurveyService) *ResponseService {
	return &ResponseService{
		store:   st,
		surveys: surveys,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *ResponseService) load(ctx context.Context, surveyID string) ([]models.SurveyResponse, error) {
	var list []models.SurveyResponse
	if _, err := store.GetJSON(ctx, r.store, store.ResponsesKey(surveyID), &list); err != nil {
		return nil, fmt.Errorf("load responses of %s: %w", surveyID, err)
	}
	return list, nil
}

// Submit records a response submitted now.
func (r *ResponseService) Submit(ctx context.Context, surveyID, fingerprint string, answers map[string]models.Answer) (models.SurveyResponse, error) {
	return r.SubmitAt(ctx, surveyID, fingerprint, answers, r.now())
}

// SubmitAt records a response with the given submission time. The whole
// check-then-append sequence holds the survey's lock, so two submissions with
// the same fingerprint can never both be stored.
func (r *ResponseService) SubmitAt(ctx context.Context, surveyID, fingerprint string, answers map[string]models.Answer, at time.Time) (models.SurveyResponse, error) {
	unlock := r.surveys.lockSurvey(surveyID)
	defer unlock()

	survey, err := r.surveys.Get(ctx, surveyID)
	if err != nil {
		return models.SurveyResponse{}, err
	}
	if survey.Status == models.StatusClosed {
		return models.SurveyResponse{}, &ConflictError{Message: "survey is closed"}
	}

	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return models.SurveyResponse{}, invalid("fingerprint", "client fingerprint is required")
	}

	if missing := missingAnswers(survey, answers); len(missing) > 0 {
		return models.SurveyResponse{}, &IncompleteSubmissionError{Missing: missing}
	}
	normalized, err := checkAnswers(survey, answers)
	if err != nil {
		return models.SurveyResponse{}, err
	}

	existing, err := r.load(ctx, surveyID)
	if err != nil {
		return models.SurveyResponse{}, err
	}
	for _, resp := range existing {
		if resp.Fingerprint == fingerprint {
			return models.SurveyResponse{}, &DuplicateSubmissionError{SurveyID: surveyID}
		}
	}

	resp := models.SurveyResponse{
		ID:          uuid.NewString(),
		SurveyID:    surveyID,
		Fingerprint: fingerprint,
		SubmittedAt: at.UTC(),
		Answers:     normalized,
	}
	if err := store.SetJSON(ctx, r.store, store.ResponsesKey(surveyID), append(existing, resp)); err != nil {
		return models.SurveyResponse{}, fmt.Errorf("save response: %w", err)
	}
	if err := r.surveys.IncrementResponseCount(ctx, surveyID); err != nil {
		if rerr := r.restore(ctx, surveyID, existing); rerr != nil {
			return models.SurveyResponse{}, fmt.Errorf("%w (rollback failed: %v)", err, rerr)
		}
		return models.SurveyResponse{}, err
	}
	return resp, nil
}

// restore puts back the response collection as it was before an append.
func (r *ResponseService) restore(ctx context.Context, surveyID string, previous []models.SurveyResponse) error {
	if previous == nil {
		return r.store.Remove(ctx, store.ResponsesKey(surveyID))
	}
	return store.SetJSON(ctx, r.store, store.ResponsesKey(surveyID), previous)
}

// List returns the responses of a survey in submission order.
func (r *ResponseService) List(ctx context.Context, surveyID string) ([]models.SurveyResponse, error) {
	if _, err := r.surveys.Get(ctx, surveyID); err != nil {
		return nil, err
	}
	list, err := r.load(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.SurveyResponse{}
	}
	return list, nil
}

func (r *ResponseService) Get(ctx context.Context, surveyID, responseID string) (models.SurveyResponse, error) {
	list, err := r.List(ctx, surveyID)
	if err != nil {
		return models.SurveyResponse{}, err
	}
	for _, resp := range list {
		if resp.ID == responseID {
			return resp, nil
		}
	}
	return models.SurveyResponse{}, &NotFoundError{Resource: "response", ID: responseID}
}

// HasResponded reports whether fingerprint already answered the survey.
func (r *ResponseService) HasResponded(ctx context.Context, surveyID, fingerprint string) (bool, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return false, nil
	}
	list, err := r.List(ctx, surveyID)
	if err != nil {
		return false, err
	}
	for _, resp := range list {
		if resp.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func missingAnswers(survey models.Survey, answers map[string]models.Answer) []string {
	var missing []string
	for _, q := range survey.Questions {
		if a, ok := answers[q.ID]; !ok || a.Empty() {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// checkAnswers validates the shape of every answer against its question and
// returns the cleaned map: text trimmed, selections de-duplicated in the
// order they were first picked.
func checkAnswers(survey models.Survey, answers map[string]models.Answer) (map[string]models.Answer, error) {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]models.Answer, len(answers))
	for _, id := range ids {
		a := answers[id]
		field := "answers." + id

		q, ok := survey.Question(id)
		if !ok {
			return nil, invalid(field, "unknown question")
		}

		switch q.Type {
		case models.QuestionText:
			if a.Multi {
				return nil, invalid(field, "expected a single text answer")
			}
			out[id] = models.TextAnswer(strings.TrimSpace(a.Text))

		case models.QuestionSingle:
			if a.Multi {
				return nil, invalid(field, "expected exactly one option")
			}
			choice := strings.TrimSpace(a.Text)
			if !hasOption(q, choice) {
				return nil, invalid(field, "%q is not an option", choice)
			}
			out[id] = models.TextAnswer(choice)

		case models.QuestionMultiple:
			if !a.Multi {
				return nil, invalid(field, "expected a list of options")
			}
			var picked []string
			seen := make(map[string]bool, len(a.Selected))
			for _, o := range a.Selected {
				o = strings.TrimSpace(o)
				if o == "" || seen[o] {
					continue
				}
				if !hasOption(q, o) {
					return nil, invalid(field, "%q is not an option", o)
				}
				seen[o] = true
				picked = append(picked, o)
			}
			out[id] = models.ChoiceAnswer(picked...)
		}
	}
	return out, nil
}

func hasOption(q models.SurveyQuestion, option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
