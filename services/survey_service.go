package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/store"
)

// DeleteHook runs after a survey has been removed, to drop data that
// belongs to it.
type DeleteHook func(ctx context.Context, surveyID string) error

// SurveyService owns the survey list document. Writes are serialized by mu;
// operations that must not interleave with submissions to the same survey
// also take the per-survey lock, always before mu.
type SurveyService struct {
	store store.Store
	now   func() time.Time

	mu      sync.Mutex
	surveys *keyedMutex
	hooks   []DeleteHook
}

func NewSurveyService(st store.Store) *SurveyService {
	return &SurveyService{
		store:   st,
		now:     func() time.Time { return time.Now().UTC() },
		surveys: newKeyedMutex(),
	}
}

// OnDelete registers fn to run for every deleted survey.
func (s *SurveyService) OnDelete(fn DeleteHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

func (s *SurveyService) lockSurvey(id string) func() {
	return s.surveys.Lock(id)
}

func (s *SurveyService) load(ctx context.Context) ([]models.Survey, error) {
	var list []models.Survey
	if _, err := store.GetJSON(ctx, s.store, store.KeySurveys, &list); err != nil {
		return nil, fmt.Errorf("load surveys: %w", err)
	}
	return list, nil
}

func (s *SurveyService) save(ctx context.Context, list []models.Survey) error {
	if list == nil {
		list = []models.Survey{}
	}
	if err := store.SetJSON(ctx, s.store, store.KeySurveys, list); err != nil {
		return fmt.Errorf("save surveys: %w", err)
	}
	return nil
}

// mutate loads the list, applies fn to the survey with the given id and
// persists the result. fn returning an error aborts without writing.
func (s *SurveyService) mutate(ctx context.Context, id string, fn func(*models.Survey) error) (models.Survey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return models.Survey{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if err := fn(&list[i]); err != nil {
			return models.Survey{}, err
		}
		if err := s.save(ctx, list); err != nil {
			return models.Survey{}, err
		}
		return list[i], nil
	}
	return models.Survey{}, &NotFoundError{Resource: "survey", ID: id}
}

func (s *SurveyService) Create(ctx context.Context, draft models.SurveyDraft) (models.Survey, error) {
	questions, err := normalizeQuestions(draft)
	if err != nil {
		return models.Survey{}, err
	}

	now := s.now()
	survey := models.Survey{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(draft.Title),
		Description:  strings.TrimSpace(draft.Description),
		Questions:    questions,
		Status:       models.StatusDraft,
		CreatedAt:    now,
		LastModified: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return models.Survey{}, err
	}
	if err := s.save(ctx, append(list, survey)); err != nil {
		return models.Survey{}, err
	}
	return survey, nil
}

// List returns all surveys in creation order.
func (s *SurveyService) List(ctx context.Context) ([]models.Survey, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Survey{}
	}
	return list, nil
}

func (s *SurveyService) Get(ctx context.Context, id string) (models.Survey, error) {
	list, err := s.load(ctx)
	if err != nil {
		return models.Survey{}, err
	}
	for _, sv := range list {
		if sv.ID == id {
			return sv, nil
		}
	}
	return models.Survey{}, &NotFoundError{Resource: "survey", ID: id}
}

// Update replaces the title, description and questions. Questions are frozen
// once the survey has received a response.
func (s *SurveyService) Update(ctx context.Context, id string, draft models.SurveyDraft) (models.Survey, error) {
	questions, err := normalizeQuestions(draft)
	if err != nil {
		return models.Survey{}, err
	}

	unlock := s.lockSurvey(id)
	defer unlock()

	return s.mutate(ctx, id, func(sv *models.Survey) error {
		if sv.ResponseCount > 0 {
			return &ConflictError{Message: "survey already has responses; questions can no longer be edited"}
		}
		sv.Title = strings.TrimSpace(draft.Title)
		sv.Description = strings.TrimSpace(draft.Description)
		sv.Questions = questions
		sv.LastModified = s.now()
		return nil
	})
}

var statusTransitions = map[models.SurveyStatus][]models.SurveyStatus{
	models.StatusDraft:  {models.StatusActive, models.StatusClosed},
	models.StatusActive: {models.StatusClosed},
	models.StatusClosed: {models.StatusActive},
}

func canTransition(from, to models.SurveyStatus) bool {
	for _, st := range statusTransitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// SetStatus publishes, closes or re-opens a survey.
func (s *SurveyService) SetStatus(ctx context.Context, id string, status models.SurveyStatus) (models.Survey, error) {
	switch status {
	case models.StatusDraft, models.StatusActive, models.StatusClosed:
	default:
		return models.Survey{}, invalid("status", "unknown status %q", status)
	}

	unlock := s.lockSurvey(id)
	defer unlock()

	return s.mutate(ctx, id, func(sv *models.Survey) error {
		if !canTransition(sv.Status, status) {
			return &ConflictError{Message: fmt.Sprintf("cannot change survey status from %s to %s", sv.Status, status)}
		}
		sv.Status = status
		sv.LastModified = s.now()
		return nil
	})
}

// Delete removes the survey, its responses and whatever the registered hooks
// clean up. Deleting an unknown id is a no-op.
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	unlock := s.lockSurvey(id)
	defer unlock()

	s.mu.Lock()
	list, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	kept := list[:0]
	for _, sv := range list {
		if sv.ID != id {
			kept = append(kept, sv)
		}
	}
	if len(kept) != len(list) {
		if err := s.save(ctx, kept); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	if err := s.store.Remove(ctx, store.ResponsesKey(id)); err != nil {
		return fmt.Errorf("remove responses of %s: %w", id, err)
	}
	for _, fn := range hooks {
		if err := fn(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// IncrementResponseCount adds one to the survey's response counter.
func (s *SurveyService) IncrementResponseCount(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(sv *models.Survey) error {
		sv.ResponseCount++
		return nil
	})
	return err
}

func normalizeQuestions(draft models.SurveyDraft) ([]models.SurveyQuestion, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, invalid("title", "title is required")
	}
	if len(draft.Questions) == 0 {
		return nil, invalid("questions", "at least one question is required")
	}

	seen := make(map[string]bool, len(draft.Questions))
	out := make([]models.SurveyQuestion, 0, len(draft.Questions))
	for i, q := range draft.Questions {
		field := fmt.Sprintf("questions[%d]", i)

		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if seen[q.ID] {
			return nil, invalid(field+".id", "duplicate question id %q", q.ID)
		}
		seen[q.ID] = true

		q.Prompt = strings.TrimSpace(q.Prompt)
		if q.Prompt == "" {
			return nil, invalid(field+".prompt", "prompt is required")
		}
		if !q.Type.Valid() {
			return nil, invalid(field+".type", "unknown question type %q", q.Type)
		}

		options := []string{}
		if q.Type.IsChoice() {
			for _, o := range q.Options {
				if o = strings.TrimSpace(o); o != "" {
					options = append(options, o)
				}
			}
			if len(options) == 0 {
				return nil, invalid(field+".options", "choice questions need at least one option")
			}
		}
		q.Options = options
		out = append(out, q)
	}
	return out, nil
}
