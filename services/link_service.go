package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/store"
)

// LinkService manages shareable survey links. Links are informational:
// nothing checks them when a response is submitted.
type LinkService struct {
	store   store.Store
	surveys *SurveyService
	baseURL string
	now     func() time.Time

	mu sync.Mutex
}

// NewLinkService also registers a hook that drops the links of deleted
// surveys.
func NewLinkService(st store.Store, surveys *SurveyService, baseURL string) *LinkService {
	l := &LinkService{
		store:   st,
		surveys: surveys,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	surveys.OnDelete(l.removeForSurvey)
	return l
}

func (l *LinkService) load(ctx context.Context) ([]models.GeneratedLink, error) {
	var list []models.GeneratedLink
	if _, err := store.GetJSON(ctx, l.store, store.KeyLinks, &list); err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	return list, nil
}

func (l *LinkService) save(ctx context.Context, list []models.GeneratedLink) error {
	if list == nil {
		list = []models.GeneratedLink{}
	}
	if err := store.SetJSON(ctx, l.store, store.KeyLinks, list); err != nil {
		return fmt.Errorf("save links: %w", err)
	}
	return nil
}

func newLinkID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (l *LinkService) Generate(ctx context.Context, surveyID string, validFrom, validTo time.Time) (models.GeneratedLink, error) {
	if validFrom.IsZero() {
		return models.GeneratedLink{}, invalid("valid_from", "start date is required")
	}
	if validTo.IsZero() {
		return models.GeneratedLink{}, invalid("valid_to", "end date is required")
	}
	if validTo.Before(validFrom) {
		return models.GeneratedLink{}, invalid("valid_to", "end date is before start date")
	}

	// Delete takes the same lock, so the survey cannot vanish before the link is saved.
	unlock := l.surveys.lockSurvey(surveyID)
	defer unlock()

	survey, err := l.surveys.Get(ctx, surveyID)
	if err != nil {
		return models.GeneratedLink{}, err
	}

	id := newLinkID()
	link := models.GeneratedLink{
		ID:          id,
		SurveyID:    survey.ID,
		SurveyTitle: survey.Title,
		URL:         fmt.Sprintf("%s/survey/%s?session=%s", l.baseURL, url.PathEscape(survey.ID), url.QueryEscape(id)),
		ValidFrom:   validFrom.UTC(),
		ValidTo:     validTo.UTC(),
		CreatedAt:   l.now(),
		Status:      models.LinkActive,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return models.GeneratedLink{}, err
	}
	if err := l.save(ctx, append(list, link)); err != nil {
		return models.GeneratedLink{}, err
	}
	return link, nil
}

// List returns the links of one survey, or all links when surveyID is empty.
func (l *LinkService) List(ctx context.Context, surveyID string) ([]models.GeneratedLink, error) {
	list, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.GeneratedLink, 0, len(list))
	for _, link := range list {
		if surveyID == "" || link.SurveyID == surveyID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (l *LinkService) Deactivate(ctx context.Context, linkID string) (models.GeneratedLink, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return models.GeneratedLink{}, err
	}
	for i := range list {
		if list[i].ID != linkID {
			continue
		}
		if list[i].Status == models.LinkInactive {
			return list[i], nil
		}
		list[i].Status = models.LinkInactive
		if err := l.save(ctx, list); err != nil {
			return models.GeneratedLink{}, err
		}
		return list[i], nil
	}
	return models.GeneratedLink{}, &NotFoundError{Resource: "link", ID: linkID}
}

// RefreshStatuses marks links whose last valid day is before now's UTC day
// as inactive and returns how many changed.
func (l *LinkService) RefreshStatuses(ctx context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return 0, err
	}
	today := utcDay(now)
	changed := 0
	for i := range list {
		if list[i].Status == models.LinkActive && utcDay(list[i].ValidTo).Before(today) {
			list[i].Status = models.LinkInactive
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := l.save(ctx, list); err != nil {
		return 0, err
	}
	return changed, nil
}

func (l *LinkService) removeForSurvey(ctx context.Context, surveyID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	list, err := l.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, link := range list {
		if link.SurveyID != surveyID {
			kept = append(kept, link)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return l.save(ctx, kept)
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
