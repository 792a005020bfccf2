package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/store"
)

type fixture struct {
	store     *store.Memory
	surveys   *SurveyService
	responses *ResponseService
	links     *LinkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	surveys := NewSurveyService(st)
	return &fixture{
		store:     st,
		surveys:   surveys,
		responses: NewResponseService(st, surveys),
		links:     NewLinkService(st, surveys, "https://surveys.example/"),
	}
}

func sampleDraft() models.SurveyDraft {
	return models.SurveyDraft{
		Title:       "Customer Satisfaction",
		Description: "How did we do?",
		Questions: []models.SurveyQuestion{
			{ID: "q1", Type: models.QuestionSingle, Prompt: "Overall rating", Options: []string{"Good", " Bad ", ""}},
			{ID: "q2", Type: models.QuestionMultiple, Prompt: "What did you use?", Options: []string{"Web", "App", "Phone"}},
			{ID: "q3", Type: models.QuestionText, Prompt: "Anything else?", Options: []string{"ignored"}},
		},
	}
}

func validAnswers() map[string]models.Answer {
	return map[string]models.Answer{
		"q1": models.TextAnswer("Good"),
		"q2": models.ChoiceAnswer("Web", "App"),
		"q3": models.TextAnswer("Great support"),
	}
}

func TestCreateSurvey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sv, err := f.surveys.Create(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sv.ID == "" || sv.Status != models.StatusDraft || sv.ResponseCount != 0 {
		t.Errorf("unexpected survey: %+v", sv)
	}
	if !sv.CreatedAt.Equal(sv.LastModified) {
		t.Errorf("created_at %v != last_modified %v", sv.CreatedAt, sv.LastModified)
	}
	if got := sv.Questions[0].Options; len(got) != 2 || got[1] != "Bad" {
		t.Errorf("options not normalized: %q", got)
	}
	if got := sv.Questions[2].Options; len(got) != 0 {
		t.Errorf("text question kept options: %q", got)
	}

	got, err := f.surveys.Get(ctx, sv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != sv.Title || len(got.Questions) != 3 {
		t.Errorf("Get = %+v", got)
	}
}

func TestCreateAssignsQuestionIDs(t *testing.T) {
	f := newFixture(t)
	draft := models.SurveyDraft{
		Title: "Ids",
		Questions: []models.SurveyQuestion{
			{Type: models.QuestionText, Prompt: "A"},
			{Type: models.QuestionText, Prompt: "B"},
		},
	}
	sv, err := f.surveys.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sv.Questions[0].ID == "" || sv.Questions[0].ID == sv.Questions[1].ID {
		t.Errorf("question ids = %q, %q", sv.Questions[0].ID, sv.Questions[1].ID)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft models.SurveyDraft
		field string
	}{
		{"blank title", models.SurveyDraft{Title: "  ", Questions: sampleDraft().Questions}, "title"},
		{"no questions", models.SurveyDraft{Title: "T"}, "questions"},
		{"blank prompt", models.SurveyDraft{Title: "T", Questions: []models.SurveyQuestion{{Type: models.QuestionText}}}, "questions[0].prompt"},
		{"unknown type", models.SurveyDraft{Title: "T", Questions: []models.SurveyQuestion{{Type: "rating", Prompt: "P"}}}, "questions[0].type"},
		{"choice without options", models.SurveyDraft{Title: "T", Questions: []models.SurveyQuestion{{Type: models.QuestionSingle, Prompt: "P", Options: []string{" "}}}}, "questions[0].options"},
		{"duplicate id", models.SurveyDraft{Title: "T", Questions: []models.SurveyQuestion{
			{ID: "a", Type: models.QuestionText, Prompt: "P"},
			{ID: "a", Type: models.QuestionText, Prompt: "Q"},
		}}, "questions[1].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.surveys.Create(context.Background(), tt.draft)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
			if len(f.store.Keys()) != 0 {
				t.Errorf("store written on validation failure: %v", f.store.Keys())
			}
		})
	}
}

func TestListKeepsInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.surveys.List(ctx)
	if err != nil || len(empty) != 0 {
		t.Fatalf("List on empty store = %v, %v", empty, err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		d := sampleDraft()
		d.Title = fmt.Sprintf("Survey %d", i)
		sv, err := f.surveys.Create(ctx, d)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, sv.ID)
	}

	list, err := f.surveys.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, sv := range list {
		if sv.ID != ids[i] {
			t.Errorf("list[%d] = %s, want %s", i, sv.ID, ids[i])
		}
	}
}

func TestGetUnknownSurvey(t *testing.T) {
	f := newFixture(t)
	_, err := f.surveys.Get(context.Background(), "nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "survey" || nf.ID != "nope" {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestUpdateSurvey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())
	f.surveys.now = func() time.Time { return sv.CreatedAt.Add(time.Minute) }

	d := sampleDraft()
	d.Title = "Renamed"
	updated, err := f.surveys.Update(ctx, sv.ID, d)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" || !updated.LastModified.After(sv.CreatedAt) {
		t.Errorf("Update = %+v", updated)
	}

	if _, err := f.responses.Submit(ctx, sv.ID, "fp", validAnswers()); err != nil {
		t.Fatal(err)
	}
	_, err = f.surveys.Update(ctx, sv.ID, d)
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("Update after response: err = %v, want ConflictError", err)
	}

	_, err = f.surveys.Update(ctx, "missing", d)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Update missing: err = %v, want NotFoundError", err)
	}
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		path    []models.SurveyStatus
		wantErr bool
	}{
		{[]models.SurveyStatus{models.StatusActive}, false},
		{[]models.SurveyStatus{models.StatusClosed}, false},
		{[]models.SurveyStatus{models.StatusActive, models.StatusClosed, models.StatusActive}, false},
		{[]models.SurveyStatus{models.StatusActive, models.StatusDraft}, true},
		{[]models.SurveyStatus{models.StatusDraft}, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.path), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sv, _ := f.surveys.Create(ctx, sampleDraft())

			var err error
			for _, st := range tt.path {
				if sv, err = f.surveys.SetStatus(ctx, sv.ID, st); err != nil {
					break
				}
			}
			var cerr *ConflictError
			if tt.wantErr != errors.As(err, &cerr) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sv.Status != tt.path[len(tt.path)-1] {
				t.Errorf("status = %s", sv.Status)
			}
		})
	}

	f := newFixture(t)
	sv, _ := f.surveys.Create(context.Background(), sampleDraft())
	var verr *ValidationError
	if _, err := f.surveys.SetStatus(context.Background(), sv.ID, "archived"); !errors.As(err, &verr) {
		t.Errorf("unknown status: err = %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep, _ := f.surveys.Create(ctx, sampleDraft())
	gone, _ := f.surveys.Create(ctx, sampleDraft())
	if _, err := f.responses.Submit(ctx, gone.ID, "fp", validAnswers()); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if _, err := f.links.Generate(ctx, gone.ID, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.links.Generate(ctx, keep.ID, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	if err := f.surveys.Delete(ctx, gone.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	list, _ := f.surveys.List(ctx)
	for _, sv := range list {
		if sv.ID == gone.ID {
			t.Fatal("deleted survey still listed")
		}
	}
	if len(list) != 1 {
		t.Errorf("len(list) = %d, want 1", len(list))
	}
	if _, found, _ := f.store.Get(ctx, store.ResponsesKey(gone.ID)); found {
		t.Error("responses document survived delete")
	}
	links, _ := f.links.List(ctx, "")
	if len(links) != 1 || links[0].SurveyID != keep.ID {
		t.Errorf("links after delete = %+v", links)
	}

	if err := f.surveys.Delete(ctx, gone.ID); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestSubmitScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	if _, err := f.responses.Submit(ctx, sv.ID, "f1", validAnswers()); err != nil {
		t.Fatalf("first f1: %v", err)
	}
	_, err := f.responses.Submit(ctx, sv.ID, "f1", validAnswers())
	var dup *DuplicateSubmissionError
	if !errors.As(err, &dup) || dup.SurveyID != sv.ID {
		t.Fatalf("second f1: err = %v, want DuplicateSubmissionError", err)
	}
	if _, err := f.responses.Submit(ctx, sv.ID, "f2", validAnswers()); err != nil {
		t.Fatalf("f2: %v", err)
	}

	got, _ := f.surveys.Get(ctx, sv.ID)
	if got.ResponseCount != 2 {
		t.Errorf("ResponseCount = %d, want 2", got.ResponseCount)
	}
	list, _ := f.responses.List(ctx, sv.ID)
	if len(list) != 2 || list[0].Fingerprint != "f1" || list[1].Fingerprint != "f2" {
		t.Errorf("responses = %+v", list)
	}
}

func TestSubmitIncomplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	answers := validAnswers()
	delete(answers, "q1")
	answers["q3"] = models.TextAnswer("   ")

	_, err := f.responses.Submit(ctx, sv.ID, "fp", answers)
	var inc *IncompleteSubmissionError
	if !errors.As(err, &inc) {
		t.Fatalf("err = %v, want IncompleteSubmissionError", err)
	}
	if len(inc.Missing) != 2 || inc.Missing[0] != "q1" || inc.Missing[1] != "q3" {
		t.Errorf("Missing = %v, want [q1 q3]", inc.Missing)
	}

	if _, found, _ := f.store.Get(ctx, store.ResponsesKey(sv.ID)); found {
		t.Error("incomplete submission was stored")
	}
	got, _ := f.surveys.Get(ctx, sv.ID)
	if got.ResponseCount != 0 {
		t.Errorf("ResponseCount = %d", got.ResponseCount)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		fp     string
		modify func(map[string]models.Answer)
	}{
		{"blank fingerprint", "  ", func(map[string]models.Answer) {}},
		{"unknown question", "fp", func(a map[string]models.Answer) { a["q9"] = models.TextAnswer("x") }},
		{"array for single", "fp", func(a map[string]models.Answer) { a["q1"] = models.ChoiceAnswer("Good") }},
		{"array for text", "fp", func(a map[string]models.Answer) { a["q3"] = models.ChoiceAnswer("x") }},
		{"string for multiple", "fp", func(a map[string]models.Answer) { a["q2"] = models.TextAnswer("Web") }},
		{"unknown single option", "fp", func(a map[string]models.Answer) { a["q1"] = models.TextAnswer("Meh") }},
		{"unknown multiple option", "fp", func(a map[string]models.Answer) { a["q2"] = models.ChoiceAnswer("Web", "Fax") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			sv, _ := f.surveys.Create(ctx, sampleDraft())

			answers := validAnswers()
			tt.modify(answers)
			_, err := f.responses.Submit(ctx, sv.ID, tt.fp, answers)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestSubmitNormalizesAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	answers := validAnswers()
	answers["q2"] = models.ChoiceAnswer("App", " Web", "App", "")
	resp, err := f.responses.Submit(ctx, sv.ID, "fp", answers)
	if err != nil {
		t.Fatal(err)
	}
	got := resp.Answers["q2"].Selected
	if len(got) != 2 || got[0] != "App" || got[1] != "Web" {
		t.Errorf("selection = %q, want [App Web]", got)
	}
	if resp.SubmittedAt.Location() != time.UTC {
		t.Errorf("SubmittedAt not UTC: %v", resp.SubmittedAt)
	}
}

func TestSubmitSurveyState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var nf *NotFoundError
	if _, err := f.responses.Submit(ctx, "missing", "fp", validAnswers()); !errors.As(err, &nf) {
		t.Fatalf("unknown survey: err = %v", err)
	}

	sv, _ := f.surveys.Create(ctx, sampleDraft())
	if _, err := f.surveys.SetStatus(ctx, sv.ID, models.StatusClosed); err != nil {
		t.Fatal(err)
	}
	var cerr *ConflictError
	if _, err := f.responses.Submit(ctx, sv.ID, "fp", validAnswers()); !errors.As(err, &cerr) {
		t.Fatalf("closed survey: err = %v, want ConflictError", err)
	}
}

// failingStore fails writes to one key while fail is set.
type failingStore struct {
	*store.Memory
	key  string
	fail atomic.Bool
}

func (f *failingStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if f.fail.Load() && key == f.key {
		return errors.New("boom")
	}
	return f.Memory.Set(ctx, key, doc)
}

func TestSubmitRollsBackWhenCounterFails(t *testing.T) {
	st := &failingStore{Memory: store.NewMemory(), key: store.KeySurveys}
	surveys := NewSurveyService(st)
	responses := NewResponseService(st, surveys)
	ctx := context.Background()

	for _, prior := range []int{0, 1} {
		t.Run(fmt.Sprintf("%d prior", prior), func(t *testing.T) {
			sv, err := surveys.Create(ctx, sampleDraft())
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < prior; i++ {
				if _, err := responses.Submit(ctx, sv.ID, fmt.Sprintf("prior-%d", i), validAnswers()); err != nil {
					t.Fatal(err)
				}
			}

			st.fail.Store(true)
			if _, err := responses.Submit(ctx, sv.ID, "f1", validAnswers()); err == nil {
				t.Fatal("submit succeeded while the counter could not be saved")
			}
			st.fail.Store(false)

			stored, _ := responses.List(ctx, sv.ID)
			got, _ := surveys.Get(ctx, sv.ID)
			if len(stored) != prior || got.ResponseCount != prior {
				t.Fatalf("after failure: stored=%d count=%d, want %d", len(stored), got.ResponseCount, prior)
			}

			if _, err := responses.Submit(ctx, sv.ID, "f1", validAnswers()); err != nil {
				t.Fatalf("retry: %v", err)
			}
			stored, _ = responses.List(ctx, sv.ID)
			got, _ = surveys.Get(ctx, sv.ID)
			if len(stored) != prior+1 || got.ResponseCount != prior+1 {
				t.Errorf("after retry: stored=%d count=%d, want %d", len(stored), got.ResponseCount, prior+1)
			}
		})
	}
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	const workers = 20
	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.responses.Submit(ctx, sv.ID, "same-client", validAnswers())
			var d *DuplicateSubmissionError
			switch {
			case err == nil:
				ok.Add(1)
			case errors.As(err, &d):
				dup.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 1 || dup.Load() != workers-1 {
		t.Fatalf("ok=%d dup=%d, want 1 and %d", ok.Load(), dup.Load(), workers-1)
	}
	list, _ := f.responses.List(ctx, sv.ID)
	if len(list) != 1 {
		t.Errorf("stored %d responses, want 1", len(list))
	}
	if f.surveys.surveys.size() != 0 {
		t.Errorf("keyed mutex leaked %d entries", f.surveys.surveys.size())
	}
}

func TestConcurrentDistinctSubmissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.surveys.Create(ctx, sampleDraft())
	b, _ := f.surveys.Create(ctx, sampleDraft())

	const perSurvey = 15
	var wg sync.WaitGroup
	for i := 0; i < perSurvey; i++ {
		for _, id := range []string{a.ID, b.ID} {
			wg.Add(1)
			go func(id string, i int) {
				defer wg.Done()
				if _, err := f.responses.Submit(ctx, id, fmt.Sprintf("client-%d", i), validAnswers()); err != nil {
					t.Errorf("submit: %v", err)
				}
			}(id, i)
		}
	}
	wg.Wait()

	for _, id := range []string{a.ID, b.ID} {
		sv, _ := f.surveys.Get(ctx, id)
		list, _ := f.responses.List(ctx, id)
		if sv.ResponseCount != perSurvey || len(list) != perSurvey {
			t.Errorf("survey %s: count=%d stored=%d, want %d", id, sv.ResponseCount, len(list), perSurvey)
		}
	}
}

func TestResponseGetAndHasResponded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	resp, err := f.responses.Submit(ctx, sv.ID, "fp", validAnswers())
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.responses.Get(ctx, sv.ID, resp.ID)
	if err != nil || got.ID != resp.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	var nf *NotFoundError
	if _, err := f.responses.Get(ctx, sv.ID, "nope"); !errors.As(err, &nf) || nf.Resource != "response" {
		t.Errorf("Get missing: err = %v", err)
	}

	for fp, want := range map[string]bool{"fp": true, "other": false, "": false} {
		got, err := f.responses.HasResponded(ctx, sv.ID, fp)
		if err != nil || got != want {
			t.Errorf("HasResponded(%q) = %v, %v; want %v", fp, got, err, want)
		}
	}
}

func TestGenerateRacingDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 50; i++ {
		sv, err := f.surveys.Create(ctx, sampleDraft())
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			var nf *NotFoundError
			if _, err := f.links.Generate(ctx, sv.ID, now, now.Add(time.Hour)); err != nil && !errors.As(err, &nf) {
				t.Errorf("Generate: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := f.surveys.Delete(ctx, sv.ID); err != nil {
				t.Errorf("Delete: %v", err)
			}
		}()
		wg.Wait()

		if left, _ := f.links.List(ctx, sv.ID); len(left) != 0 {
			t.Fatalf("iteration %d: %d links left for deleted survey", i, len(left))
		}
	}
}

func TestLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sv, _ := f.surveys.Create(ctx, sampleDraft())

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	link, err := f.links.Generate(ctx, sv.ID, from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "https://surveys.example/survey/" + sv.ID + "?session=" + link.ID
	if link.URL != want {
		t.Errorf("URL = %s, want %s", link.URL, want)
	}
	if link.Status != models.LinkActive || link.SurveyTitle != sv.Title {
		t.Errorf("link = %+v", link)
	}

	var verr *ValidationError
	if _, err := f.links.Generate(ctx, sv.ID, from, from.Add(-time.Second)); !errors.As(err, &verr) {
		t.Errorf("inverted window: err = %v", err)
	}
	var nf *NotFoundError
	if _, err := f.links.Generate(ctx, "missing", from, from); !errors.As(err, &nf) {
		t.Errorf("unknown survey: err = %v", err)
	}

	other, _ := f.surveys.Create(ctx, sampleDraft())
	if _, err := f.links.Generate(ctx, other.ID, from, from.AddDate(1, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if all, _ := f.links.List(ctx, ""); len(all) != 2 {
		t.Errorf("List all = %d links", len(all))
	}
	if mine, _ := f.links.List(ctx, sv.ID); len(mine) != 1 || mine[0].ID != link.ID {
		t.Errorf("List(%s) = %+v", sv.ID, mine)
	}

	// Last valid day is May 8; on May 8 it stays active, on May 9 it expires.
	if n, err := f.links.RefreshStatuses(ctx, time.Date(2024, 5, 8, 23, 0, 0, 0, time.UTC)); err != nil || n != 0 {
		t.Errorf("refresh on last day = %d, %v", n, err)
	}
	if n, err := f.links.RefreshStatuses(ctx, time.Date(2024, 5, 9, 0, 30, 0, 0, time.UTC)); err != nil || n != 1 {
		t.Errorf("refresh after last day = %d, %v", n, err)
	}
	if n, _ := f.links.RefreshStatuses(ctx, time.Date(2024, 5, 9, 1, 0, 0, 0, time.UTC)); n != 0 {
		t.Errorf("second refresh changed %d links", n)
	}

	deact, err := f.links.Deactivate(ctx, link.ID)
	if err != nil || deact.Status != models.LinkInactive {
		t.Errorf("Deactivate = %+v, %v", deact, err)
	}
	if _, err := f.links.Deactivate(ctx, "missing"); !errors.As(err, &nf) {
		t.Errorf("Deactivate missing: err = %v", err)
	}
}
