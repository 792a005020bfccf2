package seeders

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/vnkhanh/surveyflow/config/configslog"
	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/services"
)

var sampleTextAnswers = []string{
	"Great service, very satisfied with the quality and attention to detail",
	"Could be improved, especially in terms of response time",
	"Excellent experience overall, would definitely recommend",
	"Average experience, nothing special but meets expectations",
	"Outstanding quality and customer service exceeded my expectations",
	"Poor experience, needs significant improvement",
	"Good value for money, satisfied with the service provided",
	"Not satisfied, did not meet my expectations at all",
}

type demoSurvey struct {
	draft     models.SurveyDraft
	status    models.SurveyStatus
	responses int
}

func demoSurveys() []demoSurvey {
	return []demoSurvey{
		{
			draft: models.SurveyDraft{
				Title:       "Customer Satisfaction Survey",
				Description: "Measure customer satisfaction with our services",
				Questions: []models.SurveyQuestion{
					{ID: "overall", Type: models.QuestionSingle, Prompt: "How satisfied are you with our service overall?",
						Options: []string{"Very satisfied", "Satisfied", "Neutral", "Dissatisfied", "Very dissatisfied"}},
					{ID: "channels", Type: models.QuestionMultiple, Prompt: "Which channels have you used to contact us?",
						Options: []string{"Email", "Phone", "Live chat", "In store"}},
					{ID: "recommend", Type: models.QuestionSingle, Prompt: "Would you recommend us to a friend?",
						Options: []string{"Yes", "Maybe", "No"}},
					{ID: "comments", Type: models.QuestionText, Prompt: "What could we do better?"},
				},
			},
			status:    models.StatusActive,
			responses: 124,
		},
		{
			draft: models.SurveyDraft{
				Title:       "Employee Feedback Form",
				Description: "Annual employee feedback and engagement survey",
				Questions: []models.SurveyQuestion{
					{ID: "department", Type: models.QuestionSingle, Prompt: "Which department do you work in?",
						Options: []string{"Engineering", "Sales", "Support", "Operations"}},
					{ID: "benefits", Type: models.QuestionMultiple, Prompt: "Which benefits matter most to you?",
						Options: []string{"Remote work", "Training budget", "Health plan", "Flexible hours"}},
					{ID: "engagement", Type: models.QuestionSingle, Prompt: "How engaged do you feel at work?",
						Options: []string{"Highly engaged", "Somewhat engaged", "Not engaged"}},
					{ID: "feedback", Type: models.QuestionText, Prompt: "Any other feedback for leadership?"},
				},
			},
			status:    models.StatusDraft,
			responses: 67,
		},
	}
}

// Generated is one synthetic submission.
type Generated struct {
	Fingerprint string
	SubmittedAt time.Time
	Answers     map[string]models.Answer
}

// GenerateResponses builds n plausible submissions for survey spread over
// the 30 days before now. Choice questions draw from a random weighting of
// their options so charts are uneven; multiple-choice questions add each
// other option with probability 0.3. The output depends only on rng's seed.
func GenerateResponses(survey models.Survey, n int, rng *rand.Rand, now time.Time) []Generated {
	weights := make(map[string][]float64, len(survey.Questions))
	for _, q := range survey.Questions {
		if !q.Type.IsChoice() {
			continue
		}
		w := make([]float64, len(q.Options))
		for i := range w {
			w[i] = rng.Float64() + 0.1
		}
		weights[q.ID] = w
	}

	const window = 30 * 24 * time.Hour
	out := make([]Generated, 0, n)
	for i := 0; i < n; i++ {
		answers := make(map[string]models.Answer, len(survey.Questions))
		for _, q := range survey.Questions {
			switch q.Type {
			case models.QuestionText:
				answers[q.ID] = models.TextAnswer(sampleTextAnswers[rng.Intn(len(sampleTextAnswers))])
			case models.QuestionSingle:
				answers[q.ID] = models.TextAnswer(q.Options[pick(weights[q.ID], rng)])
			case models.QuestionMultiple:
				first := pick(weights[q.ID], rng)
				selected := []string{q.Options[first]}
				for j, o := range q.Options {
					if j != first && rng.Float64() < 0.3 {
						selected = append(selected, o)
					}
				}
				answers[q.ID] = models.ChoiceAnswer(selected...)
			}
		}
		out = append(out, Generated{
			Fingerprint: fmt.Sprintf("seed-%s-%04d", survey.ID[:8], i),
			SubmittedAt: now.Add(-time.Duration(rng.Int63n(int64(window)))).UTC(),
			Answers:     answers,
		})
	}
	return out
}

func pick(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// SeedDemo fills an empty store with the demo surveys and their synthetic
// responses. It does nothing when any survey exists.
func SeedDemo(ctx context.Context, surveys *services.SurveyService, responses *services.ResponseService, seed int64) error {
	existing, err := surveys.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		configslog.SLog.Debugf("Found %d surveys, skipping demo seed.", len(existing))
		return nil
	}

	configslog.SLog.Info("Seeding demo surveys...")
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	for _, demo := range demoSurveys() {
		survey, err := surveys.Create(ctx, demo.draft)
		if err != nil {
			return fmt.Errorf("seed %q: %w", demo.draft.Title, err)
		}

		stored := 0
		for _, g := range GenerateResponses(survey, demo.responses, rng, now) {
			if _, err := responses.SubmitAt(ctx, survey.ID, g.Fingerprint, g.Answers, g.SubmittedAt); err != nil {
				configslog.Log.Error("Demo response rejected",
					zap.String("survey_id", survey.ID),
					zap.String("fingerprint", g.Fingerprint),
					zap.Error(err),
				)
				continue
			}
			stored++
		}

		if demo.status != models.StatusDraft {
			if _, err := surveys.SetStatus(ctx, survey.ID, demo.status); err != nil {
				return fmt.Errorf("seed %q: %w", demo.draft.Title, err)
			}
		}
		configslog.SLog.Infof("Seeded survey '%s' (ID: %s) with %d responses.", survey.Title, survey.ID, stored)
	}
	return nil
}
