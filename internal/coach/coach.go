// Package coach answers nutrition questions with the household's recent
// meals as context.
package coach

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"myflex/internal/household"
	"myflex/internal/llm"
	"myflex/internal/logging"
	"myflex/internal/meal"
	"myflex/internal/shared"
)

//go:embed coach_prompt.md
var coachPrompt string

var promptTmpl = template.Must(template.New("coach").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(coachPrompt))

const (
	agentName = "Coach"
	// historyDays is how far back household meals are included.
	historyDays = 14
	// maxHistory caps the chat turns replayed to the model.
	maxHistory = 10
)

// ErrEmptyMessage is returned when the question has no text.
var ErrEmptyMessage = errors.New("coach: empty message")

// Message is one turn of a conversation. Role is "user" or "coach".
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Question is a user message with its context.
type Question struct {
	Profile household.UserProfile
	Message string
	History []Message
}

// MealHistory lists a household's meals within a window.
type MealHistory interface {
	Since(ctx context.Context, householdID string, from, now time.Time) ([]meal.Meal, error)
}

// UsageRecorder persists AI usage.
type UsageRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Coach is the AI nutrition assistant.
type Coach struct {
	textGen  llm.TextGenerator
	meals    MealHistory
	recorder UsageRecorder
	now      func() time.Time
}

// New creates a Coach. recorder may be nil.
func New(textGen llm.TextGenerator, meals MealHistory, recorder UsageRecorder) *Coach {
	return &Coach{textGen: textGen, meals: meals, recorder: recorder, now: time.Now}
}

type promptMeal struct {
	Date     string
	Type     meal.Type
	Name     string
	Calories int
	CookedBy string
}

type promptData struct {
	Today     string
	Name      string
	Goals     []string
	Allergies []string
	Meals     []promptMeal
	History   []Message
	Message   string
}

// Ask sends the question to the model and parses its answer.
func (c *Coach) Ask(ctx context.Context, q Question) (Reply, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: agentName}

	msg := strings.TrimSpace(q.Message)
	if msg == "" {
		return Reply{}, meta, ErrEmptyMessage
	}

	now := c.now()
	chefID := household.EffectiveChefID(q.Profile)
	meals, err := c.meals.Since(ctx, chefID, now.AddDate(0, 0, -(historyDays-1)), now)
	if err != nil {
		return Reply{}, meta, fmt.Errorf("coach: load recent meals: %w", err)
	}

	prompt, err := buildPrompt(q, msg, meals, now)
	if err != nil {
		return Reply{}, meta, fmt.Errorf("coach: build prompt: %w", err)
	}

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return Reply{}, meta, fmt.Errorf("coach: failed to get LLM response: %w", err)
	}

	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if c.recorder != nil && !meta.Usage.Empty() {
		if err := c.recorder.RecordMeta(meta); err != nil {
			logging.Warn("failed to record coach usage", "err", err)
		}
	}

	reply := ParseReply(resp.Content)
	logging.Debug("coach replied", "user", q.Profile.ID, "kind", reply.Kind, "latency", meta.Latency)
	return reply, meta, nil
}

func buildPrompt(q Question, msg string, meals []meal.Meal, now time.Time) (string, error) {
	data := promptData{
		Today:     now.Format("Monday, 2 January 2006"),
		Name:      q.Profile.Name,
		Goals:     q.Profile.DietaryGoals,
		Allergies: q.Profile.Allergies,
		Message:   msg,
	}
	if data.Name == "" {
		data.Name = "a household member"
	}
	for _, m := range meals {
		data.Meals = append(data.Meals, promptMeal{
			Date:     m.Date.Format(time.DateOnly),
			Type:     m.Type,
			Name:     m.Name,
			Calories: m.Calories,
			CookedBy: m.CookedBy,
		})
	}
	history := q.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	data.History = history

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
