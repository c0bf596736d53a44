package coach

import (
	"encoding/json"
	"strings"
)

// planFence opens the block the model uses for a structured suggestion.
const planFence = "```json-meal-plan"

// Kind distinguishes plain advice from a reply carrying a meal plan.
type Kind string

const (
	KindProse          Kind = "prose"
	KindStructuredPlan Kind = "structured_plan"
)

// PlannedMeal is one meal of a suggested plan.
type PlannedMeal struct {
	Day      string `json:"day"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Calories int    `json:"calories,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// PlanSuggestion is the payload of a json-meal-plan block.
type PlanSuggestion struct {
	Title   string        `json:"title"`
	Summary string        `json:"summary,omitempty"`
	Meals   []PlannedMeal `json:"meals"`
}

// Reply is a parsed coach answer. For KindStructuredPlan, Text holds the
// prose around the block and Plan the decoded suggestion.
type Reply struct {
	Kind Kind            `json:"kind"`
	Text string          `json:"text"`
	Plan *PlanSuggestion `json:"plan,omitempty"`
}

// ParseReply extracts a json-meal-plan block from a model response. A
// missing or unterminated block, invalid JSON and a plan without meals all
// yield a prose reply carrying the whole response.
func ParseReply(text string) Reply {
	prose := Reply{Kind: KindProse, Text: strings.TrimSpace(text)}

	open := strings.Index(text, planFence)
	if open < 0 {
		return prose
	}
	body := text[open+len(planFence):]
	// The fence tag must end the line.
	nl := strings.IndexByte(body, '\n')
	if nl < 0 || strings.TrimSpace(body[:nl]) != "" {
		return prose
	}
	body = body[nl+1:]

	end := strings.Index(body, "```")
	if end < 0 {
		return prose
	}

	var plan PlanSuggestion
	if err := json.Unmarshal([]byte(body[:end]), &plan); err != nil || len(plan.Meals) == 0 {
		return prose
	}

	rest := strings.TrimSpace(text[:open]) + "\n\n" + strings.TrimSpace(body[end+3:])
	return Reply{Kind: KindStructuredPlan, Text: strings.TrimSpace(rest), Plan: &plan}
}
