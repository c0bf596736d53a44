package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/logging"
	"myflex/internal/meal"
	"myflex/internal/metrics"
)

const helpText = `🍽 *MyFlex*

/assign <slot> <cook> [YYYY-MM-DD] - assign a cook
/box [week] - show a weekly box
/planbox <week> <YYYY-MM-DD> - add a box to your calendar
/reset - forget the coach conversation

Anything else goes to your nutrition coach.`

const noPlanText = "📭 No box is available yet: the dish catalog has no verified dishes."

// userErrors are the failures whose message is meant for the chat user.
var userErrors = []error{
	errUsage,
	meal.ErrUnknownTimeSlot,
	assignment.ErrInvalidRequest,
	assignment.ErrCookNotInHousehold,
	box.ErrUnknownWeek,
	box.ErrNoIdentity,
	coach.ErrEmptyMessage,
}

// formatError shows user mistakes verbatim. Anything else is logged and
// replaced by a generic message so store and model details stay private.
func formatError(err error) string {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			safe := strings.ReplaceAll(err.Error(), "`", "'")
			return fmt.Sprintf("❌ *Error:*\n```\n%s\n```", safe)
		}
	}
	logging.Error("telegram request failed", "err", err)
	return "❌ Something went wrong on our side. Please try again later."
}

func formatAssignment(res assignment.Result, cook string, date time.Time) string {
	day := date.Format("Mon 2 Jan")
	if res.Outcome == assignment.OutcomeNoMealsPlanned {
		return fmt.Sprintf("🗓 No meals planned on *%s* for that slot.", day)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "👩‍🍳 *%s* is cooking on *%s*\n\n", cook, day)
	for _, m := range res.Updated {
		fmt.Fprintf(&sb, "• %s: %s\n", m.Type, m.Name)
	}
	return sb.String()
}

func formatBox(wb box.WeeklyBox) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 *Week %d: %s*\n_%s_\n", wb.Week, wb.Title, wb.Theme)
	for _, d := range wb.Days {
		fmt.Fprintf(&sb, "\n*Day %d* (%d kcal)\n", d.Day, d.TotalCalories())
		for _, m := range d.Meals {
			fmt.Fprintf(&sb, "• %s: %s\n", m.Slot, m.Name)
		}
	}
	return sb.String()
}

func formatPlanReport(week int, start time.Time, report box.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ *Week %d planned* from %s\n%d meals added to your calendar.", week, start.Format(time.DateOnly), report.Created)
	if report.Failed > 0 {
		fmt.Fprintf(&sb, "\n⚠️ %d meals could not be saved.", report.Failed)
	}
	return sb.String()
}

func formatReply(reply coach.Reply) string {
	if reply.Kind != coach.KindStructuredPlan || reply.Plan == nil {
		return reply.Text
	}

	var sb strings.Builder
	if reply.Text != "" {
		sb.WriteString(reply.Text)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "📅 *%s*\n", reply.Plan.Title)
	if reply.Plan.Summary != "" {
		fmt.Fprintf(&sb, "_%s_\n", reply.Plan.Summary)
	}
	sb.WriteString("\n")
	for _, m := range reply.Plan.Meals {
		fmt.Fprintf(&sb, "*%s* %s: %s", m.Day, m.Type, m.Name)
		if m.Calories > 0 {
			fmt.Fprintf(&sb, " (%d kcal)", m.Calories)
		}
		sb.WriteString("\n")
		if m.Notes != "" {
			fmt.Fprintf(&sb, "_%s_\n", m.Notes)
		}
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Database: %s\n", health.DatabaseSize)
	fmt.Fprintf(&sb, "• Logs: %s\n", health.LogSize)
	return sb.String()
}
