// Package telegram lets household members assign cooks, browse boxes and
// talk to the coach from a Telegram chat.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/config"
	"myflex/internal/household"
	"myflex/internal/logging"
	"myflex/internal/meal"
	"myflex/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// chatHistory is the number of coach turns remembered per chat.
const chatHistory = 20

// errUsage marks a malformed command; its message is shown to the user.
var errUsage = errors.New("usage")

// Service is the application surface the bot uses.
type Service interface {
	Profile(ctx context.Context, id string) (*household.UserProfile, error)
	Location() *time.Location
	AssignCook(ctx context.Context, req assignment.Request) (assignment.Result, error)
	Boxes(ctx context.Context) ([]box.WeeklyBox, error)
	PlanBox(ctx context.Context, householdID string, week int, start time.Time) (box.Report, error)
	Ask(ctx context.Context, q coach.Question) (coach.Reply, error)
	DailyUsage(days int) ([]metrics.DailyUsage, error)
	Health() metrics.SysHealth
}

// Sender delivers messages to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot handles webhook updates from mapped household members.
type Bot struct {
	sender  Sender
	svc     Service
	users   map[int64]string
	adminID int64
	now     func() time.Time

	mu      sync.Mutex
	history map[int64][]coach.Message
}

// NewBot connects to the Telegram API and registers the webhook when one is
// configured.
func NewBot(cfg *config.Config, svc Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logging.Info("telegram authorized", "account", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		logging.Info("telegram webhook set", "description", resp.Description)
	}

	return newBot(api, svc, cfg.TelegramUsers, cfg.AdminTelegramID), nil
}

func newBot(sender Sender, svc Service, users map[int64]string, adminID int64) *Bot {
	return &Bot{
		sender:  sender,
		svc:     svc,
		users:   users,
		adminID: adminID,
		now:     time.Now,
		history: make(map[int64][]coach.Message),
	}
}

// ServeHTTP accepts a webhook update. Messages are processed in the
// background so Telegram gets its acknowledgement immediately.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logging.Warn("failed to parse telegram update", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if _, ok := b.users[msg.From.ID]; !ok {
		logging.Warn("unauthorized telegram access attempt", "telegram_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		b.processMessage(ctx, msg)
	}()
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	requester, err := b.svc.Profile(ctx, b.users[msg.From.ID])
	if err != nil {
		b.reply(chatID, formatError(fmt.Errorf("load requester for telegram id %d: %w", msg.From.ID, err)))
		return
	}
	if requester == nil {
		b.reply(chatID, "⛔ *Access Denied*: your account is not linked to a profile.")
		return
	}

	cmd, args := parseCommand(msg.Text)
	switch cmd {
	case "assign":
		b.handleAssign(ctx, chatID, requester, args)
	case "box":
		b.handleBox(ctx, chatID, args)
	case "planbox":
		b.handlePlanBox(ctx, chatID, requester, args)
	case "metrics":
		b.handleMetrics(chatID, msg.From.ID)
	case "reset":
		b.resetHistory(chatID)
		b.reply(chatID, "🧹 Conversation cleared.")
	case "start", "help":
		b.reply(chatID, helpText)
	default:
		b.handleCoach(ctx, chatID, requester, msg.Text)
	}
}

// parseCommand splits "/cmd@bot a b" into "cmd" and its arguments. Plain
// text yields an empty command.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

// parseAssignArgs reads "<slot> <cook name...> [YYYY-MM-DD]". The date
// defaults to today.
func parseAssignArgs(args []string, loc *time.Location, now time.Time) (meal.TimeSlot, string, time.Time, error) {
	if len(args) < 2 {
		return "", "", time.Time{}, fmt.Errorf("%w: /assign <slot> <cook> [YYYY-MM-DD]", errUsage)
	}
	slot, err := meal.ParseTimeSlot(args[0])
	if err != nil {
		return "", "", time.Time{}, err
	}

	date := now.In(loc)
	rest := args[1:]
	if len(rest) > 1 {
		if d, err := meal.ParseDate(rest[len(rest)-1], loc); err == nil {
			date = d
			rest = rest[:len(rest)-1]
		}
	}
	return slot, strings.Join(rest, " "), date, nil
}

func (b *Bot) handleAssign(ctx context.Context, chatID int64, requester *household.UserProfile, args []string) {
	slot, cook, date, err := parseAssignArgs(args, b.svc.Location(), b.now())
	if err != nil {
		b.reply(chatID, formatError(err))
		return
	}

	res, err := b.svc.AssignCook(ctx, assignment.Request{
		HouseholdID: household.EffectiveChefID(*requester),
		Date:        date,
		Slot:        slot,
		CookName:    cook,
	})
	if err != nil {
		b.reply(chatID, formatError(err))
		return
	}
	b.reply(chatID, formatAssignment(res, cook, date))
}

func (b *Bot) handleBox(ctx context.Context, chatID int64, args []string) {
	week := 1
	if len(args) > 0 {
		w, err := strconv.Atoi(args[0])
		if err != nil {
			b.reply(chatID, formatError(fmt.Errorf("%w: /box [1-4]", errUsage)))
			return
		}
		week = w
	}
	if week < 1 || week > box.Weeks {
		b.reply(chatID, formatError(fmt.Errorf("%w: %d", box.ErrUnknownWeek, week)))
		return
	}

	boxes, err := b.svc.Boxes(ctx)
	if errors.Is(err, box.ErrNoPlanAvailable) {
		b.reply(chatID, noPlanText)
		return
	}
	if err != nil {
		b.reply(chatID, formatError(err))
		return
	}
	b.reply(chatID, formatBox(boxes[week-1]))
}

func (b *Bot) handlePlanBox(ctx context.Context, chatID int64, requester *household.UserProfile, args []string) {
	if len(args) != 2 {
		b.reply(chatID, formatError(fmt.Errorf("%w: /planbox <week> <YYYY-MM-DD>", errUsage)))
		return
	}
	week, err := strconv.Atoi(args[0])
	if err != nil {
		b.reply(chatID, formatError(fmt.Errorf("%w: /planbox <week> <YYYY-MM-DD>", errUsage)))
		return
	}
	start, err := meal.ParseDate(args[1], b.svc.Location())
	if err != nil {
		b.reply(chatID, formatError(fmt.Errorf("%w: dates look like 2025-03-17", errUsage)))
		return
	}

	report, err := b.svc.PlanBox(ctx, household.EffectiveChefID(*requester), week, start)
	switch {
	case errors.Is(err, box.ErrNoPlanAvailable):
		b.reply(chatID, noPlanText)
	case err != nil && !errors.Is(err, box.ErrPartialPlan):
		b.reply(chatID, formatError(err))
	default:
		b.reply(chatID, formatPlanReport(week, start, report))
	}
}

func (b *Bot) handleMetrics(chatID, fromID int64) {
	if b.adminID == 0 || fromID != b.adminID {
		b.reply(chatID, "⛔ *Access Denied*: Admin only.")
		return
	}
	usage, err := b.svc.DailyUsage(7)
	if err != nil {
		logging.Error("failed to load usage", "err", err)
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetrics(usage, b.svc.Health()))
}

func (b *Bot) handleCoach(ctx context.Context, chatID int64, requester *household.UserProfile, text string) {
	history := b.historyOf(chatID)
	reply, err := b.svc.Ask(ctx, coach.Question{
		Profile: *requester,
		Message: text,
		History: history,
	})
	if err != nil {
		b.reply(chatID, formatError(fmt.Errorf("coach for %s: %w", requester.ID, err)))
		return
	}
	b.remember(chatID, coach.Message{Role: "user", Text: text}, coach.Message{Role: "coach", Text: reply.Text})
	b.reply(chatID, formatReply(reply))
}

func (b *Bot) historyOf(chatID int64) []coach.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]coach.Message(nil), b.history[chatID]...)
}

func (b *Bot) remember(chatID int64, msgs ...coach.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := append(b.history[chatID], msgs...)
	if len(h) > chatHistory {
		h = h[len(h)-chatHistory:]
	}
	b.history[chatID] = h
}

func (b *Bot) resetHistory(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, chatID)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(msg); err != nil {
		logging.Warn("failed to send telegram message", "chat", chatID, "err", err)
	}
}
