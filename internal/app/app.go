package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/access"
	"myflex/internal/assignment"
	"myflex/internal/auth"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/config"
	"myflex/internal/database"
	"myflex/internal/dish"
	"myflex/internal/docstore"
	"myflex/internal/household"
	"myflex/internal/llm"
	"myflex/internal/logging"
	"myflex/internal/meal"
	"myflex/internal/metrics"

	firebase "firebase.google.com/go/v4"
)

// sessionTTL is the lifetime of issued session tokens.
const sessionTTL = 30 * 24 * time.Hour

// Deps are the resources an App is assembled from.
type Deps struct {
	Store   docstore.Store
	TextGen llm.TextGenerator
	// Metrics may be nil, in which case AI usage is not recorded.
	Metrics *metrics.Store
	// Verifier authenticates API and bot requesters.
	Verifier access.Verifier
	// Tokens may be nil when session tokens are not configured.
	Tokens   *auth.TokenIssuer
	Location *time.Location
	// Storage locates the database and logs reported on by Health.
	Storage metrics.StoragePaths
}

// App holds the application's dependencies and exposes the use cases shared
// by the CLI, the HTTP API and the Telegram bot.
type App struct {
	cfg     *config.Config
	loc     *time.Location
	metrics *metrics.Store
	tokens  *auth.TokenIssuer
	storage metrics.StoragePaths
	closers []func() error

	directory    *household.Directory
	meals        *meal.Repository
	resolver     *assignment.Resolver
	dishes       *dish.Repository
	importer     *dish.Importer
	materializer *box.Materializer
	coach        *coach.Coach
	gate         *access.Gate
}

// NewApp wires the use cases over deps.
func NewApp(cfg *config.Config, deps Deps) *App {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	a := &App{
		cfg:     cfg,
		loc:     loc,
		metrics: deps.Metrics,
		tokens:  deps.Tokens,
		storage: deps.Storage,
	}

	a.directory = household.NewDirectory(deps.Store)
	a.meals = meal.NewRepository(deps.Store, loc)
	a.resolver = assignment.NewResolver(a.meals, deps.Store, a.directory, assignment.Options{
		Permissive: cfg.AssignmentPermissive,
	})
	a.dishes = dish.NewRepository(deps.Store)
	a.importer = dish.NewImporter(deps.TextGen, a.dishes)
	a.materializer = box.NewMaterializer(deps.Store, loc)

	var recorder coach.UsageRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	a.coach = coach.New(deps.TextGen, a.meals, recorder)

	verifier := deps.Verifier
	if verifier == nil {
		verifier = rejectAll{}
	}
	a.gate = access.NewGate(verifier, a.directory)
	return a
}

// Open builds an App from configuration: the SQLite database (always used
// for metrics), the configured document store, the LLM client and the
// requester verifier.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	closers = append(closers, db.Close)

	var fbApp *firebase.App
	if cfg.FirestoreProject != "" {
		fbApp, err = firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirestoreProject})
		if err != nil {
			return fail(fmt.Errorf("failed to initialize firebase: %w", err))
		}
	}

	var store docstore.Store
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		store = docstore.NewSQLite(db.SQL)
	case config.StoreMemory:
		store = docstore.NewMemory()
	case config.StoreFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to create firestore client: %w", err))
		}
		closers = append(closers, client.Close)
		store = docstore.NewFirestore(client)
	default:
		return fail(fmt.Errorf("unknown store backend %q", cfg.StoreBackend))
	}

	textGen, err := llm.New(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to create llm client: %w", err))
	}
	if c, ok := textGen.(llm.Closer); ok {
		closers = append(closers, c.Close)
	}

	var tokens *auth.TokenIssuer
	if cfg.TokenSecret != "" {
		tokens, err = auth.NewTokenIssuer(cfg.TokenSecret, sessionTTL)
		if err != nil {
			return fail(err)
		}
	}

	var verifier access.Verifier
	switch {
	case cfg.FirebaseAuth:
		if fbApp == nil {
			return fail(fmt.Errorf("FIRESTORE_PROJECT environment variable not set"))
		}
		fbAuth, err := fbApp.Auth(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to create firebase auth client: %w", err))
		}
		verifier = auth.NewFirebaseVerifier(fbAuth)
	case tokens != nil:
		verifier = tokens
	default:
		logging.Warn("no requester verification configured; protected routes will reject every request")
	}

	a := NewApp(cfg, Deps{
		Store:    store,
		TextGen:  textGen,
		Metrics:  metrics.NewStore(db.SQL),
		Verifier: verifier,
		Tokens:   tokens,
		Location: loc,
		Storage:  metrics.StoragePaths{Database: cfg.DatabasePath, LogDir: cfg.LogDir},
	})
	a.closers = closers

	logging.Info("app initialized", "store", cfg.StoreBackend, "llm", cfg.LLMProvider, "timezone", loc.String())
	return a, nil
}

// Close releases the resources opened by Open.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Location returns the time zone calendar days are computed in.
func (a *App) Location() *time.Location { return a.loc }

// Gate returns the authorization gate for requester tokens.
func (a *App) Gate() *access.Gate { return a.gate }

// Profile loads a user profile; nil when the user does not exist.
func (a *App) Profile(ctx context.Context, id string) (*household.UserProfile, error) {
	return a.directory.Profile(ctx, id)
}

// HouseholdOf resolves the household of a profile.
func (a *App) HouseholdOf(ctx context.Context, p *household.UserProfile) (household.Household, error) {
	return a.directory.HouseholdOf(ctx, p)
}

// MealsOn lists a household's meals on date's calendar day.
func (a *App) MealsOn(ctx context.Context, householdID string, date time.Time) ([]meal.Meal, error) {
	return a.meals.OnDate(ctx, householdID, date)
}

// AssignCook assigns a cook to the meals of a day.
func (a *App) AssignCook(ctx context.Context, req assignment.Request) (assignment.Result, error) {
	return a.resolver.Assign(ctx, req)
}

// Boxes generates the four weekly boxes from the verified catalog. It
// returns box.ErrNoPlanAvailable when no dish is verified.
func (a *App) Boxes(ctx context.Context) ([]box.WeeklyBox, error) {
	catalog, err := a.dishes.Verified(ctx)
	if err != nil {
		return nil, err
	}
	return box.Generate(catalog)
}

// PlanBox materializes week of the generated boxes onto the household
// calendar from start.
func (a *App) PlanBox(ctx context.Context, householdID string, week int, start time.Time) (box.Report, error) {
	if strings.TrimSpace(householdID) == "" {
		return box.Report{}, box.ErrNoIdentity
	}
	catalog, err := a.dishes.Verified(ctx)
	if err != nil {
		return box.Report{}, err
	}
	wb, err := box.Select(catalog, week)
	if err != nil {
		return box.Report{}, err
	}
	return a.materializer.Plan(ctx, box.Request{
		HouseholdID: householdID,
		StartDate:   start,
		Box:         wb,
		Catalog:     catalog,
	})
}

// Ask forwards a question to the coach.
func (a *App) Ask(ctx context.Context, q coach.Question) (coach.Reply, error) {
	reply, _, err := a.coach.Ask(ctx, q)
	return reply, err
}

// ImportDish extracts a dish from a recipe page and stores it unverified.
func (a *App) ImportDish(ctx context.Context, url string) (dish.Dish, error) {
	d, meta, err := a.importer.ImportURL(ctx, url)
	if a.metrics != nil {
		if rerr := a.metrics.RecordMeta(meta); rerr != nil {
			logging.Warn("failed to record import usage", "err", rerr)
		}
	}
	if err != nil {
		return dish.Dish{}, err
	}
	logging.Info("dish imported", "dish", d.ID, "name", d.Name, "source", url)
	return d, nil
}

// PendingDishes lists dishes awaiting moderation.
func (a *App) PendingDishes(ctx context.Context) ([]dish.Dish, error) {
	return a.dishes.Pending(ctx)
}

// VerifyDish approves a dish for box generation.
func (a *App) VerifyDish(ctx context.Context, id string) error {
	if err := a.dishes.Verify(ctx, id); err != nil {
		return err
	}
	logging.Info("dish verified", "dish", id)
	return nil
}

// IssueToken signs a session token for an existing user.
func (a *App) IssueToken(ctx context.Context, userID string) (string, error) {
	if a.tokens == nil {
		return "", auth.ErrNoSecret
	}
	p, err := a.directory.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("unknown user %q", userID)
	}
	return a.tokens.Issue(p.ID)
}

// ErrNoMetrics is returned by metric operations when no metrics store is wired.
var ErrNoMetrics = errors.New("metrics store not configured")

// DailyUsage returns AI usage totals for the last days.
func (a *App) DailyUsage(days int) ([]metrics.DailyUsage, error) {
	if a.metrics == nil {
		return nil, ErrNoMetrics
	}
	return a.metrics.GetDailyUsage(days)
}

// CleanupMetrics deletes usage records older than days.
func (a *App) CleanupMetrics(days int) (int64, error) {
	if a.metrics == nil {
		return 0, ErrNoMetrics
	}
	return a.metrics.Cleanup(days)
}

// Health reports process and data directory health.
func (a *App) Health() metrics.SysHealth {
	return metrics.GetSysHealth(a.storage)
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (string, error) {
	return "", errors.New("requester verification is not configured")
}
