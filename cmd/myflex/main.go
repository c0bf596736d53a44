package main

import (
	"context"
	"fmt"
	"os"

	"myflex/internal/app"
	"myflex/internal/config"
	"myflex/internal/logging"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Debug bool `help:"Log debug output to stderr."`

	Migrate MigrateCmd `cmd:"" help:"Apply database migrations."`
	Assign  AssignCmd  `cmd:"" help:"Assign a cook to the meals of a day."`
	Box     struct {
		Preview BoxPreviewCmd `cmd:"" help:"Show a generated weekly box."`
		Plan    BoxPlanCmd    `cmd:"" help:"Add a weekly box to a household calendar."`
	} `cmd:"" help:"Weekly boxes."`
	Dish struct {
		Import  DishImportCmd  `cmd:"" help:"Import a dish from a recipe page."`
		Verify  DishVerifyCmd  `cmd:"" help:"Approve a dish for weekly boxes."`
		Pending DishPendingCmd `cmd:"" help:"List dishes awaiting approval."`
	} `cmd:"" help:"Manage the dish catalog."`
	Coach CoachCmd `cmd:"" help:"Ask the nutrition coach a question."`
	Token struct {
		Issue TokenIssueCmd `cmd:"" help:"Issue a session token for a user."`
	} `cmd:"" help:"Session tokens."`
	Metrics struct {
		Usage   MetricsUsageCmd   `cmd:"" help:"Show daily AI usage."`
		Cleanup MetricsCleanupCmd `cmd:"" help:"Remove old usage records."`
	} `cmd:"" help:"AI usage metrics."`
}

// Context is passed to every command. The App is opened on first use so
// that migrate does not connect to the document store or the LLM.
type Context struct {
	context.Context
	Cfg *config.Config

	app *app.App
}

func (c *Context) App() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.Open(c, c.Cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *Context) Close() {
	if c.app == nil {
		return
	}
	if err := c.app.Close(); err != nil {
		logging.Warn("failed to close app", "err", err)
	}
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("myflex"),
		kong.Description("Household meal planning: cook assignment, weekly boxes and the nutrition coach."),
		kong.UsageOnError(),
	)

	if err := run(kctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(kctx *kong.Context) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Debug:  cfg.Debug || CLI.Debug,
		LogDir: cfg.LogDir,
		Stderr: CLI.Debug,
	}); err != nil {
		return err
	}

	appCtx := &Context{Context: context.Background(), Cfg: cfg}
	defer appCtx.Close()
	return kctx.Run(appCtx)
}
