package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"myflex/internal/assignment"
	"myflex/internal/box"
	"myflex/internal/coach"
	"myflex/internal/database"
	"myflex/internal/meal"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	db, err := database.NewDB(ctx.Cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	fmt.Printf("Database %s is up to date.\n", db.Path)
	return nil
}

type AssignCmd struct {
	Household string `required:"" help:"Chef user ID owning the household."`
	Slot      string `required:"" help:"Time slot (breakfast, lunch, dinner, morning-lunch, morning-dinner, lunch-dinner, all-day)."`
	Cook      string `required:"" help:"Name of the cook."`
	Date      string `help:"Day to assign (YYYY-MM-DD). Defaults to today."`
}

func (c *AssignCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	slot, err := meal.ParseTimeSlot(c.Slot)
	if err != nil {
		return err
	}
	date, err := parseDay(c.Date, a.Location())
	if err != nil {
		return err
	}

	res, err := a.AssignCook(ctx, assignment.Request{
		HouseholdID: c.Household,
		Date:        date,
		Slot:        slot,
		CookName:    c.Cook,
	})
	if err != nil {
		return err
	}
	if res.Outcome == assignment.OutcomeNoMealsPlanned {
		fmt.Printf("No meals planned on %s for %s.\n", date.Format(time.DateOnly), slot)
		return nil
	}
	fmt.Printf("%s assigned to %d meals on %s:\n", c.Cook, len(res.Updated), date.Format(time.DateOnly))
	for _, m := range res.Updated {
		fmt.Printf("  %-10s %s\n", m.Type, m.Name)
	}
	return nil
}

type BoxPreviewCmd struct {
	Week int `arg:"" optional:"" default:"1" help:"Week to show (1-4)."`
}

func (c *BoxPreviewCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	if c.Week < 1 || c.Week > box.Weeks {
		return fmt.Errorf("%w: %d", box.ErrUnknownWeek, c.Week)
	}
	boxes, err := a.Boxes(ctx)
	if errors.Is(err, box.ErrNoPlanAvailable) {
		fmt.Println("No plan available: verify some dishes first.")
		return nil
	}
	if err != nil {
		return err
	}

	wb := boxes[c.Week-1]
	fmt.Printf("Week %d: %s (%s)\n", wb.Week, wb.Title, wb.Theme)
	for _, d := range wb.Days {
		fmt.Printf("\nDay %d, %d kcal\n", d.Day, d.TotalCalories())
		for _, m := range d.Meals {
			fmt.Printf("  %-10s %s\n", m.Slot, m.Name)
		}
	}
	return nil
}

type BoxPlanCmd struct {
	Week      int    `arg:"" help:"Week to plan (1-4)."`
	Household string `required:"" help:"Chef user ID owning the household."`
	Start     string `help:"First calendar day (YYYY-MM-DD). Defaults to today."`
}

func (c *BoxPlanCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	start, err := parseDay(c.Start, a.Location())
	if err != nil {
		return err
	}

	report, err := a.PlanBox(ctx, c.Household, c.Week, start)
	if err != nil && !errors.Is(err, box.ErrPartialPlan) {
		return err
	}
	fmt.Printf("Created %d cookings from %s.\n", report.Created, start.Format(time.DateOnly))
	if err != nil {
		fmt.Printf("%d cookings failed:\n", report.Failed)
		for _, e := range report.Errors {
			fmt.Printf("  %v\n", e)
		}
		return err
	}
	return nil
}

type DishImportCmd struct {
	URL string `arg:"" help:"Recipe page URL."`
}

func (c *DishImportCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	d, err := a.ImportDish(ctx, c.URL)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %q as %s (pending verification).\n", d.Name, d.ID)
	return nil
}

type DishVerifyCmd struct {
	IDs []string `arg:"" help:"Dish IDs to approve."`
}

func (c *DishVerifyCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	for _, id := range c.IDs {
		if err := a.VerifyDish(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Verified %s.\n", id)
	}
	return nil
}

type DishPendingCmd struct{}

func (c *DishPendingCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	dishes, err := a.PendingDishes(ctx)
	if err != nil {
		return err
	}
	if len(dishes) == 0 {
		fmt.Println("No dishes awaiting verification.")
		return nil
	}
	for _, d := range dishes {
		fmt.Printf("%s  %s (%s, %d kcal)\n", d.ID, d.Name, d.Category, d.Calories)
	}
	return nil
}

type CoachCmd struct {
	User    string   `required:"" help:"User ID asking the question."`
	Message []string `arg:"" help:"Question for the coach."`
}

func (c *CoachCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	p, err := a.Profile(ctx, c.User)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("unknown user %q", c.User)
	}

	reply, err := a.Ask(ctx, coach.Question{Profile: *p, Message: strings.Join(c.Message, " ")})
	if err != nil {
		return err
	}
	fmt.Println(reply.Text)
	if reply.Plan != nil {
		fmt.Printf("\n%s\n", reply.Plan.Title)
		for _, m := range reply.Plan.Meals {
			fmt.Printf("  %-10s %-10s %s\n", m.Day, m.Type, m.Name)
		}
	}
	return nil
}

type TokenIssueCmd struct {
	User string `arg:"" help:"User ID."`
}

func (c *TokenIssueCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	tok, err := a.IssueToken(ctx, c.User)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

type MetricsUsageCmd struct {
	Days int `default:"7" help:"Number of days to report."`
}

func (c *MetricsUsageCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	usage, err := a.DailyUsage(c.Days)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		fmt.Println("No usage recorded.")
	}
	for _, d := range usage {
		fmt.Printf("%s  prompt=%d completion=%d executions=%d\n", d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
	}
	h := a.Health()
	fmt.Printf("\nRAM %dMB alloc / %dMB sys, database %s, logs %s\n", h.AllocMB, h.SysMB, h.DatabaseSize, h.LogSize)
	return nil
}

type MetricsCleanupCmd struct {
	Days int `default:"30" help:"Keep records for the last N days."`
}

func (c *MetricsCleanupCmd) Run(ctx *Context) error {
	a, err := ctx.App()
	if err != nil {
		return err
	}
	affected, err := a.CleanupMetrics(c.Days)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	return meal.ParseDate(s, loc)
}
