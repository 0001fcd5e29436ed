package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/harun/roundtable/pkg/health"
	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("backend is not healthy")

var healthPull bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backend and the models the personas need",
	Long: `Check the generation backend, check that every persona model is installed
and report on the response cache and performance log. With --pull, missing
models are fetched when the backend supports it.`,
	RunE: runHealthCmd,
}

func init() {
	healthCmd.Flags().BoolVar(&healthPull, "pull", false, "pull missing models")
	rootCmd.AddCommand(healthCmd)
}

func runHealthCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := NewApp(cfg, AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	_, err = runHealth(cmd.Context(), app, healthPull, cmd.OutOrStdout())
	return err
}

// runHealth prints a health report for the models the roster needs
func runHealth(ctx context.Context, app *App, pull bool, out io.Writer) (health.Report, error) {
	if app.Health == nil {
		return health.Report{}, fmt.Errorf("backend %s cannot report health", app.Generator.Provider())
	}

	required := []string{app.Config.Personas.DefaultModel}
	if roster, err := app.Roster(ctx); err != nil {
		app.Log.Warn().Err(err).Msg("Checking the default model only")
	} else {
		required = roster.Models()
	}

	report := app.Health.Report(ctx, required)
	if pull && len(report.Missing()) > 0 {
		fmt.Fprintf(out, "Pulling %d missing model(s)...\n", len(report.Missing()))
		if err := app.Health.Pull(ctx, report.Missing()); err != nil {
			fmt.Fprintln(out, renderHealth(report))
			return report, err
		}
		report = app.Health.Report(ctx, required)
	}

	fmt.Fprintln(out, renderHealth(report))
	if !report.Healthy() {
		return report, errUnhealthy
	}
	return report, nil
}

func renderHealth(r health.Report) string {
	st := newStyles()
	mark := func(ok bool) string {
		if ok {
			return st.ok.Render("ok")
		}
		return st.warning.Render("unavailable")
	}

	lines := []string{
		st.title.Render("Health report " + r.CheckedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("  backend:         %s", mark(r.BackendUp)),
		fmt.Sprintf("  response cache:  %s", mark(r.CacheReady)),
		fmt.Sprintf("  performance log: %s", mark(r.PerfLogReady)),
	}

	models := make([]string, 0, len(r.Models))
	for model := range r.Models {
		models = append(models, model)
	}
	sort.Strings(models)

	lines = append(lines, st.section.Render(st.title.Render("Models")))
	if len(models) == 0 {
		lines = append(lines, st.empty.Render("  none required"))
	}
	for _, model := range models {
		lines = append(lines, fmt.Sprintf("  %s %s", st.detail.Render(model), mark(r.Models[model])))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
