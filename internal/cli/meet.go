package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/roundtable/internal/tracing"
	"github.com/harun/roundtable/pkg/meeting"
	"github.com/spf13/cobra"
)

var (
	meetTitle   string
	meetAgenda  string
	meetRounds  int
	meetBatch   bool
	meetChoices []int
)

var meetCmd = &cobra.Command{
	Use:   "meet",
	Short: "Hold a meeting between the configured personas",
	Long: `Hold one meeting: preparation, discussion rounds, a final review and a vote.
You are asked to frame the meeting and to cast the deciding vote unless --batch is set.`,
	RunE: runMeet,
}

func init() {
	meetCmd.Flags().StringVar(&meetTitle, "title", "", "meeting title")
	meetCmd.Flags().StringVar(&meetAgenda, "agenda", "", "meeting agenda")
	meetCmd.Flags().IntVar(&meetRounds, "rounds", 0, "discussion rounds (default from config)")
	meetCmd.Flags().BoolVar(&meetBatch, "batch", false, "run without prompting, taking the first option at every question")
	meetCmd.Flags().IntSliceVar(&meetChoices, "choice", nil, "scripted 1-based answers for --batch, 0 exits")
	_ = meetCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(meetCmd)
}

func runMeet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if meetRounds > 0 {
		cfg.Meeting.MaxRounds = meetRounds
	}

	app, err := NewApp(cfg, AppOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Metrics.Tracing {
		if err := tracing.InitOpenTelemetry("roundtable"); err != nil {
			app.Log.Warn().Err(err).Msg("Tracing disabled")
		}
		defer tracing.ShutdownOpenTelemetry(context.Background())
	}

	var decider meeting.Decider = NewConsoleDecider(cmd.InOrStdin(), cmd.OutOrStdout())
	if meetBatch {
		decider = meeting.NewScriptedDecider(meetChoices)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = holdMeeting(ctx, app, meetTitle, meetAgenda, decider, cmd.OutOrStdout())
	return err
}

// holdMeeting runs one meeting over the current roster and prints its outcome
func holdMeeting(ctx context.Context, app *App, title, agenda string, decider meeting.Decider, out io.Writer) (*meeting.Outcome, error) {
	roster, err := app.Roster(ctx)
	if err != nil {
		return nil, err
	}

	m, err := meeting.New(app.MeetingConfig(title, agenda, roster, decider))
	if err != nil {
		return nil, err
	}

	st := newStyles()
	fmt.Fprintln(out, st.title.Render(fmt.Sprintf("Meeting %s: %s", m.ID(), title)))
	fmt.Fprintln(out, st.header.Render(fmt.Sprintf("%d personas, up to %d rounds", roster.Len(), app.Config.Meeting.MaxRounds)))

	outcome, err := m.Run(ctx)
	app.Metrics.ObserveMeeting(string(m.State()))
	if err != nil {
		return outcome, err
	}

	fmt.Fprintln(out, renderOutcome(outcome, roster))
	fmt.Fprintln(out, st.section.Render(app.Monitor.Report()))
	return outcome, nil
}
