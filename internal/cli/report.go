package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harun/roundtable/pkg/perf"
	"github.com/spf13/cobra"
)

var reportAll bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the performance report from the last meeting",
	Long:  `Read the performance log and print the most recent snapshot, or every snapshot with --all.`,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "print every recorded session")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return printReport(cfg.Metrics.PerfLog, reportAll, cmd.OutOrStdout())
}

func printReport(path string, all bool, out io.Writer) error {
	st := newStyles()

	sessions, err := perf.ReadLogFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(sessions) == 0) {
		fmt.Fprintln(out, st.empty.Render("No performance data recorded yet."))
		return nil
	}
	if err != nil {
		return err
	}

	if !all {
		sessions = sessions[len(sessions)-1:]
	}
	for _, s := range sessions {
		fmt.Fprintln(out, st.header.Render("Session "+s.At.Format("2006-01-02 15:04:05")))
		fmt.Fprintln(out, s.Snapshot.Report())
		fmt.Fprintln(out)
	}
	return nil
}
