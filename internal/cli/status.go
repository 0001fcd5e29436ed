package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long:  `Show whether a roundtable server is running and for how long.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidFile := getPIDFilePath(cfg.DataDir)

	if !isRunning(pidFile) {
		cmd.Println("Status: stopped")
		return nil
	}

	pid, err := readPID(pidFile)
	if err != nil {
		return err
	}

	cmd.Println("Status: running")
	cmd.Printf("PID: %d\n", pid)
	if fileInfo, err := os.Stat(pidFile); err == nil {
		cmd.Printf("Uptime: %s\n", formatDuration(time.Since(fileInfo.ModTime())))
	}
	cmd.Printf("Metrics: http://%s/metrics\n", cfg.Metrics.Listen)

	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
