package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopTimeout int
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running roundtable server",
	Long: `Stop the server started with "roundtable serve" gracefully.
Sends SIGTERM to the server and waits for it to shut down.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().IntVar(&stopTimeout, "timeout", 30, "timeout in seconds to wait for the server to stop")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pidFile := getPIDFilePath(cfg.DataDir)

	if err := signalServer(pidFile, syscall.SIGTERM); err != nil {
		return err
	}

	deadline := time.Now().Add(time.Duration(stopTimeout) * time.Second)
	for time.Now().Before(deadline) {
		if !isRunning(pidFile) {
			cmd.Println("Server stopped successfully")
			os.Remove(pidFile)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	cmd.Println("Timeout reached, sending SIGKILL...")
	if err := signalServer(pidFile, syscall.SIGKILL); err != nil {
		return fmt.Errorf("force stop failed: %w", err)
	}

	os.Remove(pidFile)
	cmd.Println("Server killed")
	return nil
}
