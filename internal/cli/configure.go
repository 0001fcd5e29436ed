package cli

import (
	"fmt"

	"github.com/harun/roundtable/internal/config"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Run interactive configuration wizard",
	Long: `Run an interactive configuration wizard to set up Roundtable.
The wizard will guide you through choosing a backend, API keys and the persona directory.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)

	base, err := loader.Load()
	if err != nil {
		base = config.DefaultConfig()
	}

	wizard := config.NewWizard(cmd.InOrStdin(), cmd.OutOrStdout())
	cfg, err := wizard.Run(base)
	if err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("\nConfiguration saved to: %s\n", loader.GetConfigPath())
	cmd.Println("\nYou can now hold a meeting with: roundtable meet --title <title> --agenda <agenda>")

	return nil
}
