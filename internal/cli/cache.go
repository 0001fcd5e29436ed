package cli

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached response",
	RunE:  runCachePurge,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many responses are cached",
	RunE:  runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCacheApp() (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, AppOptions{})
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	app, err := openCacheApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Cache == nil {
		cmd.Println("Response cache is disabled.")
		return nil
	}

	n, err := app.Cache.Purge(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d cached response(s).\n", n)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	app, err := openCacheApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Cache == nil {
		cmd.Println("Response cache is disabled.")
		return nil
	}

	n, err := app.Cache.Len(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Entries: %d\n", n)
	cmd.Printf("TTL: %s\n", app.Cache.TTL())
	cmd.Printf("Path: %s\n", app.Config.Cache.Path)
	return nil
}
