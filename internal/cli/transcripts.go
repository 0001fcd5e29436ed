package cli

import (
	"fmt"

	"github.com/harun/roundtable/pkg/transcript"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "List and read saved meeting transcripts",
}

var transcriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved meetings",
	Args:  cobra.NoArgs,
	RunE:  runTranscriptsList,
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <meeting-id>",
	Short: "Print one meeting transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptsShow,
}

var transcriptsDeleteCmd = &cobra.Command{
	Use:   "delete <meeting-id>",
	Short: "Delete one meeting transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscriptsDelete,
}

func init() {
	transcriptsCmd.AddCommand(transcriptsListCmd)
	transcriptsCmd.AddCommand(transcriptsShowCmd)
	transcriptsCmd.AddCommand(transcriptsDeleteCmd)
	rootCmd.AddCommand(transcriptsCmd)
}

func openTranscripts() (*transcript.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return transcript.New(cfg.TranscriptDir(), zerolog.Nop())
}

func runTranscriptsList(cmd *cobra.Command, args []string) error {
	store, err := openTranscripts()
	if err != nil {
		return err
	}

	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		cmd.Println("No saved meetings.")
		return nil
	}
	for _, id := range ids {
		cmd.Println(id)
	}
	return nil
}

func runTranscriptsShow(cmd *cobra.Command, args []string) error {
	store, err := openTranscripts()
	if err != nil {
		return err
	}

	entries, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no transcript for meeting %s", args[0])
	}
	cmd.Println(renderTranscript(entries))
	return nil
}

func runTranscriptsDelete(cmd *cobra.Command, args []string) error {
	store, err := openTranscripts()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	cmd.Printf("Deleted transcript %s\n", args[0])
	return nil
}
