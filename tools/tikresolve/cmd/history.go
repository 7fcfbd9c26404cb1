package cmd

import (
	"fmt"
	"text/tabwriter"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
	"github.com/spf13/cobra"
)

// historyCmd lists previously resolved posts.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently resolved posts.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		records, err := appClient.History(tikresolve.Kind(kind), limit)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		if len(records) == 0 {
			console.Info("No resolutions recorded yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RESOLVED\tPOST\tAUTHOR\tKIND\tFILENAME")
		for _, rec := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				rec.ResolvedAt.Local().Format("2006-01-02 15:04:05"), rec.PostID, rec.Author, rec.Kind, rec.Filename)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show")
	historyCmd.Flags().String("kind", "", `Only show one kind ("video", "audio", "photo_gallery", "audio_gallery")`)
}
