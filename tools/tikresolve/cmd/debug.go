package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// debugCmd represents the base command for debugging tools.
var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging tools for tikresolve.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// debugDetailCmd dumps the raw detail payload of a post.
var debugDetailCmd = &cobra.Command{
	Use:   "detail [target]",
	Short: "Dump the raw video-detail payload of a post.",
	Long: `This command is for debugging. It fetches the post's detail page and prints
the embedded video-detail payload as-is, without status or classification checks.
This is useful for inspecting the data structure returned by the platform.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		console.Info("Fetching raw detail for %s...", args[0])
		raw, err := appClient.DebugDetail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get raw detail for %s: %w", args[0], err)
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(raw)
		}
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugDetailCmd)
}
