package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
	"github.com/perpetuallyhorni/tikresolve/pkg/client"
	"github.com/perpetuallyhorni/tikresolve/pkg/storage/sqlite"
	"github.com/perpetuallyhorni/tikresolve/tools/tikresolve/internal/cli"
	cliconfig "github.com/perpetuallyhorni/tikresolve/tools/tikresolve/internal/config"
	"github.com/spf13/cobra"
)

var (
	// cfg stores the application configuration.
	cfg *cliconfig.Config
	// appClient resolves targets.
	appClient *client.Client
	// console is the CLI console for output.
	console *cli.Console
	// fileLogger is the logger for writing logs to a file.
	fileLogger *log.Logger
	// database records resolutions.
	database *sqlite.DB
	// flagConfigPath is the path to the config file.
	flagConfigPath string
	// flagQuiet enables or disables quiet mode.
	flagQuiet bool
	// version is set at build time.
	version string
)

// SetVersion sets the version of the application.
func SetVersion(v string) {
	version = v
	if rootCmd != nil {
		rootCmd.Version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "tikresolve [command|targets...]",
	Short: "Resolve TikTok posts into direct media links.",
	Long: `Resolve TikTok posts into direct media links and metadata.

Run 'tikresolve [targets...]' to resolve posts or use a specific command.
Targets can be post URLs, short links, short-link tokens or numeric post IDs.
For example:
  tikresolve https://www.tiktok.com/@some_user/video/7312345678901234567
  tikresolve https://vt.tiktok.com/ZSabc123/ --audio-only
  tikresolve history --limit 10`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isLightweight(cmd) {
			return nil
		}

		targets := args
		cleanLogs, _ := cmd.Flags().GetBool("clean-logs")

		var err error
		fileLogger, err = setupFileLogger(cleanLogs, targets)
		if err != nil {
			return fmt.Errorf("failed to set up file logger: %w", err)
		}

		// If debug is enabled, write to both file and stderr.
		if val, _ := cmd.Flags().GetBool("debug"); val {
			mw := io.MultiWriter(fileLogger.Writer(), os.Stderr)
			fileLogger.SetOutput(mw)
			tikresolve.Debug = true
		}

		database, err = sqlite.New(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}

		appClient, err = client.New(&cfg.Config, database, fileLogger)
		if err != nil {
			return fmt.Errorf("error creating client: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if database != nil {
			return database.Close()
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runResolve(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// isLightweight reports whether cmd runs without the client and database.
func isLightweight(cmd *cobra.Command) bool {
	lightweightCommands := []string{"completion", "edit", "help"}
	for c := cmd; c != nil; c = c.Parent() {
		for _, lwCmd := range lightweightCommands {
			if c.Name() == lwCmd {
				return true
			}
		}
	}
	return false
}

func init() {
	console = cli.New(false)

	cobra.OnInitialize(func() {
		if val, err := rootCmd.Flags().GetBool("quiet"); err == nil && val {
			flagQuiet = true
			console = cli.New(true)
		}

		var err error
		cfg, err = cliconfig.Load(flagConfigPath)
		if err != nil {
			console.Error("Error loading config: %v", err)
			os.Exit(1)
		}

		applyFlagOverrides(rootCmd, cfg)
	})

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode, no console output except for errors")
	rootCmd.PersistentFlags().Bool("debug", false, "Log debug info to stderr and log file")
	rootCmd.PersistentFlags().Bool("clean-logs", false, "Redact sensitive info (post IDs, handles, cookies) from log files")

	// Resolution flags
	rootCmd.PersistentFlags().Bool("audio-only", false, "Resolve the audio track instead of the video. Overrides config.")
	rootCmd.PersistentFlags().Bool("full-audio", false, "Use the post's original sound for audio. Overrides config.")
	rootCmd.PersistentFlags().Bool("h265", false, "Prefer H.265 video variants. Overrides config.")
	rootCmd.PersistentFlags().Bool("always-proxy", false, "Route gallery photos through the stream proxy. Overrides config.")
	rootCmd.PersistentFlags().IntP("workers", "w", 0, "Number of concurrent resolutions (overrides config)")

	// Network flags
	rootCmd.PersistentFlags().String("bind", "", "Outbound IP address or interface to bind to (overrides config)")
	rootCmd.PersistentFlags().String("timeout", "", `Per-request timeout, e.g. "20s". Overrides config.`)

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(editCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}
