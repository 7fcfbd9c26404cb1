package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/perpetuallyhorni/tikresolve/pkg/logging"
	cliconfig "github.com/perpetuallyhorni/tikresolve/tools/tikresolve/internal/config"
	"github.com/spf13/cobra"
)

// applyFlagOverrides applies command-line flag overrides to the configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *cliconfig.Config) {
	flags := cmd.PersistentFlags()
	if flags.Changed("audio-only") {
		cfg.AudioOnly, _ = flags.GetBool("audio-only")
	}
	if flags.Changed("full-audio") {
		cfg.FullAudio, _ = flags.GetBool("full-audio")
	}
	if flags.Changed("h265") {
		cfg.H265, _ = flags.GetBool("h265")
	}
	if flags.Changed("always-proxy") {
		cfg.AlwaysProxy, _ = flags.GetBool("always-proxy")
	}
	if flags.Changed("workers") {
		if val, _ := flags.GetInt("workers"); val > 0 {
			cfg.MaxWorkers = val
		}
	}
	if flags.Changed("bind") {
		cfg.BindAddress, _ = flags.GetString("bind")
	}
	if flags.Changed("timeout") {
		raw, _ := flags.GetString("timeout")
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RequestTimeout = d
		} else {
			console.Warn("Ignoring invalid --timeout %q", raw)
		}
	}
	if warning := cfg.ProxyWarning(); warning != "" {
		console.Warn("%s", warning)
	}
}

// readTargets returns args, or one target per line from r when args is just "-".
// Blank lines and lines starting with # are skipped.
func readTargets(args []string, r io.Reader) ([]string, error) {
	if len(args) != 1 || args[0] != "-" {
		return args, nil
	}
	var targets []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			targets = append(targets, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading targets: %w", err)
	}
	return targets, nil
}

// setupFileLogger sets up a file logger to log application events.
func setupFileLogger(clean bool, targets []string) (*log.Logger, error) {
	logPath, err := xdg.StateFile(filepath.Join(cliconfig.AppName, "app.log"))
	if err != nil {
		return nil, fmt.Errorf("could not get log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640) // #nosec G304 G302
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	var writer io.Writer = f
	if clean {
		writer = logging.NewRedactingWriter(f, targets)
	}

	return log.New(writer, "", log.LstdFlags), nil
}
