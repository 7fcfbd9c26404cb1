package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
	"github.com/perpetuallyhorni/tikresolve/pkg/client"
	"github.com/perpetuallyhorni/tikresolve/pkg/pool"
	"github.com/spf13/cobra"
)

// resolveCmd represents the 'resolve' command.
var resolveCmd = &cobra.Command{
	Use:     "resolve [targets...]",
	Short:   "Resolve posts into media links and metadata (default command).",
	Aliases: []string{"r"},
	Long: `Resolves TikTok posts into direct media links, filenames and metadata.
Results are printed as JSON, one document per target.
Pass "-" to read targets from stdin, one per line.
This is the default command if you provide targets without a subcommand.`,
	RunE: runResolve,
}

// resolveOutput is what the CLI prints per target.
type resolveOutput struct {
	Target string                    `json:"target"`
	Error  tikresolve.ErrorCode      `json:"error,omitempty"`
	Result *tikresolve.ResolvedMedia `json:"result,omitempty"`
}

// runResolve resolves every target with a bounded number of workers.
func runResolve(cmd *cobra.Command, args []string) error {
	targets, err := readTargets(args, os.Stdin)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		console.Info("No targets specified. Use 'tikresolve --help' for more info.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	outputs := make([]resolveOutput, len(targets))
	var failed, done int
	var mu sync.Mutex

	console.StartProgress(fmt.Sprintf("Resolving %d target(s) with %d worker(s)...", len(targets), cfg.MaxWorkers))
	workerPool := pool.New(ctx, cfg.MaxWorkers, len(targets))
	for i, target := range targets {
		i, target := i, target // Capture for closure
		outputs[i] = resolveOutput{Target: target, Error: tikresolve.CodeFetchFail}
		workerPool.Submit(func(ctx context.Context) {
			out := resolveOne(ctx, target)
			mu.Lock()
			outputs[i] = out
			if out.Result == nil {
				failed++
			}
			done++
			console.UpdateProgress(fmt.Sprintf("Resolved %d/%d target(s)...", done, len(targets)))
			mu.Unlock()
		})
	}
	if skipped := workerPool.Stop(); skipped > 0 {
		failed += skipped
		fileLogger.Printf("WARN: %d target(s) skipped after cancellation", skipped)
	}
	console.StopProgress()

	if err := printOutputs(cmd.OutOrStdout(), outputs); err != nil {
		return err
	}
	for _, out := range outputs {
		if out.Result != nil {
			console.Success("Resolved '%s' as %s", out.Target, out.Result.Kind)
		} else {
			console.Error("Failed to resolve '%s': %s", out.Target, out.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d target(s) failed", failed, len(targets))
	}
	return nil
}

// resolveOne resolves a single target and maps failures to their error code.
func resolveOne(ctx context.Context, target string) resolveOutput {
	out := resolveOutput{Target: target}
	result, err := appClient.Resolve(ctx, target)
	if err != nil {
		out.Error = errorCode(err)
		return out
	}
	out.Result = result
	return out
}

// codeInvalidTarget reports input that is not a post URL, ID or short link.
const codeInvalidTarget tikresolve.ErrorCode = "target.invalid"

// errorCode returns the resolution code of err, or fetch.fail for anything else.
func errorCode(err error) tikresolve.ErrorCode {
	var resolveErr *tikresolve.ResolveError
	switch {
	case errors.As(err, &resolveErr):
		return resolveErr.Code
	case errors.Is(err, client.ErrInvalidTarget):
		return codeInvalidTarget
	}
	return tikresolve.CodeFetchFail
}

func printOutputs(w io.Writer, outputs []resolveOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, out := range outputs {
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("failed to encode result for %s: %w", out.Target, err)
		}
	}
	return nil
}
