package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skarllot/flow-pair/pkg/flows"
	"github.com/skarllot/flow-pair/pkg/history"
	"github.com/skarllot/flow-pair/pkg/seed"
	"github.com/skarllot/flow-pair/pkg/watch"
)

// ReviewReport is the output of the review command.
type ReviewReport struct {
	Run      string                `json:"run" yaml:"run"`
	Comments []flows.ReviewComment `json:"comments" yaml:"comments"`
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review the uncommitted changes of the project",
	Long: `Reviews the git diff of the project from several angles in parallel and prints
the collected comments. With --watch the review runs again whenever a file changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("base")
		format, _ := cmd.Flags().GetString("format")
		watching, _ := cmd.Flags().GetBool("watch")

		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if watching {
			return reviewOnChange(cmd, e, base, format)
		}

		defer e.Close()
		return review(cmd.Context(), e, base, format, cmd.OutOrStdout())
	},
}

func init() {
	reviewCmd.Flags().String("base", "", "Revision to diff against (default HEAD)")
	reviewCmd.Flags().String("format", history.FormatYAML, "Report format: yaml or json")
	reviewCmd.Flags().Bool("watch", false, "Review again whenever a project file changes")
	rootCmd.AddCommand(reviewCmd)
}

func review(ctx context.Context, e *env, base, format string, w io.Writer) error {
	messages, err := seed.NewBuilder(e.dir).Review(ctx, base)
	if err != nil {
		return err
	}

	result, err := e.runner("review").Run(ctx, flows.ReviewScript(e.cfg.SystemPrompt), messages)
	if err != nil {
		return err
	}

	comments, err := flows.ReviewResult(result.Workspace)
	if err != nil {
		return err
	}
	return history.WriteReport(w, format, ReviewReport{Run: result.Name, Comments: comments})
}

// reviewOnChange reviews once, then again on every batch of changes until interrupted.
// A change to the config file reloads it first. It takes ownership of e.
func reviewOnChange(cmd *cobra.Command, e *env, base, format string) error {
	defer func() { e.Close() }()

	ctx := cmd.Context()
	configPath, err := filepath.Abs(e.configPath)
	if err != nil {
		return err
	}

	changes, err := watch.Watch(ctx, watch.DefaultDebounce, e.dir, configPath)
	if err != nil {
		return err
	}

	runOnce := func() {
		err := review(ctx, e, base, format, cmd.OutOrStdout())
		switch {
		case errors.Is(err, seed.ErrNoChanges):
			slog.Info("Nothing to review")
		case err != nil:
			slog.Error("Review failed", "error", err)
		}
	}

	runOnce()
	for batch := range changes {
		historyPath, _ := filepath.Abs(e.cfg.History.Path)
		batch = slices.DeleteFunc(batch, func(name string) bool {
			return name == historyPath || strings.HasPrefix(name, historyPath+string(filepath.Separator))
		})
		if len(batch) == 0 {
			continue
		}
		if slices.Contains(batch, configPath) {
			next, err := loadEnv(cmd)
			if err != nil {
				slog.Error("Config reload failed, keeping the previous one", "error", err)
			} else {
				e.Close()
				e = next
				slog.Info("Configuration reloaded", "config", configPath)
			}
		}
		fmt.Fprintln(cmd.ErrOrStderr())
		runOnce()
	}
	return nil
}
