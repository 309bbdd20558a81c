package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skarllot/flow-pair/pkg/flows"
	"github.com/skarllot/flow-pair/pkg/history"
	"github.com/skarllot/flow-pair/pkg/seed"
)

var (
	// ErrTestFileExists is returned by --write when the generated path is taken.
	ErrTestFileExists = errors.New("test file already exists")
	// ErrOutsideProject is returned for a target that is not below the project directory.
	ErrOutsideProject = errors.New("file is outside the project directory")
)

var testCmd = &cobra.Command{
	Use:   "test <file>",
	Short: "Write unit tests for a source file",
	Long: `Asks the model to study a source file of the project and write a test file for it.
The result is printed, or written into the project with --write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := testOptions{}
		opts.write, _ = cmd.Flags().GetBool("write")
		opts.force, _ = cmd.Flags().GetBool("force")
		opts.format, _ = cmd.Flags().GetString("format")

		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		return generateTests(cmd.Context(), e, args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	testCmd.Flags().Bool("write", false, "Write the test file into the project")
	testCmd.Flags().Bool("force", false, "With --write, overwrite an existing file")
	testCmd.Flags().String("format", history.FormatYAML, "Report format when not writing: yaml or json")
	rootCmd.AddCommand(testCmd)
}

type testOptions struct {
	write  bool
	force  bool
	format string
}

func generateTests(ctx context.Context, e *env, target string, opts testOptions, w io.Writer) error {
	if filepath.IsAbs(target) {
		root, err := filepath.Abs(e.dir)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, target)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrOutsideProject, target)
		}
		target = rel
	}
	target = filepath.Clean(target)
	if target == ".." || strings.HasPrefix(target, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideProject, target)
	}

	messages, err := seed.NewBuilder(e.dir).TestGen(target)
	if err != nil {
		return err
	}

	result, err := e.runner("test").Run(ctx, flows.TestGenScript(filepath.ToSlash(target), e.cfg.SystemPrompt), messages)
	if err != nil {
		return err
	}

	file, err := flows.TestGenResult(result.Workspace)
	if err != nil {
		return err
	}

	if !opts.write {
		return history.WriteReport(w, opts.format, file)
	}

	dest := filepath.Join(e.dir, filepath.FromSlash(file.Path))
	if _, err := os.Stat(dest); err == nil && !opts.force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrTestFileExists, file.Path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, []byte(file.Code), 0644); err != nil {
		return err
	}
	slog.Info("Test file written", "path", file.Path, "run", result.Name)
	fmt.Fprintln(w, file.Path)
	return nil
}
