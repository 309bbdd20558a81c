// Package cli implements the flow-pair command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skarllot/flow-pair/pkg/config"
	"github.com/skarllot/flow-pair/pkg/history"
	"github.com/skarllot/flow-pair/pkg/llm"
	_ "github.com/skarllot/flow-pair/pkg/llm/autoload"
	"github.com/skarllot/flow-pair/pkg/monitor"
	"github.com/skarllot/flow-pair/pkg/orchestrator"
)

var rootCmd = &cobra.Command{
	Use:   "flow-pair",
	Short: "flow-pair runs multi-threaded LLM review and test-writing flows",
	Long: `flow-pair drives scripted conversations with LLM providers against a project:
it reviews the current change set from several angles, or writes tests for a file.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		monitor.SetupSlog(level)
	},
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default <user config dir>/flow-pair/config.json)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default from system.json)")
	rootCmd.PersistentFlags().String("dir", ".", "Project directory")
}

// env is what every flow command needs, built from the config files.
type env struct {
	configPath string
	dir        string
	cfg        *config.Config
	sys        *config.SystemConfig
	completer  llm.Completer
	store      history.Store
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	dir, _ := cmd.Flags().GetString("dir")

	cfg, sys, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level == "" {
		monitor.SetupSlog(sys.LogLevel)
	}

	router, err := llm.NewFromConfig(cfg.LLM, sys)
	if err != nil {
		return nil, fmt.Errorf("failed to init LLM client: %w", err)
	}

	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded", "config", path, "history", cfg.History.Driver, "dir", dir)

	return &env{
		configPath: path,
		dir:        dir,
		cfg:        cfg,
		sys:        sys,
		completer:  router,
		store:      store,
	}, nil
}

func (e *env) runner(label string) *orchestrator.Runner {
	return orchestrator.NewRunner(e.completer,
		orchestrator.WithHistory(e.store),
		orchestrator.WithProgress(monitor.NewProgressPrinter(label).OnAdvance),
	)
}

func (e *env) Close() {
	if e.store == nil {
		return
	}
	if err := e.store.Close(); err != nil {
		slog.Warn("Failed to close history store", "error", err)
	}
}
