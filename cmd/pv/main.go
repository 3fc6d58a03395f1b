// Command pv browses inventory parts grouped by model and classification.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/logging"
	"github.com/Dicklesworthstone/parts_viewer/pkg/session"
	"github.com/Dicklesworthstone/parts_viewer/pkg/ui"
)

var (
	configPath string
	sourceFlag string

	cfg      config.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "pv",
	Short:         "Browse inventory parts grouped by model and classification",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
		_ = closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&sourceFlag, "source", "", "database DSN or .jsonl file (overrides config and "+config.EnvSource+")")

	rootCmd.AddGroup(
		&cobra.Group{ID: "parts", Title: "Parts:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup loads the config, applies flag overrides and opens the log.
func setup() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if sourceFlag != "" {
		c.SetSource(sourceFlag)
		if err := c.Validate(); err != nil {
			return err
		}
	}
	cfg = c

	l, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	logger, closeLog = l, closer
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("driver", cfg.Source.Driver))
	return nil
}

// openSession opens the configured source and starts a session on it.
// The caller closes both.
func openSession(ctx context.Context, dispatch func(func())) (loader.Source, *session.Session, error) {
	scfg, err := session.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	scfg.Dispatch = dispatch

	src, err := loader.FromConfig(ctx, cfg.Source, logger)
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(ctx, src, scfg, logger)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, s, nil
}

func runTUI(ctx context.Context) error {
	d := ui.NewDispatcher()
	src, s, err := openSession(ctx, d.Dispatch)
	if err != nil {
		return err
	}
	defer src.Close()
	defer s.Close()

	m := ui.New(s, d,
		ui.WithDebounce(cfg.Filter.Debounce),
		ui.WithLogger(logger.Named("ui")),
	)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("running parts viewer: %w", err)
	}
	if fm, ok := final.(ui.Model); ok {
		return fm.Err()
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
