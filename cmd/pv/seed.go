package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

var seedCount int

var seedCmd = &cobra.Command{
	Use:     "seed",
	Short:   "Fill the configured source with demo parts",
	GroupID: "parts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedCount < 1 {
			return fmt.Errorf("--count must be at least 1, got %d", seedCount)
		}
		parts := loader.DemoParts(seedCount)

		var (
			target string
			err    error
		)
		if cfg.Source.File != "" {
			target = cfg.Source.File
			err = seedFile(target, parts)
		} else {
			target = cfg.Source.Driver + " " + cfg.Source.DSN
			err = seedDatabase(cmd.Context(), parts)
		}
		if err != nil {
			return err
		}
		logger.Info("seeded demo parts", zap.Int("count", len(parts)), zap.String("target", target))
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d parts into %s\n", len(parts), target)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 50, "number of demo parts")
}

func seedDatabase(ctx context.Context, parts []model.Part) error {
	store, err := loader.Open(ctx, cfg.Source.Driver, cfg.Source.DSN,
		loader.WithConnectTimeout(cfg.Source.ConnectTimeout),
		loader.WithLogger(logger.Named("sql")),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	return store.Seed(ctx, parts)
}

func seedFile(path string, parts []model.Part) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := loader.WriteParts(f, parts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
