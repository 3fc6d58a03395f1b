package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/parts_viewer/pkg/export"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/session"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
	"github.com/Dicklesworthstone/parts_viewer/pkg/watcher"
)

type listOptions struct {
	filter    string
	mode      string
	json      bool
	expandAll bool
	watch     bool
}

var listOpts listOptions

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "Print the grouped parts tree",
	GroupID: "parts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		text := export.TextOptions{Width: export.DefaultWidth}
		if out == os.Stdout {
			text = export.TerminalOptions(os.Stdout)
		}

		scfg, err := session.FromConfig(cfg)
		if err != nil {
			return err
		}
		if listOpts.mode != "" {
			if scfg.FilterMode, err = view.ParseFilterMode(listOpts.mode); err != nil {
				return err
			}
		}
		src, err := loader.FromConfig(ctx, cfg.Source, logger)
		if err != nil {
			return err
		}
		defer src.Close()

		if !listOpts.watch {
			return renderList(ctx, out, src, scfg, listOpts, text)
		}
		return watchList(ctx, out, src, scfg, text)
	},
}

func init() {
	listCmd.Flags().StringVarP(&listOpts.filter, "filter", "f", "", "filter text")
	listCmd.Flags().StringVarP(&listOpts.mode, "mode", "m", "", "filter mode: substring, fuzzy or expr (default from config)")
	listCmd.Flags().BoolVar(&listOpts.json, "json", false, "output as JSON")
	listCmd.Flags().BoolVar(&listOpts.expandAll, "expand-all", false, "list the contents of every group")
	listCmd.Flags().BoolVarP(&listOpts.watch, "watch", "w", false, "re-print whenever the source file changes")
}

// renderList runs one session over src and prints its tree.
func renderList(ctx context.Context, w io.Writer, src loader.Fetcher, scfg session.Config, opts listOptions, text export.TextOptions) error {
	s, err := session.New(ctx, src, scfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Wait(ctx); err != nil {
		return err
	}
	s.SetFilter(opts.filter)
	if err := s.View().FilterErr(); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	if opts.json {
		return export.WriteJSON(w, s.Root(), opts.filter)
	}
	text.ExpandAll = opts.expandAll
	return export.WriteText(w, s.Root(), s.Expansion(), text)
}

// watchList prints once, then again after every change to the source file.
// Each print uses a fresh session, so each one fetches exactly once.
func watchList(ctx context.Context, w io.Writer, src loader.Fetcher, scfg session.Config, text export.TextOptions) error {
	path, err := watcher.SourcePath(cfg.Source)
	if err != nil {
		return err
	}
	wt, err := watcher.New(path, watcher.WithLogger(logger))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	changes := make(chan struct{}, 1)

	g.Go(func() error {
		return wt.Run(gctx, func(context.Context) error {
			select {
			case changes <- struct{}{}:
			default:
			}
			return nil
		})
	})

	g.Go(func() error {
		render := func() {
			fmt.Fprintf(w, "── %s · %s\n", path, time.Now().Format("15:04:05"))
			if err := renderList(gctx, w, src, scfg, listOpts, text); err != nil && gctx.Err() == nil {
				logger.Warn("list failed", zap.Error(err))
				fmt.Fprintf(w, "error: %v\n", err)
			}
		}
		render()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-changes:
				render()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
