package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maruel/scenedata/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [subdir]",
		Short: "Log snapshot changes until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			prefix := ""
			if len(args) == 1 {
				prefix = strings.Trim(args[0], "/")
			}
			w, err := watch.New(s.DataDir(), a.logger)
			if err != nil {
				return err
			}
			defer func() { _ = w.Close() }()
			ctx := cmd.Context()
			a.logger.InfoContext(ctx, "Watching", "dir", s.DataDir(), "subdir", prefix)
			err = w.Run(ctx, func(ev watch.Event) {
				if prefix != "" && ev.Subdir != prefix && !strings.HasPrefix(ev.Subdir, prefix+"/") {
					return
				}
				a.logger.InfoContext(ctx, "Snapshot "+ev.Op.String(), "subdir", ev.Subdir, "type", ev.Name)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
