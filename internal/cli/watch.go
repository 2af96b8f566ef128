package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) newWatchCmd() *cobra.Command {
	var groupFlag string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run cfg watch and cpg watch together until interrupted",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			group, err := a.group(groupFlag)
			if err != nil {
				return err
			}
			out := &syncWriter{w: cmd.OutOrStdout()}
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ignoreCancel(a.watchCfg(ctx, out)) })
			g.Go(func() error { return ignoreCancel(a.watchCpg(ctx, out, group)) })
			return g.Wait()
		}),
	}
	cmd.Flags().StringVar(&groupFlag, "group", "", "group name (default: cpg.group)")
	return cmd
}
