package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/cfg"
	"github.com/corosync/corosync-go/pkg/corosync/loop"
)

func (a *app) newCfgCmd() *cobra.Command {
	parent := &cobra.Command{Use: "cfg", Short: "cluster configuration and administration commands"}
	parent.AddCommand(a.newCfgLocalCmd())
	parent.AddCommand(a.newCfgStatusCmd())
	parent.AddCommand(a.newCfgKillCmd())
	parent.AddCommand(a.newCfgShutdownCmd())
	parent.AddCommand(a.newCfgReopenLogsCmd())
	parent.AddCommand(a.newCfgReloadCmd())
	parent.AddCommand(a.newCfgWatchCmd())
	return parent
}

// withCfg opens a cfg handle for the duration of fn.
func (a *app) withCfg(handler cfg.Handler, fn func(h *cfg.Handle) error) error {
	h, err := cfg.Initialize(handler, cfg.WithLogger(a.log))
	if err != nil {
		return fmt.Errorf("cfg initialize: %w", err)
	}
	defer func() {
		if err := h.Finalize(); err != nil {
			a.log.Warn(context.Background(), "cfg finalize", "error", err)
		}
	}()
	return fn(h)
}

func (a *app) newCfgLocalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Print the local node id",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return a.withCfg(nil, func(h *cfg.Handle) error {
				id, err := h.LocalGet()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "local node: %s\n", id)
				return err
			})
		}),
	}
}

func (a *app) newCfgStatusCmd() *cobra.Command {
	var node uint32
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a node and its links",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return a.withCfg(nil, func(h *cfg.Handle) error {
				id := corosync.NodeID(node)
				if id == 0 {
					local, err := h.LocalGet()
					if err != nil {
						return err
					}
					id = local
				}
				st, err := h.NodeStatusGet(id, cfg.NodeStatusV1)
				if err != nil {
					return err
				}
				return printNodeStatus(cmd.OutOrStdout(), st)
			})
		}),
	}
	cmd.Flags().Uint32Var(&node, "node", 0, "node id (default: local node)")
	return cmd
}

func printNodeStatus(w io.Writer, st cfg.NodeStatus) error {
	if _, err := fmt.Fprintf(w, "node %s: reachable=%t remote=%t external=%t onwire=%d (%d..%d)\n",
		st.NodeID, st.Reachable, st.Remote, st.External, st.OnwireVer, st.OnwireMin, st.OnwireMax); err != nil {
		return err
	}
	for i, l := range st.LinkStatus {
		if !l.Enabled {
			continue
		}
		if _, err := fmt.Fprintf(w, "  link %d: connected=%t dynconnected=%t mtu=%d src=%s dst=%s\n",
			i, l.Connected, l.DynConnected, l.MTU, l.SrcIPAddr, l.DstIPAddr); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) newCfgKillCmd() *cobra.Command {
	var (
		node   uint32
		reason string
	)
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Ask a node to leave the cluster",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			if node == 0 {
				return fmt.Errorf("missing required flag: --node")
			}
			return a.withCfg(nil, func(h *cfg.Handle) error {
				if err := h.KillNode(corosync.NodeID(node), reason); err != nil {
					return err
				}
				a.log.Info(ctx, "kill requested", "node", node)
				return nil
			})
		}),
	}
	cmd.Flags().Uint32Var(&node, "node", 0, "node id to kill (required)")
	cmd.Flags().StringVar(&reason, "reason", "killed by corosyncctl", "reason logged by the daemon")
	return cmd
}

func (a *app) newCfgShutdownCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Shut down corosync on the local node",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			flags, err := cfg.ParseShutdownFlags(mode)
			if err != nil {
				return err
			}
			return a.withCfg(nil, func(h *cfg.Handle) error {
				if err := h.TryShutdown(flags); err != nil {
					return err
				}
				a.log.Info(ctx, "shutdown requested", "mode", flags.String())
				return nil
			})
		}),
	}
	cmd.Flags().StringVar(&mode, "mode", "request", "shutdown mode: request|regardless|immediate")
	return cmd
}

func (a *app) newCfgReopenLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen-logs",
		Short: "Ask the local daemon to reopen its log files",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return a.withCfg(nil, func(h *cfg.Handle) error { return h.ReopenLogFiles() })
		}),
	}
}

func (a *app) newCfgReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload corosync.conf on every node",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return a.withCfg(nil, func(h *cfg.Handle) error { return h.ReloadConfig() })
		}),
	}
}

func (a *app) newCfgWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Track shutdown requests and answer them per cfg.shutdown_reply",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return ignoreCancel(a.watchCfg(ctx, cmd.OutOrStdout()))
		}),
	}
}

// shutdownResponder answers every shutdown notification with reply.
func (a *app) shutdownResponder(ctx context.Context, w io.Writer, reply cfg.ShutdownReply) cfg.ShutdownFunc {
	return func(h *cfg.Handle, flags cfg.ShutdownFlags) {
		fmt.Fprintf(w, "shutdown requested (%s), replying %s\n", flags, reply)
		if err := h.ReplyToShutdown(reply); err != nil {
			a.log.Error(ctx, "shutdown reply failed", "error", err)
		}
	}
}

func (a *app) watchCfg(ctx context.Context, w io.Writer) error {
	reply := cfg.ShutdownReplyYes
	if a.conf.Cfg.ShutdownReply == "no" {
		reply = cfg.ShutdownReplyNo
	}
	return a.withCfg(a.shutdownResponder(ctx, w, reply), func(h *cfg.Handle) error {
		if err := h.TrackStart(cfg.TrackNone); err != nil {
			return err
		}
		defer func() {
			if err := h.TrackStop(); err != nil {
				a.log.Warn(ctx, "cfg track stop", "error", err)
			}
		}()
		a.log.Info(ctx, "tracking shutdown requests", "reply", reply.String())
		return loop.Run(ctx, h, loop.WithPollInterval(a.conf.Loop.PollInterval))
	})
}
