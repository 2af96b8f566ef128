package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/cpg"
	"github.com/corosync/corosync-go/pkg/corosync/loop"
)

func (a *app) newCpgCmd() *cobra.Command {
	parent := &cobra.Command{Use: "cpg", Short: "closed process group commands"}
	parent.AddCommand(a.newCpgLocalCmd())
	parent.AddCommand(a.newCpgMembersCmd())
	parent.AddCommand(a.newCpgGroupsCmd())
	parent.AddCommand(a.newCpgSendCmd())
	parent.AddCommand(a.newCpgWatchCmd())
	parent.AddCommand(a.newCpgPingCmd())
	return parent
}

// withCpg opens a cpg handle for the duration of fn.
func (a *app) withCpg(handler cpg.Handler, fn func(h *cpg.Handle) error, opts ...cpg.Option) error {
	opts = append([]cpg.Option{cpg.WithLogger(a.log), cpg.WithContext(uint64(os.Getpid()))}, opts...)
	h, err := cpg.Initialize(handler, opts...)
	if err != nil {
		return fmt.Errorf("cpg initialize: %w", err)
	}
	defer func() {
		if err := h.Finalize(); err != nil {
			a.log.Warn(context.Background(), "cpg finalize", "error", err)
		}
	}()
	return fn(h)
}

// joined runs fn while h is a member of group.
func (a *app) joined(ctx context.Context, h *cpg.Handle, group string, fn func() error) error {
	if err := h.Join(group); err != nil {
		return err
	}
	defer func() {
		if err := h.Leave(group); err != nil {
			a.log.Warn(ctx, "cpg leave", "group", group, "error", err)
		}
	}()
	return fn()
}

func (a *app) newCpgLocalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "local",
		Short: "Print the local node id and connection limits",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			return a.withCpg(cpg.HandlerFuncs{}, func(h *cpg.Handle) error {
				id, err := h.LocalGet()
				if err != nil {
					return err
				}
				size, err := h.MaxAtomicMsgsizeGet()
				if err != nil {
					return err
				}
				fc, err := h.FlowControlStateGet()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "local node: %s\nmax atomic message: %d bytes\nflow control: %s\n", id, size, fc)
				return err
			})
		}),
	}
}

func (a *app) newCpgMembersCmd() *cobra.Command {
	var groupFlag string
	cmd := &cobra.Command{
		Use:   "members",
		Short: "List the members of a group",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			group, err := a.group(groupFlag)
			if err != nil {
				return err
			}
			return a.withCpg(cpg.HandlerFuncs{}, func(h *cpg.Handle) error {
				members, err := h.MembershipGet(group)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, m := range members {
					if _, err := fmt.Fprintf(out, "node %s pid %d\n", m.NodeID, m.PID); err != nil {
						return err
					}
				}
				return nil
			})
		}),
	}
	cmd.Flags().StringVar(&groupFlag, "group", "", "group name (default: cpg.group)")
	return cmd
}

func (a *app) newCpgGroupsCmd() *cobra.Command {
	var (
		group string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Iterate over the groups known to the cluster",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			typ := cpg.IterNameOnly
			switch {
			case all && group != "":
				return fmt.Errorf("--all and --group are mutually exclusive")
			case all:
				typ = cpg.IterAll
			case group != "":
				typ = cpg.IterOneGroup
			}
			return a.withCpg(cpg.HandlerFuncs{}, func(h *cpg.Handle) error {
				it, err := h.IterationStart(group, typ)
				if err != nil {
					return err
				}
				defer it.Close()
				out := cmd.OutOrStdout()
				for rec := range it.All() {
					if typ == cpg.IterNameOnly {
						fmt.Fprintln(out, rec.Group)
						continue
					}
					fmt.Fprintf(out, "%s node %s pid %d\n", rec.Group, rec.NodeID, rec.PID)
				}
				return it.Err()
			})
		}),
	}
	cmd.Flags().StringVar(&group, "group", "", "list the members of this group only")
	cmd.Flags().BoolVar(&all, "all", false, "list the members of every group")
	return cmd
}

func (a *app) newCpgSendCmd() *cobra.Command {
	var groupFlag, guarantee, message string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Join a group, multicast one message and leave",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			group, err := a.group(groupFlag)
			if err != nil {
				return err
			}
			if guarantee == "" {
				guarantee = a.conf.Cpg.Guarantee
			}
			g, err := cpg.ParseGuarantee(guarantee)
			if err != nil {
				return err
			}
			return a.withCpg(cpg.HandlerFuncs{}, func(h *cpg.Handle) error {
				return a.joined(ctx, h, group, func() error {
					if err := h.McastJoined(g, []byte(message)); err != nil {
						return err
					}
					a.log.Info(ctx, "message sent", "group", group, "guarantee", g.String(), "size", len(message))
					return nil
				})
			})
		}),
	}
	cmd.Flags().StringVar(&groupFlag, "group", "", "group name (default: cpg.group)")
	cmd.Flags().StringVar(&guarantee, "guarantee", "", "delivery guarantee: unordered|fifo|agreed|safe (default: cpg.guarantee)")
	cmd.Flags().StringVar(&message, "message", "", "message to send")
	return cmd
}

func (a *app) newCpgWatchCmd() *cobra.Command {
	var groupFlag string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a group and print its events until interrupted",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			group, err := a.group(groupFlag)
			if err != nil {
				return err
			}
			return ignoreCancel(a.watchCpg(ctx, cmd.OutOrStdout(), group))
		}),
	}
	cmd.Flags().StringVar(&groupFlag, "group", "", "group name (default: cpg.group)")
	return cmd
}

// eventPrinter writes one line per cpg event. Payloads are reported by size.
func eventPrinter(w io.Writer) cpg.HandlerFuncs {
	return cpg.HandlerFuncs{
		DeliverFunc: func(_ *cpg.Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
			fmt.Fprintf(w, "deliver %s from node %s pid %d: %d bytes\n", group, node, pid, len(msg))
		},
		ConfchgFunc: func(_ *cpg.Handle, group string, members, left, joined []cpg.Address) {
			fmt.Fprintf(w, "confchg %s: %d member(s)", group, len(members))
			for _, j := range joined {
				fmt.Fprintf(w, " +%s/%d(%s)", j.NodeID, j.PID, j.Reason)
			}
			for _, l := range left {
				fmt.Fprintf(w, " -%s/%d(%s)", l.NodeID, l.PID, l.Reason)
			}
			fmt.Fprintln(w)
		},
		TotemConfchgFunc: func(_ *cpg.Handle, ring cpg.RingID, members []corosync.NodeID) {
			fmt.Fprintf(w, "totem ring %s/%d: %v\n", ring.NodeID, ring.Seq, members)
		},
	}
}

func (a *app) watchCpg(ctx context.Context, w io.Writer, group string) error {
	return a.withCpg(eventPrinter(w), func(h *cpg.Handle) error {
		return a.joined(ctx, h, group, func() error {
			a.log.Info(ctx, "watching group", "group", group)
			return loop.Run(ctx, h, loop.WithPollInterval(a.conf.Loop.PollInterval))
		})
	}, cpg.WithInitialTotemConf())
}

func (a *app) newCpgPingCmd() *cobra.Command {
	var groupFlag string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Multicast a token with the safe guarantee and wait for it to come back",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command) error {
			group, err := a.group(groupFlag)
			if err != nil {
				return err
			}
			rtt, err := a.ping(ctx, group)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "token delivered on %s in %s\n", group, rtt)
			return err
		}),
	}
	cmd.Flags().StringVar(&groupFlag, "group", "", "group name (default: cpg.group)")
	return cmd
}

// ping joins group, multicasts a fresh token and runs the dispatch loop
// until the token is delivered back from the local node or ctx ends.
func (a *app) ping(ctx context.Context, group string) (time.Duration, error) {
	token := []byte(uuid.NewString())
	waitCtx, stop := context.WithCancel(ctx)
	defer stop()
	var (
		local     corosync.NodeID
		delivered bool
	)
	handler := cpg.HandlerFuncs{
		DeliverFunc: func(_ *cpg.Handle, g string, node corosync.NodeID, _ uint32, msg []byte) {
			if g == group && node == local && bytes.Equal(msg, token) {
				delivered = true
				stop()
			}
		},
	}

	var rtt time.Duration
	err := a.withCpg(handler, func(h *cpg.Handle) error {
		id, err := h.LocalGet()
		if err != nil {
			return err
		}
		local = id
		return a.joined(ctx, h, group, func() error {
			start := time.Now()
			if err := h.McastJoined(cpg.GuaranteeSafe, token); err != nil {
				return err
			}
			err := loop.Run(waitCtx, h, loop.WithPollInterval(a.conf.Loop.PollInterval))
			if !delivered {
				return err
			}
			rtt = time.Since(start)
			return nil
		})
	})
	return rtt, err
}
