package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corosync/corosync-go/internal/cli"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "corosyncctl",
		Short:         "corosyncctl talks to the local corosync daemon through libcfg and libcpg",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cli.AddAll(root)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
