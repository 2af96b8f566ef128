// Package cli implements the corosyncctl commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/corosync/corosync-go/internal/config"
	"github.com/corosync/corosync-go/internal/tracing"
	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/logging"
	"github.com/corosync/corosync-go/pkg/corosync/metrics"
)

const shutdownTimeout = 3 * time.Second

// app holds what every command shares: the loaded configuration and the
// services started from it.
type app struct {
	configPath string
	conf       config.Config
	log        logging.Logger
	closers    []func(context.Context) error
}

// AddAll attaches the corosyncctl subcommands and the --config flag to root.
func AddAll(root *cobra.Command) {
	a := &app{}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.AddCommand(NewVersionCmd())
	root.AddCommand(a.newCfgCmd())
	root.AddCommand(a.newCpgCmd())
	root.AddCommand(a.newWatchCmd())
}

// NewVersionCmd returns the "version" command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the corosyncctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "corosyncctl %s (native: %s)\n", corosync.WrapperVersion(), corosync.Native)
			return err
		},
	}
}

// run wraps a command body with configuration loading, service startup and
// a tracing span named after the command.
func (a *app) run(fn func(ctx context.Context, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.setup(cmd); err != nil {
			return err
		}
		defer a.teardown()

		ctx, end := tracing.StartSpan(cmd.Context(), cmd.CommandPath(),
			attribute.String("corosync.native", corosync.Native))
		defer func() { end(err) }()
		return fn(ctx, cmd)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	conf, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.conf = conf

	opts := &slog.HandlerOptions{Level: conf.SlogLevel()}
	var handler slog.Handler
	if conf.Log.Format == "json" {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}
	a.log = logging.New(slog.New(handler))
	logging.SetDefault(a.log)
	a.closers = append(a.closers, func(context.Context) error {
		logging.SetDefault(nil)
		return nil
	})

	metrics.Register()
	if conf.Metrics.Listen != "" {
		if err := a.serveMetrics(conf.Metrics.Listen); err != nil {
			a.teardown()
			return err
		}
	}

	shutdown, err := tracing.Setup(conf.Trace.Enabled, cmd.ErrOrStderr())
	if err != nil {
		a.log.Warn(cmd.Context(), "tracing setup failed", "error", err)
	} else {
		a.closers = append(a.closers, shutdown)
	}
	return nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	a.log.Info(context.Background(), "serving metrics", "addr", ln.Addr().String())
	a.closers = append(a.closers, srv.Shutdown)
	return nil
}

// teardown stops services in reverse start order.
func (a *app) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.log != nil {
			a.log.Warn(ctx, "shutdown", "error", err)
		}
	}
	a.closers = nil
}

// group resolves a --group flag against cpg.group from the config.
func (a *app) group(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.conf.Cpg.Group != "" {
		return a.conf.Cpg.Group, nil
	}
	return "", errors.New("missing --group (or cpg.group in config)")
}

// syncWriter serializes writes from concurrently running loops.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// ignoreCancel maps a cancelled context to a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
