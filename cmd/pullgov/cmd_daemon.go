package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/plcforge/pullgov/telemetry"
)

var (
	daemonMetricsAddr    string
	daemonReplayInterval time.Duration
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the governance sidecar daemon",
	Long: `Run pullgov as a long-lived sidecar.

The daemon replays locally spooled audit entries to the Audit Service
whenever it is reachable, and serves Prometheus metrics. It is meant to
run next to an operator workstation or gateway so that decisions made
while the Audit Service was down are not lost.`,
	Example: `  pullgov daemon --config pullgov.yaml
  pullgov daemon --config pullgov.yaml --metrics-addr :9191
  pullgov daemon --config pullgov.yaml --replay-interval 10s`,
	RunE: runDaemonCmd,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonMetricsAddr, "metrics-addr", "", "Metrics listen address (overrides config)")
	daemonCmd.Flags().DurationVar(&daemonReplayInterval, "replay-interval", 0, "Spool replay interval (overrides config)")
}

func runDaemonCmd(cmd *cobra.Command, args []string) error {
	shutdown, err := telemetry.InitMetrics(telemetry.Config{
		ServiceName:    "pullgov",
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	metricsAddr := a.cfg.Metrics.Addr
	if daemonMetricsAddr != "" {
		metricsAddr = daemonMetricsAddr
	}
	replayInterval := a.cfg.Audit.ReplayInterval
	if daemonReplayInterval > 0 {
		replayInterval = daemonReplayInterval
	}

	fmt.Printf("🚀 Starting pullgov daemon\n")
	fmt.Printf("   Replay interval: %s\n", replayInterval)
	fmt.Printf("   Spool depth: %d\n", a.trail.SpoolDepth())
	if a.cfg.Metrics.Enabled {
		fmt.Printf("   Metrics: http://localhost%s/metrics\n", metricsAddr)
	}

	var g run.Group

	ctx, cancel := context.WithCancel(context.Background())
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	g.Add(func() error {
		return a.trail.RunReplay(ctx, replayInterval)
	}, func(error) {
		cancel()
	})

	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/healthz", handleHealthz)
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Add(func() error {
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}, func(error) {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		fmt.Printf("\n👋 Received %s, daemon stopped\n", sig.Signal)
		return nil
	}
	return err
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
