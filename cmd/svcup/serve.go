package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	svcup "github.com/stackmind/svcup"
	"github.com/stackmind/svcup/internal/metrics"
	"github.com/stackmind/svcup/internal/supervisor"
)

func createServeCommand(a *app, f *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the supervisor over a local HTTP API with /metrics",
		RunE: func(_ *cobra.Command, _ []string) error {
			sup, cfg, done, err := a.load()
			if err != nil {
				return err
			}
			defer done()

			if err := svcup.RegisterMetricsDefault(); err != nil {
				return err
			}
			addr := f.Addr
			if addr == "" {
				addr = cfg.Serve.Addr
			}
			srv := svcup.NewHTTPServer(addr, "/api", sup)
			a.log.Info("serving", "addr", addr)

			stopRefresh := make(chan struct{})
			go refreshLoop(sup, cfg.Serve.Refresh, stopRefresh)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			close(stopRefresh)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&f.Addr, "addr", "", "listen address (default from config, loopback)")
	return cmd
}

// refreshLoop keeps the service_up gauge current while serving.
func refreshLoop(sup *svcup.Supervisor, every time.Duration, stop <-chan struct{}) {
	if every <= 0 {
		every = 10 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	refreshGauges(sup)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			refreshGauges(sup)
		}
	}
}

func refreshGauges(sup *svcup.Supervisor) {
	for _, st := range sup.StatusAll() {
		switch st.Class {
		case supervisor.StatusOnline:
			metrics.SetUp(st.Name, 1)
		case supervisor.StatusDegraded:
			metrics.SetUp(st.Name, 0.5)
		default:
			metrics.SetUp(st.Name, 0)
		}
	}
}
