package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	svcup "github.com/stackmind/svcup"
)

// app wires a loaded config into a ready supervisor per invocation.
type app struct {
	global *GlobalFlags
	log    *slog.Logger
}

// load builds the supervisor from the config file. The returned closer
// releases the history store; call it when the command is done.
func (a *app) load() (*svcup.Supervisor, *svcup.Config, func(), error) {
	cfg, err := svcup.LoadConfig(a.global.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	log := cfg.Log.New()
	a.log = log
	sup := svcup.New(cfg.Table, cfg.RegistryDir)
	sup.SetLogger(log)
	sup.SetHealthTimeout(cfg.HealthTimeout)

	closer := func() {}
	if cfg.StoreEnabled {
		st, err := svcup.NewStore(cfg.StorePath)
		if err != nil {
			// History is advisory; a broken store must not block operations.
			log.Warn("history store unavailable", "path", cfg.StorePath, "error", err)
		} else if err := sup.SetStore(st); err != nil {
			log.Warn("history schema setup failed", "error", err)
			_ = st.Close()
		} else {
			closer = func() { _ = st.Close() }
		}
	}
	return sup, cfg, closer, nil
}

func createStartCommand(a *app, f *TargetFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start [name]",
		Short: "Start a service (or every service with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sup, _, done, err := a.load()
			if err != nil {
				return err
			}
			defer done()
			if f.All {
				results, failed := sup.StartAll()
				renderResults(results, f.JSON)
				if failed {
					return fmt.Errorf("one or more services failed to start")
				}
				return nil
			}
			name, err := requireName(args)
			if err != nil {
				return err
			}
			res := sup.Start(name)
			renderResults([]svcup.Result{res}, f.JSON)
			return res.Err
		},
	}
	cmd.Flags().BoolVar(&f.All, "all", false, "start every service in the table")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "JSON output")
	return cmd
}

func createStopCommand(a *app, f *TargetFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [name]",
		Short: "Stop a service by its recorded pid (or every service with --all)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sup, _, done, err := a.load()
			if err != nil {
				return err
			}
			defer done()
			if f.All {
				results, failed := sup.StopAll()
				renderResults(results, f.JSON)
				if failed {
					return fmt.Errorf("one or more services failed to stop")
				}
				return nil
			}
			name, err := requireName(args)
			if err != nil {
				return err
			}
			res := sup.Stop(name)
			renderResults([]svcup.Result{res}, f.JSON)
			return res.Err
		},
	}
	cmd.Flags().BoolVar(&f.All, "all", false, "stop every service in the table")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "JSON output")
	return cmd
}

func createStatusCommand(a *app, f *TargetFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [name]",
		Short: "Classify services as online, running without health, or offline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sup, _, done, err := a.load()
			if err != nil {
				return err
			}
			defer done()
			if f.All || len(args) == 0 {
				renderStatuses(sup.StatusAll(), f.JSON)
				return nil
			}
			st, err := sup.Status(args[0])
			if err != nil {
				return err
			}
			renderStatuses([]svcup.Status{st}, f.JSON)
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.All, "all", false, "status of every service (default when no name given)")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "JSON output")
	return cmd
}

func createHistoryCommand(a *app, f *HistoryFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [name]",
		Short: "Show recent start/stop outcomes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := svcup.LoadConfig(a.global.ConfigPath)
			if err != nil {
				return err
			}
			st, err := svcup.NewStore(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer func() { _ = st.Close() }()
			if err := st.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			evs, err := st.Recent(cmd.Context(), name, f.Limit)
			if err != nil {
				return err
			}
			renderEvents(evs, f.JSON)
			return nil
		},
	}
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum events to show")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "JSON output")
	return cmd
}

func requireName(args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("service name required (or use --all)")
	}
	return args[0], nil
}
