// Package svcup supervises a fixed table of named local services: start them
// detached with pid bookkeeping, stop them by recorded pid with a port-sweep
// fallback, and classify their status from health and port probes.
package svcup

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/stackmind/svcup/internal/config"
	"github.com/stackmind/svcup/internal/metrics"
	"github.com/stackmind/svcup/internal/probe"
	"github.com/stackmind/svcup/internal/registry"
	"github.com/stackmind/svcup/internal/server"
	"github.com/stackmind/svcup/internal/service"
	"github.com/stackmind/svcup/internal/store"
	"github.com/stackmind/svcup/internal/supervisor"
)

// Re-export core types for external consumers. Aliases, so conversions are
// zero-cost.

type Spec = service.Spec

type Table = service.Table

type Result = supervisor.Result

type Status = supervisor.Status

type Outcome = supervisor.Outcome

type Event = store.Event

var ErrUnknownService = supervisor.ErrUnknownService

// Supervisor is a thin facade over the internal supervisor.
type Supervisor struct{ inner *supervisor.Supervisor }

// New builds a Supervisor over table, persisting pids under registryDir.
func New(table *Table, registryDir string) *Supervisor {
	return &Supervisor{inner: supervisor.New(table, registry.New(registryDir))}
}

func (s *Supervisor) SetLogger(l *slog.Logger)      { s.inner.SetLogger(l) }
func (s *Supervisor) SetStore(st store.Store) error { return s.inner.SetStore(st) }

// SetHealthTimeout bounds each health-probe request. Non-positive values
// keep the probe's built-in default.
func (s *Supervisor) SetHealthTimeout(d time.Duration) {
	if d > 0 {
		s.inner.SetProbes(nil, nil, probe.HTTPHealth{Timeout: d})
	}
}
func (s *Supervisor) Start(name string) Result           { return s.inner.Start(name) }
func (s *Supervisor) Stop(name string) Result            { return s.inner.Stop(name) }
func (s *Supervisor) Status(name string) (Status, error) { return s.inner.Status(name) }
func (s *Supervisor) StartAll() ([]Result, bool)         { return s.inner.StartAll() }
func (s *Supervisor) StopAll() ([]Result, bool)          { return s.inner.StopAll() }
func (s *Supervisor) StatusAll() []Status                { return s.inner.StatusAll() }

// Internal returns the underlying supervisor for embedding (HTTP server).
func (s *Supervisor) Internal() *supervisor.Supervisor { return s.inner }

type Config = cfg.Config

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewStore opens the sqlite operation-history store at path.
func NewStore(path string) (store.Store, error) { return store.NewSQLiteStore(path) }

// NewHTTPServer starts an HTTP server exposing the supervisor API.
func NewHTTPServer(addr, basePath string, s *Supervisor) *http.Server {
	return server.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
