package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/viper"

	"github.com/stackmind/svcup/internal/logger"
	"github.com/stackmind/svcup/internal/service"
)

// HealthOff disables the health probe for a service ("health = \"off\"").
// An omitted health key defaults to http://127.0.0.1:<port>/health, which is
// what every server in the supervised stack exposes.
const HealthOff = "off"

const (
	defaultServeAddr    = "127.0.0.1:7070"
	defaultServeRefresh = 10 * time.Second
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// fileConfig mirrors the TOML layout.
type fileConfig struct {
	Log      logger.Config  `mapstructure:"log"`
	Registry registryConfig `mapstructure:"registry"`
	Store    storeConfig    `mapstructure:"store"`
	Serve    ServeConfig    `mapstructure:"serve"`
	Defaults defaultsConfig `mapstructure:"defaults"`
	Services []serviceEntry `mapstructure:"services"`
}

type registryConfig struct {
	Dir string `mapstructure:"dir"`
}

type storeConfig struct {
	Enabled *bool  `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServeConfig configures the optional HTTP surface (`svcup serve`).
type ServeConfig struct {
	Addr    string        `mapstructure:"addr"`
	Refresh time.Duration `mapstructure:"refresh"`
}

type defaultsConfig struct {
	StartGrace    time.Duration `mapstructure:"startsecs"`
	StopWait      time.Duration `mapstructure:"stopwait"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
	LogDir        string        `mapstructure:"log_dir"`
}

type serviceEntry struct {
	Name       string        `mapstructure:"name"`
	Command    string        `mapstructure:"command"`
	WorkDir    string        `mapstructure:"workdir"`
	Env        []string      `mapstructure:"env"`
	Port       uint16        `mapstructure:"port"`
	Health     string        `mapstructure:"health"`
	StartGrace time.Duration `mapstructure:"startsecs"`
	StopWait   time.Duration `mapstructure:"stopwait"`
}

// Config is the loaded, validated configuration.
type Config struct {
	Table         *service.Table
	Log           logger.Config
	RegistryDir   string
	LogDir        string
	StoreEnabled  bool
	StorePath     string
	Serve         ServeConfig
	HealthTimeout time.Duration
}

// Load reads and validates the TOML config at path. Duplicate names, duplicate
// ports, unsafe names and missing commands are load-time errors, not runtime
// surprises.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	base, err := baseDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Log:           fc.Log,
		RegistryDir:   fc.Registry.Dir,
		LogDir:        fc.Defaults.LogDir,
		StorePath:     fc.Store.Path,
		StoreEnabled:  fc.Store.Enabled == nil || *fc.Store.Enabled,
		Serve:         fc.Serve,
		HealthTimeout: fc.Defaults.HealthTimeout,
	}
	if cfg.RegistryDir == "" {
		cfg.RegistryDir = filepath.Join(base, "run")
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(base, "logs")
	}
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(base, "history.db")
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = defaultServeAddr
	}
	if cfg.Serve.Refresh <= 0 {
		cfg.Serve.Refresh = defaultServeRefresh
	}

	specs := make([]service.Spec, 0, len(fc.Services))
	for _, e := range fc.Services {
		if e.Name != "" && !nameRe.MatchString(e.Name) {
			return nil, fmt.Errorf("service name %q: allowed characters are [A-Za-z0-9._-]", e.Name)
		}
		if e.Command == "" {
			return nil, fmt.Errorf("service %q has no command", e.Name)
		}
		health := e.Health
		switch health {
		case "":
			health = service.DefaultHealthURL(e.Port)
		case HealthOff:
			health = ""
		}
		grace := e.StartGrace
		if grace <= 0 {
			grace = fc.Defaults.StartGrace
		}
		stopWait := e.StopWait
		if stopWait <= 0 {
			stopWait = fc.Defaults.StopWait
		}
		specs = append(specs, service.Spec{
			Name:       e.Name,
			Command:    e.Command,
			WorkDir:    e.WorkDir,
			Env:        append([]string(nil), e.Env...),
			Port:       e.Port,
			HealthURL:  health,
			StartGrace: grace,
			StopWait:   stopWait,
			LogPath:    logger.ServiceLogPath(cfg.LogDir, e.Name),
		})
	}
	table, err := service.NewTable(specs)
	if err != nil {
		return nil, err
	}
	cfg.Table = table
	return cfg, nil
}

// baseDir is ~/.svcup, the per-user state root for registry, logs and history.
func baseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".svcup"), nil
}
