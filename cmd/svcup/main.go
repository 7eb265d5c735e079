package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	startFlags := &TargetFlags{}
	stopFlags := &TargetFlags{}
	statusFlags := &TargetFlags{}
	historyFlags := &HistoryFlags{}
	serveFlags := &ServeFlags{}

	root := createRootCommand(globalFlags)
	app := &app{global: globalFlags}

	root.AddCommand(
		createStartCommand(app, startFlags),
		createStopCommand(app, stopFlags),
		createStatusCommand(app, statusFlags),
		createHistoryCommand(app, historyFlags),
		createServeCommand(app, serveFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "svcup",
		Short:         "Start, stop and check the local service stack",
		Long:          "svcup supervises a fixed table of named local services with pid tracking,\nport probing and health checks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", defaultConfigPath(), "path to the services TOML config")
	return root
}

// defaultConfigPath prefers a config in the working directory, falling back
// to the per-user one.
func defaultConfigPath() string {
	if _, err := os.Stat("svcup.toml"); err == nil {
		return "svcup.toml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "svcup.toml"
	}
	return filepath.Join(home, ".svcup", "services.toml")
}
