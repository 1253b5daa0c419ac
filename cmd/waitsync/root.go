package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/waitsync/internal/waitsync/config"
	"github.com/kolkov/waitsync/internal/waitsync/logging"
	"github.com/kolkov/waitsync/internal/waitsync/park"
	"github.com/kolkov/waitsync/waitsync"
)

// app carries the resolved configuration to subcommands.
type app struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}

	root := &cobra.Command{
		Use:   "waitsync",
		Short: "exercise the waitsync primitives",
		Long: fmt.Sprintf(`waitsync (v%s)

Stress, poison and inspect the poisoning Mutex and OnceCell built on the
address-keyed park platform.`, waitsync.Version),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	config.AddFlags(root.PersistentFlags())

	root.AddCommand(
		newStressCmd(a),
		newPoisonCmd(a),
		newMetricsCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup resolves configuration and installs the logger and park platform.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	config.LoadEnvFiles()

	v, err := config.New(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logging.Init(cfg.Logging()); err != nil {
		return err
	}
	log := logging.WithComponent("cli")

	if err := park.Configure(cfg.Park()); err != nil {
		if !errors.Is(err, park.ErrDefaultInUse) {
			return err
		}
		log.Debug("park platform already configured", "command", cmd.Name())
	}
	log.Debug("configuration loaded",
		"command", cmd.CommandPath(),
		"park_timeout", cfg.ParkTimeout,
		"goroutines", cfg.StressGoroutines,
		"iterations", cfg.StressIterations)
	return nil
}
