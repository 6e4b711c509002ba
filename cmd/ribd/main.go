package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanet-platform/ribd/coordinator"
	"github.com/yanet-platform/ribd/internal/app"
	"github.com/yanet-platform/ribd/internal/config"
	"github.com/yanet-platform/ribd/internal/logging"
	"github.com/yanet-platform/ribd/internal/rib"
	"github.com/yanet-platform/ribd/internal/xcmd"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string
}

var rootCmd = &cobra.Command{
	Use:   "ribd",
	Short: "RIB Coordinator for a network switch control plane",
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := run(cmd); err != nil {
			if errors.Is(err, xcmd.Interrupted{}) {
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.ConfigPath, "config", "c", "", "Path to the configuration file (required)")
	rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	cfg, err := app.LoadConfig(cmd.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, _, err := logging.Init(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	c := coordinator.NewCoordinator(&cfg.Coordinator, coordinator.WithLog(log))

	ctx := context.Background()
	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return c.Run(ctx)
	})

	if err := bootstrap(ctx, c, &cfg.Routes, log); err != nil {
		return fmt.Errorf("failed to apply initial config: %w", err)
	}

	wg.Go(func() error {
		err := xcmd.WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		return err
	})

	return wg.Wait()
}

// bootstrap applies the routing config read at startup exactly like a
// later Reconfigure call, against a logging-only FIB callback: the
// hardware/ASIC programmer is an opaque hook per spec.md §1 and has no
// in-module implementation here.
func bootstrap(ctx context.Context, c *coordinator.Coordinator, routes *config.Config, log *zap.SugaredLogger) error {
	fib := func(vrf rib.RouterID, view *rib.RouteTable, _ any) error {
		log.Infow("fib update", "vrf", vrf, "v4_routes", view.Size(rib.AFv4), "v6_routes", view.Size(rib.AFv6))
		return nil
	}
	return c.Reconfigure(ctx, routes, fib, nil)
}
