package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"drivedock/internal/blockdev"
	"drivedock/internal/config"
	"drivedock/internal/discovery"
	"drivedock/internal/marker"
	"drivedock/internal/mounter"
	"drivedock/internal/publish"
	"drivedock/pkg/logging"
)

func newDiscoverCmd() *cobra.Command {
	var backendFlag string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one storage discovery pass",
		Long: `Enumerates block devices, classifies each one, mounts candidates
read-only, verifies the mounts, and publishes them into the served tree.
Per-device failures are recorded and the run continues; only a missing
prerequisite marker or an unusable enumeration backend aborts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if backendFlag != "" {
				cfg.Backend = backendFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, err := logging.Setup(cfg.LogPath, cfg.Level())
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}
			if verbose {
				logger = logger.Level(zerolog.DebugLevel)
			}

			m := &mounter.ExecMounter{}
			lookup := func(dev string) string {
				entries, err := m.Mounts()
				if err != nil {
					return ""
				}
				return mounter.MountpointOf(entries, dev)
			}
			backend, err := blockdev.Select(cfg, lookup)
			if err != nil {
				return err
			}

			runner := &discovery.Runner{
				Backend:      backend,
				Mounter:      m,
				Publisher:    publish.New(cfg.ServedRoot),
				Markers:      marker.NewStore(cfg.MarkerDir),
				Progress:     discovery.NewProgress(os.Stdout),
				Log:          logger,
				Fs:           afero.NewOsFs(),
				MountBase:    cfg.MountBase,
				CountTimeout: cfg.CountTimeout,
				CountCap:     cfg.CountCap,
			}

			_, err = runner.Run(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVar(&backendFlag, "backend", "", "enumeration backend: auto, lsblk, blkid or static")
	return cmd
}
