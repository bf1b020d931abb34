package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"drivedock/internal/config"
	"drivedock/internal/marker"
	"drivedock/internal/mounter"
	"drivedock/internal/status"
)

func newStatusCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show live storage state",
		Long: `Reports what is currently mounted under the mount base and what the
served tree publishes. State comes from the live OS mount table, not from
any previous run of this tool.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			q := status.NewQuerier(
				&mounter.ExecMounter{},
				marker.NewStore(cfg.MarkerDir),
				cfg.MountBase,
				cfg.ServedRoot,
			)
			snap, err := q.Snapshot()
			if err != nil {
				return err
			}

			if outputJSON {
				out, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			status.Render(os.Stdout, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	return cmd
}
