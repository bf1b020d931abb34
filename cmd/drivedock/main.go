package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version info (set by build)
	Version = "dev"

	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "drivedock",
	Short: "Storage discovery and read-only publishing",
	Long: `drivedock discovers block devices, mounts them read-only with safe
options, and publishes the mounted content into the served directory tree.

It runs as one stage of the provisioning pipeline: it requires the network
stage's completion marker and leaves one of its own for the web-server stage.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/drivedock/drivedock.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newDiscoverCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("drivedock", Version)
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
