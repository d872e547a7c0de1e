package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsradar-systems/opsradar/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "opsradar",
		Short: "Operational risk detection and scoring for field operations",
		Long: `opsradar scans an application's operational records — visits, orders,
deliveries, contact attempts — and turns silent patterns of neglect into
severity-ranked risk insights: outlets nobody ever visited, territories
going uncovered, collapsing order frequency, untouched prospect clusters.`,
		Version: version,
	}

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewScanCmd(),
		commands.NewStatusCmd(),
		commands.NewSnapshotCmd(),
		commands.NewServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
