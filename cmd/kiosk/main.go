package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkiosk/container-tracker/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kiosk",
		Short: "Container tracker kiosk front end",
		Long: `kiosk is the bus-only front end of the container tracker.
It renders the orchestrator's instructions on a terminal and submits
checkout/return requests for scans made at the kiosk.`,
	}

	rootCmd.AddCommand(cli.WatchCmd())
	rootCmd.AddCommand(cli.CheckoutCmd())
	rootCmd.AddCommand(cli.ReturnCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
