package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/dante-control/internal/registry"
)

// debugTime is the browse window shared by the print-* commands
var debugTime float64

func init() {
	for _, family := range registry.Families() {
		debugCmd.AddCommand(newPrintCmd(family))
		printCmd.ValidArgs = append(printCmd.ValidArgs, family.String())
	}
	debugCmd.AddCommand(printCmd)
	debugCmd.PersistentFlags().Float64VarP(&debugTime, "time", "t", 2, "Seconds to browse before exiting")
	rootCmd.AddCommand(debugCmd)
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print raw mDNS records",
	Long: `Browse a single Dante service family and print every record received,
without merging them into devices. Useful when a device does not show up
in list-devices.`,
}

func newPrintCmd(family registry.Family) *cobra.Command {
	return &cobra.Command{
		Use:   "print-" + family.String(),
		Short: fmt.Sprintf("Print %s records", family.String()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			window := time.Duration(debugTime * float64(time.Second))
			return newManager().Engine().PrintRecords(family, window, os.Stdout)
		},
	}
}

var printCmd = &cobra.Command{
	Use:     "print FAMILY",
	Short:   "Print records of one family (cmc, dbc, arc or chan)",
	Example: `  dante-cli debug print arc -t 5`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		family, err := registry.ParseFamily(args[0])
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true
		window := time.Duration(debugTime * float64(time.Second))
		return newManager().Engine().PrintRecords(family, window, os.Stdout)
	},
}
