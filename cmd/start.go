package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startName string

var startCmd = &cobra.Command{
	Use:   "start <worker>",
	Short: "Go on duty",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&startName, "name", "", "Display name of the worker")
}

func runStart(cmd *cobra.Command, args []string) error {
	rec, err := app.machine.StartShift(cmd.Context(), orgID, args[0], startName)
	if err != nil {
		exitWith(err)
	}
	fmt.Printf("%s is now on duty (since %s).\n", rec.Name(), rec.ShiftStart.Format("15:04:05"))
	return nil
}
