package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <worker>",
	Short: "Clear a worker's ledger and duty state (admin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	rec, err := app.machine.ResetWorker(cmd.Context(), orgID, args[0])
	if err != nil {
		exitWith(err)
	}
	fmt.Printf("Reset all shift data of %s.\n", rec.Name())
	return nil
}
