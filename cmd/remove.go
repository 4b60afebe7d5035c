package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <worker>",
	Short: "Take another worker off duty (admin)",
	Long: `Closes the open shift of another worker, e.g. when they forgot to end it.
The elapsed time is logged exactly as if the worker had ended the shift.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	closed, err := app.machine.RemoveWorker(cmd.Context(), orgID, args[0])
	if err != nil {
		exitWith(err)
	}
	fmt.Printf("Took %s off duty. Shift: %s\n", closed.Record.Name(), formatElapsed(closed.Elapsed))
	return nil
}
