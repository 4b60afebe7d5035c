package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/ledger"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

var endName string

var endCmd = &cobra.Command{
	Use:     "end <worker>",
	Aliases: []string{"stop"},
	Short:   "Go off duty and log the shift",
	Args:    cobra.ExactArgs(1),
	RunE:    runEnd,
}

func init() {
	endCmd.Flags().StringVar(&endName, "name", "", "Display name of the worker")
}

func runEnd(cmd *cobra.Command, args []string) error {
	closed, err := app.machine.EndShift(cmd.Context(), orgID, args[0], endName)
	if err != nil {
		exitWith(err)
	}
	fmt.Printf("%s is now off duty. Shift: %s, total logged: %s\n",
		closed.Record.Name(),
		formatElapsed(closed.Elapsed),
		timecalc.FormatDuration(ledger.Total(closed.Record.History)))
	return nil
}

func formatElapsed(d time.Duration) string {
	seconds := int64(d / time.Second)
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
