package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/ledger"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status <worker>",
	Short: "Show whether a worker is on duty",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := app.machine.Now()

	rec, err := app.store.GetWorker(cmd.Context(), orgID, args[0])
	if err != nil {
		exitWith(err)
	}

	if rec.OnDuty && rec.ShiftStart != nil {
		fmt.Printf("%s is on duty.\n", rec.Name())
		fmt.Printf("  Since: %s\n", rec.ShiftStart.In(now.Location()).Format("2006-01-02 15:04"))
		fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(now.Sub(*rec.ShiftStart)))
		return nil
	}

	fmt.Printf("%s is off duty.\n", rec.Name())
	fmt.Printf("Today: %s logged.\n", timecalc.FormatDuration(loggedOn(rec, ledger.DayKey(now))))
	return nil
}

func loggedOn(rec *model.WorkerRecord, key string) int64 {
	for _, e := range rec.History {
		if e.DayKey == key {
			return e.DurationMs
		}
	}
	return 0
}
