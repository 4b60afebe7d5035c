package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/roster"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

var rosterPublish bool

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show who is on duty",
	Args:  cobra.NoArgs,
	RunE:  runRoster,
}

func init() {
	rosterCmd.Flags().BoolVar(&rosterPublish, "publish", false, "Also push the roster to the configured message")
	rosterCmd.AddCommand(rosterPanelCmd)
}

func runRoster(cmd *cobra.Command, args []string) error {
	var (
		view *roster.View
		err  error
	)
	if rosterPublish {
		view, err = app.refresher.Refresh(cmd.Context(), orgID)
	} else {
		view, err = roster.Build(cmd.Context(), app.store, orgID, app.machine.Now())
	}
	if err != nil {
		exitWith(err)
	}

	fmt.Println(titleStyle.Render("Active Employees"))
	if len(view.Entries) == 0 {
		fmt.Println("No active employees")
	} else {
		rows := make([][]string, 0, len(view.Entries))
		for _, e := range view.Entries {
			rows = append(rows, []string{
				e.DisplayName,
				e.ShiftStart.In(view.GeneratedAt.Location()).Format("2006-01-02 15:04"),
				timecalc.FormatDurationHHMMSS(view.GeneratedAt.Sub(e.ShiftStart)),
			})
		}
		fmt.Println(renderTable([]string{"Worker", "Since", "Elapsed"}, rows))
	}
	fmt.Println(mutedStyle.Render("Last updated: " + view.GeneratedAt.Format("15:04:05")))
	if rosterPublish {
		fmt.Println("Roster published.")
	}
	return nil
}
