package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/report"
	"github.com/Tiliavir/shiftr/internal/storage"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

var (
	leaderboardWindow string
	leaderboardFormat string
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"report"},
	Short:   "Rank workers by time on duty",
	Args:    cobra.NoArgs,
	RunE:    runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().StringVar(&leaderboardWindow, "window", "week", "Window: week, month, active")
	leaderboardCmd.Flags().StringVar(&leaderboardFormat, "format", "md", "Output format: md, csv, json")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	window, err := report.ParseWindow(leaderboardWindow)
	if err != nil {
		return err
	}

	records, err := app.store.ListWorkers(cmd.Context(), orgID, storage.Filter{})
	if err != nil {
		exitWith(err)
	}
	res := report.Aggregate(records, window, app.machine.Now())

	switch leaderboardFormat {
	case "csv":
		printLeaderboardCSV(os.Stdout, res)
	case "json":
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	default: // md
		fmt.Println(renderLeaderboard(res))
	}
	return nil
}

func windowTitle(w report.Window) string {
	switch w {
	case report.Week:
		return "Weekly Leaderboard"
	case report.Month:
		return "Monthly Leaderboard"
	default:
		return "Active Employees"
	}
}

func renderLeaderboard(res report.Result) string {
	title := titleStyle.Render(windowTitle(res.Window))
	if res.Window == report.Active {
		if len(res.Roster) == 0 {
			return title + "\nNo active employees"
		}
		rows := make([][]string, 0, len(res.Roster))
		for _, e := range res.Roster {
			rows = append(rows, []string{e.DisplayName, e.ShiftStart.Format("2006-01-02 15:04")})
		}
		return title + "\n" + renderTable([]string{"Worker", "Since"}, rows)
	}

	if len(res.Ranked) == 0 {
		return title + "\nNo data for the last " + strconv.Itoa(res.Days) + " days"
	}
	rows := make([][]string, 0, len(res.Ranked))
	var total int64
	for i, r := range res.Ranked {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.DisplayName,
			fmt.Sprintf("%dh %dm", r.Hours, r.Minutes),
		})
		total += r.TotalMs
	}
	rows = append(rows, []string{"", "Total", timecalc.FormatDuration(total)})
	return title + "\n" + renderTable([]string{"#", "Worker", "Time"}, rows)
}

func printLeaderboardCSV(w io.Writer, res report.Result) {
	if res.Window == report.Active {
		fmt.Fprintln(w, "worker_id,display_name,shift_start")
		for _, e := range res.Roster {
			fmt.Fprintf(w, "%s,%s,%s\n", csvEscape(e.WorkerID), csvEscape(e.DisplayName), e.ShiftStart.Format(time.RFC3339))
		}
		return
	}
	fmt.Fprintln(w, "rank,worker_id,display_name,duration_minutes")
	for i, r := range res.Ranked {
		fmt.Fprintf(w, "%d,%s,%s,%d\n", i+1, csvEscape(r.WorkerID), csvEscape(r.DisplayName), r.TotalMs/60_000)
	}
}
