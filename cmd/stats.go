package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/shiftr/internal/report"
)

var statsFormat string

var statsCmd = &cobra.Command{
	Use:   "stats <worker>",
	Short: "Show a worker's statistics for the last 30 days",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsFormat, "format", "md", "Output format: md, json")
}

func runStats(cmd *cobra.Command, args []string) error {
	rec, err := app.store.GetWorker(cmd.Context(), orgID, args[0])
	if err != nil {
		exitWith(err)
	}
	detail := report.WorkerDetail(rec, app.machine.Now())

	if statsFormat == "json" {
		data, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(renderStats(detail))
	return nil
}

// renderStats prints the summary and one bar per day.
func renderStats(d report.Detail) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Statistics for "+d.DisplayName) + "\n")
	fmt.Fprintf(&b, "Total Hours (30 days): %dh %dm\n", d.Hours, d.Minutes)
	fmt.Fprintf(&b, "Average Daily Hours: %.1fh\n", d.AvgHoursPerActiveDay)
	fmt.Fprintf(&b, "Total Shifts: %d", d.Shifts)
	if len(d.PerDayPoints) == 0 {
		return b.String()
	}

	rows := make([][]string, 0, len(d.PerDayPoints))
	for _, p := range d.PerDayPoints {
		rows = append(rows, []string{p.DayKey, fmt.Sprintf("%.2f", p.Hours), bar(p.Hours)})
	}
	b.WriteString("\n" + renderTable([]string{"Day", "Hours", ""}, rows))
	return b.String()
}

// bar draws one block per half hour, capped at 24 hours.
func bar(hours float64) string {
	n := int(hours * 2)
	if n > 48 {
		n = 48
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("█", n)
}
