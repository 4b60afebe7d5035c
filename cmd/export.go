package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/storage"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every worker ledger of the organization to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, yaml")
}

func runExport(cmd *cobra.Command, args []string) error {
	records, err := app.store.ListWorkers(cmd.Context(), orgID, storage.Filter{})
	if err != nil {
		exitWith(err)
	}

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			fmt.Fprintln(os.Stderr, "error encoding YAML:", err)
			os.Exit(2)
		}
		_ = enc.Close()
	default: // csv
		printCSV(os.Stdout, records)
	}

	return nil
}

// printCSV writes one row per ledger day.
func printCSV(w io.Writer, records []*model.WorkerRecord) {
	fmt.Fprintln(w, "organization,worker_id,display_name,day,duration_minutes")
	for _, rec := range records {
		for _, e := range rec.History {
			fmt.Fprintf(w, "%s,%s,%s,%s,%d\n",
				csvEscape(rec.OrganizationID),
				csvEscape(rec.WorkerID),
				csvEscape(rec.Name()),
				csvEscape(e.DayKey),
				e.DurationMs/60_000,
			)
		}
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
