package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/report"
)

func TestCsvEscape(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with space", "with space"},
		{"with,comma", `"with,comma"`},
		{`with"quote`, `"with""quote"`},
		{"with\nnewline", "\"with\nnewline\""},
		{"with\rreturn", "\"with\rreturn\""},
		{"", ""},
	}
	for _, tt := range tests {
		got := csvEscape(tt.input)
		if got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrintCSV(t *testing.T) {
	records := []*model.WorkerRecord{
		{
			OrganizationID: "acme",
			WorkerID:       "42",
			DisplayName:    "Doe, Jane",
			History: []model.DayEntry{
				{DayKey: "2024-03-13", DurationMs: 90 * 60_000},
				{DayKey: "2024-03-14", DurationMs: 30 * 60_000},
			},
		},
		{OrganizationID: "acme", WorkerID: "7"},
	}
	var buf bytes.Buffer
	printCSV(&buf, records)

	want := "organization,worker_id,display_name,day,duration_minutes\n" +
		"acme,42,\"Doe, Jane\",2024-03-13,90\n" +
		"acme,42,\"Doe, Jane\",2024-03-14,30\n"
	if buf.String() != want {
		t.Errorf("printCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintLeaderboardCSV(t *testing.T) {
	res := report.Result{
		Window: report.Week,
		Days:   7,
		Ranked: []report.Ranked{
			{WorkerID: "b", DisplayName: "Bo", TotalMs: 3 * 3_600_000},
			{WorkerID: "a", DisplayName: "Al", TotalMs: 61 * 60_000},
		},
	}
	var buf bytes.Buffer
	printLeaderboardCSV(&buf, res)

	want := "rank,worker_id,display_name,duration_minutes\n1,b,Bo,180\n2,a,Al,61\n"
	if buf.String() != want {
		t.Errorf("printLeaderboardCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintLeaderboardCSVActive(t *testing.T) {
	start := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	res := report.Result{
		Window: report.Active,
		Roster: []report.RosterEntry{{WorkerID: "a", DisplayName: "Al", ShiftStart: start}},
	}
	var buf bytes.Buffer
	printLeaderboardCSV(&buf, res)

	want := "worker_id,display_name,shift_start\na,Al,2024-03-14T09:00:00Z\n"
	if buf.String() != want {
		t.Errorf("printLeaderboardCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRenderLeaderboardEmpty(t *testing.T) {
	out := renderLeaderboard(report.Result{Window: report.Month, Days: 30})
	if !strings.Contains(out, "No data for the last 30 days") {
		t.Errorf("renderLeaderboard = %q", out)
	}
}

func TestRenderLeaderboardRows(t *testing.T) {
	out := renderLeaderboard(report.Result{
		Window: report.Week,
		Days:   7,
		Ranked: []report.Ranked{{WorkerID: "a", DisplayName: "Al", TotalMs: 5_400_000, Hours: 1, Minutes: 30}},
	})
	for _, want := range []string{"Weekly Leaderboard", "Al", "1h 30m", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderLeaderboard missing %q:\n%s", want, out)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{0, 0},
		{0.4, 0},
		{1.5, 3},
		{30, 48},
	}
	for _, tt := range tests {
		if got := len([]rune(bar(tt.hours))); got != tt.want {
			t.Errorf("bar(%v) has %d blocks, want %d", tt.hours, got, tt.want)
		}
	}
}
