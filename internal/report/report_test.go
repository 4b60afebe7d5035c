package report_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/shiftr/internal/ledger"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/report"
)

var now = time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return ledger.DayKey(now.AddDate(0, 0, -n))
}

func minutes(n int64) int64 { return n * 60_000 }

func worker(id string, entries ...model.DayEntry) *model.WorkerRecord {
	return &model.WorkerRecord{OrganizationID: "org", WorkerID: id, DisplayName: "name-" + id, History: entries}
}

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"week", "month", "active"} {
		w, err := report.ParseWindow(s)
		require.NoError(t, err)
		assert.Equal(t, report.Window(s), w)
	}
	_, err := report.ParseWindow("year")
	assert.Error(t, err)
	assert.Equal(t, 7, report.Week.Days())
	assert.Equal(t, 30, report.Month.Days())
}

func TestWindowFiltering(t *testing.T) {
	w := worker("a",
		model.DayEntry{DayKey: daysAgo(1), DurationMs: minutes(60)},
		model.DayEntry{DayKey: daysAgo(10), DurationMs: minutes(120)},
		model.DayEntry{DayKey: daysAgo(20), DurationMs: minutes(30)},
	)

	week := report.Leaderboard([]*model.WorkerRecord{w}, report.Week, now)
	require.Len(t, week, 1)
	assert.Equal(t, minutes(60), week[0].TotalMs)
	assert.Equal(t, int64(1), week[0].Hours)
	assert.Equal(t, int64(0), week[0].Minutes)

	month := report.Leaderboard([]*model.WorkerRecord{w}, report.Month, now)
	require.Len(t, month, 1)
	assert.Equal(t, minutes(210), month[0].TotalMs)
	assert.Equal(t, int64(3), month[0].Hours)
	assert.Equal(t, int64(30), month[0].Minutes)

	assert.Len(t, w.History, 3, "filtering must not mutate the record")
}

func TestWindowBoundaries(t *testing.T) {
	h := []model.DayEntry{
		{DayKey: daysAgo(0), DurationMs: 1},
		{DayKey: daysAgo(7), DurationMs: 2},
		{DayKey: daysAgo(8), DurationMs: 4},
		{DayKey: daysAgo(30), DurationMs: 8},
		{DayKey: daysAgo(31), DurationMs: 16},
		{DayKey: ledger.DayKey(now.AddDate(0, 0, 1)), DurationMs: 32},
		{DayKey: "not-a-day", DurationMs: 64},
	}
	assert.Equal(t, int64(3), ledger.Total(report.Filter(h, report.Week, now)))
	assert.Equal(t, int64(15), ledger.Total(report.Filter(h, report.Month, now)))
}

func TestLegacyDayOfMonthKeys(t *testing.T) {
	// A bare day-of-month is the latest such day on or before today, so
	// "28" on the 25th is last month's 28th.
	h := []model.DayEntry{
		{DayKey: "24", DurationMs: minutes(10)},
		{DayKey: "10", DurationMs: minutes(20)},
		{DayKey: "28", DurationMs: minutes(40)},
	}
	assert.Equal(t, minutes(10), ledger.Total(report.Filter(h, report.Week, now)))
	assert.Equal(t, minutes(70), ledger.Total(report.Filter(h, report.Month, now)))
}

func TestLegacyKeyFromPreviousMonthEarlyInMonth(t *testing.T) {
	early := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	h := []model.DayEntry{{DayKey: "28", DurationMs: minutes(45)}}

	assert.Equal(t, minutes(45), ledger.Total(report.Filter(h, report.Week, early)))
	assert.Equal(t, minutes(45), ledger.Total(report.Filter(h, report.Month, early)))
}

func TestLeaderboardRanking(t *testing.T) {
	records := []*model.WorkerRecord{
		worker("A", model.DayEntry{DayKey: daysAgo(2), DurationMs: minutes(90)}),
		worker("B", model.DayEntry{DayKey: daysAgo(3), DurationMs: minutes(150)}),
		worker("C", model.DayEntry{DayKey: daysAgo(45), DurationMs: minutes(500)}),
		worker("D"),
	}

	got := report.Leaderboard(records, report.Month, now)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].WorkerID)
	assert.Equal(t, "A", got[1].WorkerID)
	assert.Equal(t, "name-B", got[0].DisplayName)
	assert.Equal(t, int64(2), got[0].Hours)
	assert.Equal(t, int64(30), got[0].Minutes)
}

func TestLeaderboardTiesKeepInputOrder(t *testing.T) {
	records := []*model.WorkerRecord{
		worker("x", model.DayEntry{DayKey: daysAgo(1), DurationMs: 5}),
		worker("y", model.DayEntry{DayKey: daysAgo(1), DurationMs: 5}),
		worker("z", model.DayEntry{DayKey: daysAgo(1), DurationMs: 5}),
	}
	got := report.Leaderboard(records, report.Week, now)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{got[0].WorkerID, got[1].WorkerID, got[2].WorkerID})
}

func TestActiveRoster(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	records := []*model.WorkerRecord{
		{WorkerID: "early", OnDuty: true, ShiftStart: at(5 * time.Hour)},
		{WorkerID: "off", OnDuty: false},
		{WorkerID: "late", OnDuty: true, ShiftStart: at(10 * time.Minute)},
		{WorkerID: "stale", OnDuty: true, ShiftStart: at(31 * 24 * time.Hour)},
		{WorkerID: "broken", OnDuty: true},
	}

	got := report.ActiveRoster(records, now)
	require.Len(t, got, 2)
	assert.Equal(t, "late", got[0].WorkerID)
	assert.Equal(t, "early", got[1].WorkerID)
	assert.Equal(t, "late", got[0].DisplayName)

	res := report.Aggregate(records, report.Active, now)
	assert.Equal(t, got, res.Roster)
	assert.NotNil(t, res.Ranked)
	assert.Empty(t, res.Ranked)
}

func TestAggregateRanked(t *testing.T) {
	records := []*model.WorkerRecord{worker("A", model.DayEntry{DayKey: daysAgo(1), DurationMs: 1})}
	res := report.Aggregate(records, report.Week, now)
	assert.Equal(t, report.Week, res.Window)
	assert.Equal(t, 7, res.Days)
	assert.Len(t, res.Ranked, 1)
	assert.NotNil(t, res.Roster)
	assert.Empty(t, res.Roster)
}

func TestAggregateEmptyEncodesArrays(t *testing.T) {
	for _, w := range []report.Window{report.Week, report.Month, report.Active} {
		data, err := json.Marshal(report.Aggregate(nil, w, now))
		require.NoError(t, err)
		assert.Contains(t, string(data), `"ranked":[]`, "window %s", w)
		assert.Contains(t, string(data), `"roster":[]`, "window %s", w)
	}
}

func TestWorkerDetail(t *testing.T) {
	rec := worker("a",
		model.DayEntry{DayKey: daysAgo(1), DurationMs: minutes(90)},
		model.DayEntry{DayKey: daysAgo(20), DurationMs: minutes(120)},
		model.DayEntry{DayKey: daysAgo(40), DurationMs: minutes(600)},
		model.DayEntry{DayKey: daysAgo(5), DurationMs: minutes(30)},
	)

	d := report.WorkerDetail(rec, now)
	assert.Equal(t, minutes(240), d.TotalMs)
	assert.Equal(t, int64(4), d.Hours)
	assert.Equal(t, int64(0), d.Minutes)
	assert.Equal(t, 3, d.Shifts)
	// The "average" is the sum of the per-day hours.
	assert.InDelta(t, 4.0, d.AvgHoursPerActiveDay, 1e-9)
	assert.Equal(t, []report.Point{
		{DayKey: daysAgo(20), Hours: 2},
		{DayKey: daysAgo(5), Hours: 0.5},
		{DayKey: daysAgo(1), Hours: 1.5},
	}, d.PerDayPoints)
}

func TestWorkerDetailEmpty(t *testing.T) {
	d := report.WorkerDetail(worker("a"), now)
	assert.Zero(t, d.TotalMs)
	assert.Zero(t, d.Shifts)
	assert.Empty(t, d.PerDayPoints)
}
