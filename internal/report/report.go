// Package report computes leaderboards, the active roster and per-worker
// statistics from worker ledgers. Every function is pure: records are read,
// never modified.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/Tiliavir/shiftr/internal/ledger"
	"github.com/Tiliavir/shiftr/internal/model"
	"github.com/Tiliavir/shiftr/internal/timecalc"
)

// Window selects the trailing range of a report.
type Window string

const (
	Week   Window = "week"
	Month  Window = "month"
	Active Window = "active"
)

// ActiveLookback bounds how old an open shift may be and still be listed.
const ActiveLookback = 30 * 24 * time.Hour

// ParseWindow parses "week", "month" or "active".
func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case Week, Month, Active:
		return w, nil
	}
	return "", fmt.Errorf("unknown window %q (want week, month or active)", s)
}

// Days returns the length of the window in days.
func (w Window) Days() int {
	if w == Week {
		return 7
	}
	return 30
}

// Ranked is one leaderboard row.
type Ranked struct {
	WorkerID    string `json:"worker_id" yaml:"worker_id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	TotalMs     int64  `json:"total_ms" yaml:"total_ms"`
	Hours       int64  `json:"display_hours" yaml:"display_hours"`
	Minutes     int64  `json:"display_minutes" yaml:"display_minutes"`
}

// RosterEntry is one currently on-duty worker.
type RosterEntry struct {
	WorkerID    string    `json:"worker_id" yaml:"worker_id"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	ShiftStart  time.Time `json:"shift_start" yaml:"shift_start"`
}

// Point is one day of a worker's chart.
type Point struct {
	DayKey string  `json:"day" yaml:"day"`
	Hours  float64 `json:"hours" yaml:"hours"`
}

// Detail is the statistics view of a single worker over the month window.
type Detail struct {
	WorkerID    string `json:"worker_id" yaml:"worker_id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	TotalMs     int64  `json:"total_ms" yaml:"total_ms"`
	Hours       int64  `json:"display_hours" yaml:"display_hours"`
	Minutes     int64  `json:"display_minutes" yaml:"display_minutes"`
	// AvgHoursPerActiveDay is the sum of the per-day hours, matching the
	// figure the tracker has always shown as "average daily hours".
	AvgHoursPerActiveDay float64 `json:"avg_hours_per_active_day" yaml:"avg_hours_per_active_day"`
	Shifts               int     `json:"shifts" yaml:"shifts"`
	PerDayPoints         []Point `json:"per_day_points" yaml:"per_day_points"`
}

// Result is the output of Aggregate. Ranked is filled for Week and Month,
// Roster for Active; the other one is empty. Both are never nil.
type Result struct {
	Window Window        `json:"window" yaml:"window"`
	Days   int           `json:"days" yaml:"days"`
	Ranked []Ranked      `json:"ranked" yaml:"ranked"`
	Roster []RosterEntry `json:"roster" yaml:"roster"`
}

type dated struct {
	entry model.DayEntry
	day   time.Time
}

// filter keeps the entries no older than days calendar days before now.
// Keys that cannot be parsed and keys dated after today are dropped.
func filter(history []model.DayEntry, days int, now time.Time) []dated {
	var out []dated
	for _, e := range history {
		day, err := ledger.ParseDayKey(e.DayKey, now)
		if err != nil {
			continue
		}
		age := timecalc.DaysBetween(day, now)
		if age < 0 || age > days {
			continue
		}
		out = append(out, dated{entry: e, day: day})
	}
	return out
}

// Filter returns the history entries inside the window ending at now.
func Filter(history []model.DayEntry, w Window, now time.Time) []model.DayEntry {
	kept := filter(history, w.Days(), now)
	out := make([]model.DayEntry, len(kept))
	for i, d := range kept {
		out[i] = d.entry
	}
	return out
}

// Leaderboard ranks workers by the time logged inside w, most first.
// Workers without entries in the window are left out.
func Leaderboard(records []*model.WorkerRecord, w Window, now time.Time) []Ranked {
	ranked := make([]Ranked, 0, len(records))
	for _, rec := range records {
		kept := Filter(rec.History, w, now)
		if len(kept) == 0 {
			continue
		}
		total := ledger.Total(kept)
		h, m := timecalc.SplitMs(total)
		ranked = append(ranked, Ranked{
			WorkerID:    rec.WorkerID,
			DisplayName: rec.Name(),
			TotalMs:     total,
			Hours:       h,
			Minutes:     m,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalMs > ranked[j].TotalMs
	})
	return ranked
}

// ActiveRoster lists the on-duty workers whose shift opened within
// ActiveLookback, most recently started first.
func ActiveRoster(records []*model.WorkerRecord, now time.Time) []RosterEntry {
	cutoff := now.Add(-ActiveLookback)
	roster := []RosterEntry{}
	for _, rec := range records {
		if !rec.OnDuty || rec.ShiftStart == nil || !rec.ShiftStart.After(cutoff) {
			continue
		}
		roster = append(roster, RosterEntry{
			WorkerID:    rec.WorkerID,
			DisplayName: rec.Name(),
			ShiftStart:  *rec.ShiftStart,
		})
	}
	sort.SliceStable(roster, func(i, j int) bool {
		return roster[i].ShiftStart.After(roster[j].ShiftStart)
	})
	return roster
}

// Aggregate computes the report for w.
func Aggregate(records []*model.WorkerRecord, w Window, now time.Time) Result {
	res := Result{Window: w, Days: w.Days(), Ranked: []Ranked{}, Roster: []RosterEntry{}}
	if w == Active {
		res.Roster = ActiveRoster(records, now)
		return res
	}
	res.Ranked = Leaderboard(records, w, now)
	return res
}

// WorkerDetail summarizes one worker over the month window. Points are in
// calendar order.
func WorkerDetail(rec *model.WorkerRecord, now time.Time) Detail {
	kept := filter(rec.History, Month.Days(), now)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].day.Before(kept[j].day)
	})

	d := Detail{
		WorkerID:     rec.WorkerID,
		DisplayName:  rec.Name(),
		Shifts:       len(kept),
		PerDayPoints: make([]Point, 0, len(kept)),
	}
	for _, k := range kept {
		hours := timecalc.HoursMs(k.entry.DurationMs)
		d.TotalMs += k.entry.DurationMs
		d.AvgHoursPerActiveDay += hours
		d.PerDayPoints = append(d.PerDayPoints, Point{DayKey: k.entry.DayKey, Hours: hours})
	}
	d.Hours, d.Minutes = timecalc.SplitMs(d.TotalMs)
	return d
}
