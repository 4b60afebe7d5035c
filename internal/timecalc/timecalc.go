package timecalc

import (
	"fmt"
	"time"
)

const (
	msPerMinute = int64(60_000)
	msPerHour   = int64(3_600_000)
)

// SplitMs converts milliseconds into whole hours and the remaining whole minutes.
func SplitMs(ms int64) (hours, minutes int64) {
	return ms / msPerHour, (ms / msPerMinute) % 60
}

// HoursMs converts milliseconds into fractional hours.
func HoursMs(ms int64) float64 {
	return float64(ms) / float64(msPerHour)
}

// FormatDuration formats milliseconds as "3h 30m".
func FormatDuration(ms int64) string {
	h, m := SplitMs(ms)
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatDurationHHMMSS formats a duration as HH:MM:SS.
func FormatDurationHHMMSS(d time.Duration) string {
	seconds := int64(d.Seconds())
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween returns the number of calendar days from day to now, both
// taken in now's location. It is negative when day is after now.
func DaysBetween(day, now time.Time) int {
	a := StartOfDay(day.In(now.Location()))
	b := StartOfDay(now)
	// Compare by date rather than dividing durations, so DST days count once.
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// LoadLocation resolves an IANA zone name, treating "" as the local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}
