// Package ledger implements the bounded per-day history of completed shifts.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Tiliavir/shiftr/internal/model"
)

// MaxEntries is the number of day buckets a worker keeps.
const MaxEntries = 30

// dayLayout is the layout of day keys written by this package.
const dayLayout = "2006-01-02"

var (
	ErrNegativeDuration = errors.New("negative duration")
	ErrEmptyKey         = errors.New("empty day key")
	ErrDuplicateKey     = errors.New("duplicate day key")
	ErrTooManyEntries   = errors.New("history exceeds bound")
)

// DayKey returns the bucket key for t, which is the calendar date of t in
// its own location.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// ParseDayKey resolves a key to midnight of its day in now's location.
// A bare day-of-month key ("14") means the most recent such day on or
// before now: a day after today belongs to an earlier month, and months
// too short for the day are skipped.
func ParseDayKey(key string, now time.Time) (time.Time, error) {
	if key == "" {
		return time.Time{}, ErrEmptyKey
	}
	if t, err := time.ParseInLocation(dayLayout, key, now.Location()); err == nil {
		return t, nil
	}
	day, err := strconv.Atoi(key)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid day key %q", key)
	}
	year, month := now.Year(), now.Month()
	if day > now.Day() {
		year, month = prevMonth(year, month)
	}
	for day > daysIn(year, month) {
		year, month = prevMonth(year, month)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), nil
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// daysIn returns the number of days of month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Merge folds ms into history under key and returns the new history.
// An existing key is incremented, a new key is appended, and the oldest
// entries by insertion are evicted until the bound holds. The input slice
// is never modified.
func Merge(history []model.DayEntry, key string, ms int64) ([]model.DayEntry, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ms < 0 {
		return nil, fmt.Errorf("%w: %dms for %s", ErrNegativeDuration, ms, key)
	}

	out := make([]model.DayEntry, len(history), len(history)+1)
	copy(out, history)

	for i := range out {
		if out[i].DayKey == key {
			out[i].DurationMs += ms
			return out, nil
		}
	}

	out = append(out, model.DayEntry{DayKey: key, DurationMs: ms})
	if n := len(out); n > MaxEntries {
		out = out[n-MaxEntries:]
	}
	return out, nil
}

// Total returns the sum of all entry durations.
func Total(history []model.DayEntry) int64 {
	var sum int64
	for _, e := range history {
		sum += e.DurationMs
	}
	return sum
}

// Validate checks the invariants of a stored history.
func Validate(history []model.DayEntry) error {
	if len(history) > MaxEntries {
		return fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(history))
	}
	seen := make(map[string]struct{}, len(history))
	for _, e := range history {
		if e.DayKey == "" {
			return ErrEmptyKey
		}
		if e.DurationMs < 0 {
			return fmt.Errorf("%w: %dms for %s", ErrNegativeDuration, e.DurationMs, e.DayKey)
		}
		if _, dup := seen[e.DayKey]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, e.DayKey)
		}
		seen[e.DayKey] = struct{}{}
	}
	return nil
}
