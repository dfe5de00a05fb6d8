package attendance

import (
	"fmt"
	"time"
)

// MissingDates returns every date in [start, today), in order, that has no
// existing record and does not fall on the rest weekday. Today itself is
// excluded; the caller's own mark covers it. The result is what the
// backfill sweep must synthesize as absences, so the sweep stays a pure
// computation followed by one bulk insert.
func MissingDates(start, today string, existing map[string]struct{}, rest time.Weekday) ([]string, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("session start date: %w", err)
	}
	until, err := time.Parse(DateLayout, today)
	if err != nil {
		return nil, fmt.Errorf("today date: %w", err)
	}

	var missing []string
	for d := from; d.Before(until); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == rest {
			continue
		}
		key := d.Format(DateLayout)
		if _, ok := existing[key]; ok {
			continue
		}
		missing = append(missing, key)
	}
	return missing, nil
}
