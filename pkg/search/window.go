package search

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("start date is after end date")

// Window is an inclusive range of calendar days searched as one unit.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
}

func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Split fragments [start, end] into consecutive windows of at most maxSpanDays
// days. The last window is truncated to end.
func Split(start, end time.Time, maxSpanDays int) ([]Window, error) {
	start, end = day(start), day(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if maxSpanDays < 1 {
		maxSpanDays = 1
	}

	var windows []Window
	for cur := start; !cur.After(end); {
		last := cur.AddDate(0, 0, maxSpanDays-1)
		if last.After(end) {
			last = end
		}
		windows = append(windows, Window{Start: cur, End: last})
		cur = last.AddDate(0, 0, 1)
	}
	return windows, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
