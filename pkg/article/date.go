package article

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDateRe = regexp.MustCompile(`^(\d+|an?|one)\s+(second|sec|minute|min|hour|hr|day|week|month|year)s?\s+ago$`)

var absoluteLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02 Jan 2006",
	"1/2/2006",
	"Jan 2006",
}

// ParseDate normalizes the date strings search engines print next to a result,
// relative ("3 days ago") or absolute, against the reference time ref.
func ParseDate(raw string, ref time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, " ·-—")
	if s == "" {
		return time.Time{}, false
	}

	switch s {
	case "today", "just now":
		return truncateDay(ref), true
	case "yesterday":
		return truncateDay(ref.AddDate(0, 0, -1)), true
	}

	if m := relativeDateRe.FindStringSubmatch(s); m != nil {
		n := 1
		if v, err := strconv.Atoi(m[1]); err == nil {
			n = v
		}
		switch m[2] {
		case "second", "sec":
			return ref.Add(-time.Duration(n) * time.Second), true
		case "minute", "min":
			return ref.Add(-time.Duration(n) * time.Minute), true
		case "hour", "hr":
			return ref.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return truncateDay(ref.AddDate(0, 0, -n)), true
		case "week":
			return truncateDay(ref.AddDate(0, 0, -7*n)), true
		case "month":
			return truncateDay(ref.AddDate(0, -n, 0)), true
		case "year":
			return truncateDay(ref.AddDate(-n, 0, 0)), true
		}
	}

	// layouts are case sensitive, so parse the original spelling
	orig := strings.Trim(strings.TrimSpace(raw), " ·-—")
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, orig, ref.Location()); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
