package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDateFilter parses the value of a temporal repository filter.
// Accepted forms: RFC 3339 timestamps, bare dates ("2026-08-01"),
// "today", "yesterday", and relative expressions like "30 days ago" or
// "1 week ago". Relative dates resolve against now.
func ParseDateFilter(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	switch value {
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now.AddDate(0, 0, -1)), nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}

	if t, ok := parseRelative(value, now); ok {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// parseRelative handles "N <unit>(s) ago".
func parseRelative(value string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(value)
	if len(fields) != 3 || fields[2] != "ago" {
		return time.Time{}, false
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return time.Time{}, false
	}

	switch strings.TrimSuffix(fields[1], "s") {
	case "second":
		return now.Add(-time.Duration(n) * time.Second), true
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	case "year":
		return now.AddDate(-n, 0, 0), true
	default:
		return time.Time{}, false
	}
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
