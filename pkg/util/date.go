package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, RFC1123 variants and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, time.RFC1123Z, time.RFC1123, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// WithinWindow reports whether the timestamp s falls in [from, to].
// Unparseable timestamps are kept.
func WithinWindow(s string, from, to time.Time) bool {
	t, ok := ParseTime(s)
	if !ok {
		return true
	}
	return !t.Before(from) && !t.After(to)
}

// AlignFromTo rounds the time range down to interval boundaries.
func AlignFromTo(from, to time.Time, interval time.Duration) (time.Time, time.Time) {
	if interval <= 0 {
		interval = time.Minute
	}
	return from.Truncate(interval), to.Truncate(interval)
}

// ParseInterval converts bar intervals such as "1m", "1h" or "1d" to a duration.
func ParseInterval(s string) (time.Duration, bool) {
	switch s {
	case "1d":
		return 24 * time.Hour, true
	case "1wk":
		return 7 * 24 * time.Hour, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
