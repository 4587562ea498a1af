package utils

import (
	"fmt"
	"time"
)

// FormatTimestamp renders a timestamp for list rows. Recent times collapse
// to the clock, older ones to the date, so columns stay narrow.
func FormatTimestamp(t time.Time) string {
	now := time.Now()
	sameDay := t.Year() == now.Year() && t.YearDay() == now.YearDay()
	switch {
	case sameDay:
		return t.Format("15:04")
	case now.Sub(t) < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// TimeAgo renders elapsed time the way activity feeds show it
func TimeAgo(t time.Time) string {
	elapsed := time.Since(t)

	pluralize := func(n int, singular, unit string) string {
		if n <= 1 {
			return singular
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}

	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return pluralize(int(elapsed.Minutes()), "1 minute ago", "minute")
	case elapsed < 24*time.Hour:
		return pluralize(int(elapsed.Hours()), "1 hour ago", "hour")
	case elapsed < 7*24*time.Hour:
		return pluralize(int(elapsed.Hours()/24), "yesterday", "day")
	default:
		return pluralize(int(elapsed.Hours()/(24*7)), "1 week ago", "week")
	}
}

// FormatWatchTime renders a chapter duration in seconds as compact
// viewing time ("45s", "12m", "1h05m").
func FormatWatchTime(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
