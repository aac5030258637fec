package utils

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateOnly    = "2006-01-02"
	DateTime    = "2006-01-02 15:04"
	DateTimeSec = "2006-01-02 15:04:05"
	TimeOnly    = "15:04:05"
)

// Elapsed formats a duration as "42s" or "3m05s".
func Elapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// TimeOrDash formats a time value using the given layout, or returns "—" if zero.
func TimeOrDash(t time.Time, layout string) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format(layout)
}

// Indent prefixes every non-empty line of s.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}
