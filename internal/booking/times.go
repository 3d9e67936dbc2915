package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-day form reservations are stored with.
	DateLayout = "2006-01-02"
	// ClockLayout is the normalized 24-hour clock form, always zero-padded.
	ClockLayout = "15:04"
)

// NormalizeClock parses a 24-hour clock string and reformats it as
// zero-padded "HH:MM". Minutes are optional and default to 00. Every clock
// value crossing the service boundary goes through here, so stored times are
// always two-digit hour and minute.
func NormalizeClock(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("clock time is required")
	}

	parts := strings.SplitN(raw, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", raw)
	}
	minute := 0
	if len(parts) == 2 && parts[1] != "" {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return "", fmt.Errorf("invalid minute %q", raw)
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ClockMinutes converts a normalized "HH:MM" string to minutes since
// midnight.
func ClockMinutes(clock string) (int, error) {
	normalized, err := NormalizeClock(clock)
	if err != nil {
		return 0, err
	}
	hour, _ := strconv.Atoi(normalized[:2])
	minute, _ := strconv.Atoi(normalized[3:])
	return hour*60 + minute, nil
}

// Combine builds a local-time instant from a "YYYY-MM-DD" date and an
// "HH:MM" clock time. An empty clock means midnight. The zero time is the
// invalid sentinel: callers must check IsZero before using the result.
func Combine(date, clock string) time.Time {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), time.Local)
	if err != nil {
		return time.Time{}
	}

	minutes := 0
	if strings.TrimSpace(clock) != "" {
		minutes, err = ClockMinutes(clock)
		if err != nil {
			return time.Time{}
		}
	}
	return day.Add(time.Duration(minutes) * time.Minute)
}

// ParseDate validates and reformats a calendar day, truncating any
// time-of-day component.
func ParseDate(raw string) (string, error) {
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	return day.Format(DateLayout), nil
}
