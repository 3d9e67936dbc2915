package booking

// Range is a half-open [StartMin, EndMin) interval in minutes since
// midnight.
type Range struct {
	StartMin int
	EndMin   int
}

// RangeFromClocks builds a Range from two "HH:MM" strings.
func RangeFromClocks(start, end string) (Range, error) {
	startMin, err := ClockMinutes(start)
	if err != nil {
		return Range{}, err
	}
	endMin, err := ClockMinutes(end)
	if err != nil {
		return Range{}, err
	}
	return Range{StartMin: startMin, EndMin: endMin}, nil
}

// Overlaps reports whether the candidate range intersects any of the
// existing ranges for the same court and day. Intervals are half-open, so
// back-to-back reservations that touch at an endpoint do not overlap.
// Callers must exclude cancelled reservations before building the existing
// set; cancellation frees the slot.
func Overlaps(candidate Range, existing []Range) bool {
	for _, r := range existing {
		if r.StartMin < candidate.EndMin && r.EndMin > candidate.StartMin {
			return true
		}
	}
	return false
}
