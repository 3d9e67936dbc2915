package booking

import "fmt"

// blockMinutes is the billing unit. Durations always round up to the next
// whole block, so a 61-minute reservation bills three blocks.
const blockMinutes = 30

// PriceFor computes the amount in cents for the interval [start, end) at the
// given hourly rate. A zero rate prices everything at zero. It fails with
// ErrInvalidTimeRange when the end is not strictly after the start or when
// either clock string is unparseable.
func PriceFor(start, end string, hourlyRateCents int64) (int64, error) {
	if hourlyRateCents == 0 {
		return 0, nil
	}

	startMin, err := ClockMinutes(start)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	endMin, err := ClockMinutes(end)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	if endMin <= startMin {
		return 0, ErrInvalidTimeRange
	}

	return blocksBetween(startMin, endMin) * hourlyRateCents / 2, nil
}

// PriceForReservation is the defensive variant used by the booking and
// payment flows. It never fails: when the reservation's date or times are
// missing or unparseable it bills exactly one hour at the configured rate so
// a corrupt record still produces a charge. The second return reports
// whether that fallback fired; callers log it.
func PriceForReservation(date, start, end string, hourlyRateCents int64) (amount int64, fellBack bool) {
	if hourlyRateCents == 0 {
		return 0, false
	}
	if date == "" || start == "" || end == "" {
		return hourlyRateCents, true
	}
	if _, err := ParseDate(date); err != nil {
		return hourlyRateCents, true
	}

	startMin, err := ClockMinutes(start)
	if err != nil {
		return hourlyRateCents, true
	}
	endMin, err := ClockMinutes(end)
	if err != nil {
		return hourlyRateCents, true
	}
	if endMin <= startMin {
		return hourlyRateCents, true
	}

	return blocksBetween(startMin, endMin) * hourlyRateCents / 2, false
}

func blocksBetween(startMin, endMin int) int64 {
	duration := endMin - startMin
	return int64((duration + blockMinutes - 1) / blockMinutes)
}
