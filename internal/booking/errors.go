package booking

import "errors"

var (
	// ErrValidation covers missing or malformed required fields.
	ErrValidation = errors.New("invalid request")
	// ErrInvalidTimeRange is returned when the end time is not after the start time.
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	// ErrPastTime is returned when a reservation would start at or before the current instant.
	ErrPastTime = errors.New("reservation starts in the past")
	// ErrSlotConflict is returned when the requested slot overlaps an existing reservation.
	ErrSlotConflict = errors.New("slot already reserved")
	// ErrClientNotResolved is returned when a staff request does not identify exactly one client.
	ErrClientNotResolved = errors.New("client could not be resolved")
	// ErrForbidden is returned when the acting user's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the reservation does not exist or is out of the actor's scope.
	ErrNotFound = errors.New("reservation not found")
	// ErrNotPayable is returned when a payment is attempted on a non-active reservation.
	ErrNotPayable = errors.New("only active reservations can be paid")
)
