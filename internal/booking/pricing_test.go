package booking

import (
	"errors"
	"testing"
)

func TestPriceFor(t *testing.T) {
	const rate = int64(24000)

	tests := []struct {
		name  string
		start string
		end   string
		want  int64
	}{
		{"one hour", "10:00", "11:00", 24000},
		{"ninety minutes", "10:00", "11:30", 36000},
		{"one minute bills a full block", "10:00", "10:01", 12000},
		{"61 minutes bills three blocks", "10:00", "11:01", 36000},
		{"half hour", "18:00", "18:30", 12000},
		{"two hours", "08:00", "10:00", 48000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceFor(tt.start, tt.end, rate)
			if err != nil {
				t.Fatalf("PriceFor(%s, %s): %v", tt.start, tt.end, err)
			}
			if got != tt.want {
				t.Errorf("PriceFor(%s, %s) = %d, want %d", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestPriceForInvalidRange(t *testing.T) {
	if _, err := PriceFor("11:00", "10:30", 24000); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := PriceFor("10:00", "10:00", 24000); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("equal start and end: expected ErrInvalidTimeRange, got %v", err)
	}
	if _, err := PriceFor("bogus", "10:00", 24000); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("unparseable start: expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestPriceForZeroRate(t *testing.T) {
	got, err := PriceFor("10:00", "11:00", 0)
	if err != nil || got != 0 {
		t.Fatalf("zero rate should price at zero, got %d, %v", got, err)
	}
}

func TestPriceForMonotonic(t *testing.T) {
	ends := []string{"10:01", "10:30", "10:31", "11:00", "11:01", "12:00", "14:30"}
	prev := int64(-1)
	for _, end := range ends {
		got, err := PriceFor("10:00", end, 24000)
		if err != nil {
			t.Fatalf("PriceFor(10:00, %s): %v", end, err)
		}
		if got < prev {
			t.Fatalf("price decreased with duration: end %s priced %d after %d", end, got, prev)
		}
		prev = got
	}
}

func TestPriceForReservationFallback(t *testing.T) {
	const rate = int64(24000)

	tests := []struct {
		name         string
		date         string
		start        string
		end          string
		want         int64
		wantFallback bool
	}{
		{"well formed", "2025-11-18", "10:00", "11:30", 36000, false},
		{"missing date bills one hour", "", "10:00", "11:30", rate, true},
		{"missing start bills one hour", "2025-11-18", "", "11:30", rate, true},
		{"missing end bills one hour", "2025-11-18", "10:00", "", rate, true},
		{"corrupt date bills one hour", "someday", "10:00", "11:30", rate, true},
		{"inverted range bills one hour", "2025-11-18", "11:30", "10:00", rate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fellBack := PriceForReservation(tt.date, tt.start, tt.end, rate)
			if got != tt.want {
				t.Errorf("amount = %d, want %d", got, tt.want)
			}
			if fellBack != tt.wantFallback {
				t.Errorf("fellBack = %v, want %v", fellBack, tt.wantFallback)
			}
		})
	}

	if got, fellBack := PriceForReservation("", "", "", 0); got != 0 || fellBack {
		t.Errorf("zero rate should price at zero without fallback, got %d, %v", got, fellBack)
	}
}
