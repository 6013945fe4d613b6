package nlu

import (
	"errors"
	"testing"
	"time"
)

// Wednesday, June 11 2025.
var wednesday = time.Date(2025, time.June, 11, 15, 4, 5, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRelative(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"today", day(2025, time.June, 11)},
		{"I'd like to come in today if possible", day(2025, time.June, 11)},
		{"tomorrow", day(2025, time.June, 12)},
		{"next week", day(2025, time.June, 18)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, wednesday)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = (%v, %v), want %v", tt.in, got, ok, tt.want)
		}
	}
}

func TestParseDateWeekdays(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"friday", day(2025, time.June, 13)},
		{"next friday", day(2025, time.June, 13)},
		{"how about Monday", day(2025, time.June, 16)},
		// Naming today's weekday means next week's occurrence.
		{"wednesday", day(2025, time.June, 18)},
		{"next saturday", day(2025, time.June, 14)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, wednesday)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = (%v, %v), want %v", tt.in, got, ok, tt.want)
		}
	}
}

func TestParseDateMonthDay(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"june 25", day(2025, time.June, 25)},
		{"June 25th", day(2025, time.June, 25)},
		{"december 1st works", day(2025, time.December, 1)},
		// Already passed this year, rolls to next year.
		{"june 10", day(2026, time.June, 10)},
		{"jan 2", day(2026, time.January, 2)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, wednesday)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = (%v, %v), want %v", tt.in, got, ok, tt.want)
		}
	}
}

func TestParseDateNumeric(t *testing.T) {
	want := day(2025, time.December, 25)
	for _, in := range []string{"12/25/2025", "12-25-2025", "2025-12-25"} {
		got, ok := ParseDate(in, wednesday)
		if !ok || !got.Equal(want) {
			t.Errorf("ParseDate(%q) = (%v, %v), want %v", in, got, ok, want)
		}
	}
}

func TestParseDateNoMatch(t *testing.T) {
	for _, in := range []string{"", "whenever works", "the 32nd of junk", "13/45/2025"} {
		if got, ok := ParseDate(in, wednesday); ok {
			t.Errorf("ParseDate(%q) = %v, want no match", in, got)
		}
	}
}

func TestParseDateTomorrowProperty(t *testing.T) {
	// For any day d, "tomorrow" evaluated on d is d+1.
	now := day(2025, time.January, 1)
	for i := 0; i < 400; i++ {
		d := now.AddDate(0, 0, i)
		got, ok := ParseDate("tomorrow", d)
		if !ok || !got.Equal(d.AddDate(0, 0, 1)) {
			t.Fatalf("ParseDate(tomorrow) on %v = (%v, %v)", d, got, ok)
		}
	}
}

func TestParseDateOfBirth(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"March 14th 1985", day(1985, time.March, 14)},
		{"march 14, 1985", day(1985, time.March, 14)},
		{"it's July 4 1990", day(1990, time.July, 4)},
		{"3/14/1985", day(1985, time.March, 14)},
		{"3-14-1985", day(1985, time.March, 14)},
		{"1985-03-14", day(1985, time.March, 14)},
	}
	for _, tt := range tests {
		got, ok := ParseDateOfBirth(tt.in, wednesday)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("ParseDateOfBirth(%q) = (%v, %v), want %v", tt.in, got, ok, tt.want)
		}
	}
}

func TestParseDateOfBirthRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no year", "March 14th"},
		{"future", "2026-01-01"},
		{"today", "2025-06-11"},
		{"before 1900", "3/14/1885"},
		{"impossible day", "2/30/1985"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := ParseDateOfBirth(tt.in, wednesday); ok {
				t.Errorf("ParseDateOfBirth(%q) = %v, want no match", tt.in, got)
			}
		})
	}
}

func TestValidateAppointmentDate(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want error
	}{
		{"same day ok", day(2025, time.June, 11), nil},
		{"weekday within window", day(2025, time.June, 20), nil},
		{"yesterday rejected", day(2025, time.June, 10), ErrDateInPast},
		{"beyond three months", day(2025, time.October, 15), ErrDateTooFar},
		{"saturday rejected", day(2025, time.June, 14), ErrWeekend},
		{"sunday rejected", day(2025, time.June, 15), ErrWeekend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAppointmentDate(tt.date, wednesday)
			if !errors.Is(err, tt.want) && !(err == nil && tt.want == nil) {
				t.Errorf("ValidateAppointmentDate(%v) = %v, want %v", tt.date, err, tt.want)
			}
		})
	}
}

func TestValidateRerunsOnCarriedDate(t *testing.T) {
	// A date accepted last week can be stale by the time the caller loops
	// back from confirmation; validation must reject it on the re-run.
	d := day(2025, time.June, 12)
	if err := ValidateAppointmentDate(d, wednesday); err != nil {
		t.Fatalf("fresh date rejected: %v", err)
	}
	later := wednesday.AddDate(0, 0, 7)
	if err := ValidateAppointmentDate(d, later); !errors.Is(err, ErrDateInPast) {
		t.Fatalf("stale date accepted: %v", err)
	}
}
