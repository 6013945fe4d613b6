package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/directory"
)

type recordingReader struct {
	booked []string
	err    error
	calls  int
}

func (r *recordingReader) GetBookedTimes(_ context.Context, _ string, _ time.Time) ([]string, error) {
	r.calls++
	return r.booked, r.err
}

var weekdayDoctor = directory.Doctor{
	ID:          "doc-1",
	Name:        "Dr. Sarah Chen",
	WorkingDays: []string{"Monday", "Wednesday", "Friday"},
	DailySlots:  []string{"09:00", "09:30", "10:00", "10:30"},
}

func TestResolveOffDaySkipsBookingQuery(t *testing.T) {
	reader := &recordingReader{}
	r := NewResolver(reader)

	saturday := time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)
	slots, err := r.Resolve(context.Background(), weekdayDoctor, saturday)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on an off day, got %v", slots)
	}
	if reader.calls != 0 {
		t.Fatalf("booking store consulted %d times on an off day", reader.calls)
	}
}

func TestResolveSubtractsBookedTimes(t *testing.T) {
	reader := &recordingReader{booked: []string{"09:30", "10:30"}}
	r := NewResolver(reader)

	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)
	slots, err := r.Resolve(context.Background(), weekdayDoctor, monday)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := []string{"09:00", "10:00"}
	if len(slots) != len(want) {
		t.Fatalf("slots = %v, want %v", slots, want)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slots = %v, want %v", slots, want)
		}
	}
	if reader.calls != 1 {
		t.Fatalf("booking store consulted %d times, want 1", reader.calls)
	}
}

func TestResolveFullyBooked(t *testing.T) {
	reader := &recordingReader{booked: weekdayDoctor.DailySlots}
	r := NewResolver(reader)

	monday := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)
	slots, err := r.Resolve(context.Background(), weekdayDoctor, monday)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no open slots, got %v", slots)
	}
}
