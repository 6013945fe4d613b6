package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/directory"
)

// Resolver computes bookable slots for a doctor on a date. The result is
// advisory: it narrows what the agent offers, but the insert constraint is
// the final authority on booking success.
type Resolver struct {
	store BookingReader
}

// NewResolver builds a resolver over the appointment book.
func NewResolver(store BookingReader) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the doctor's open slots on date, ascending. When the
// weekly template excludes the date's weekday the booking store is not
// consulted at all.
func (r *Resolver) Resolve(ctx context.Context, doc directory.Doctor, date time.Time) ([]string, error) {
	if !doc.WorksOn(date) {
		return nil, nil
	}

	booked, err := r.store.GetBookedTimes(ctx, doc.ID, date)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	open := make([]string, 0, len(doc.DailySlots))
	for _, slot := range doc.DailySlots {
		if _, ok := taken[slot]; !ok {
			open = append(open, slot)
		}
	}
	sort.Strings(open)
	return open, nil
}
