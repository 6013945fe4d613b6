package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/scheduling"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func testAppointment() scheduling.Appointment {
	return scheduling.Appointment{
		ID:          "appt-1",
		PatientName: "John Smith",
		Email:       "john@gmail.com",
		Date:        time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
		Time:        "14:00",
	}
}

func TestSendBookingConfirmation(t *testing.T) {
	sender := &recordingSender{}
	mailer := NewConfirmationMailer(sender, "Riverside Clinic", nil)

	err := mailer.SendBookingConfirmation(context.Background(), testAppointment(), "Dr. Sarah Lee", "Cardiology")
	if err != nil {
		t.Fatalf("SendBookingConfirmation failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.To != "john@gmail.com" || msg.ToName != "John Smith" {
		t.Errorf("recipient = %q %q", msg.To, msg.ToName)
	}
	for _, want := range []string{"Dr. Sarah Lee", "Cardiology", "Tuesday, June 10, 2025", "2:00 PM", "Riverside Clinic"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestSendBookingConfirmationSkipsWithoutEmail(t *testing.T) {
	sender := &recordingSender{}
	mailer := NewConfirmationMailer(sender, "", nil)

	appt := testAppointment()
	appt.Email = ""
	if err := mailer.SendBookingConfirmation(context.Background(), appt, "Dr. Sarah Lee", "Cardiology"); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d emails for a booking without an address", len(sender.sent))
	}
}

func TestSendBookingConfirmationNilMailerIsNoop(t *testing.T) {
	var mailer *ConfirmationMailer
	if err := mailer.SendBookingConfirmation(context.Background(), testAppointment(), "Dr. Sarah Lee", "Cardiology"); err != nil {
		t.Fatalf("nil mailer returned %v", err)
	}

	disabled := NewConfirmationMailer(nil, "", nil)
	if err := disabled.SendBookingConfirmation(context.Background(), testAppointment(), "Dr. Sarah Lee", "Cardiology"); err != nil {
		t.Fatalf("disabled mailer returned %v", err)
	}
}

func TestSendBookingConfirmationWrapsSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("rate limited")}
	mailer := NewConfirmationMailer(sender, "", nil)

	err := mailer.SendBookingConfirmation(context.Background(), testAppointment(), "Dr. Sarah Lee", "Cardiology")
	if err == nil || !strings.Contains(err.Error(), "booking confirmation") {
		t.Fatalf("err = %v", err)
	}
}
