package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/scheduling"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// ConfirmationMailer composes and sends booking confirmation emails. A nil
// mailer or a booking without an email address is a silent no-op: the email
// is a courtesy, never a booking dependency.
type ConfirmationMailer struct {
	sender     EmailSender
	clinicName string
	logger     *logging.Logger
}

// NewConfirmationMailer builds the mailer. sender may be nil when email is
// disabled entirely.
func NewConfirmationMailer(sender EmailSender, clinicName string, logger *logging.Logger) *ConfirmationMailer {
	if logger == nil {
		logger = logging.Default()
	}
	if clinicName == "" {
		clinicName = "the clinic"
	}
	return &ConfirmationMailer{sender: sender, clinicName: clinicName, logger: logger}
}

// SendBookingConfirmation emails the appointment details to the patient.
func (m *ConfirmationMailer) SendBookingConfirmation(ctx context.Context, appt scheduling.Appointment, doctorName, departmentName string) error {
	if m == nil || m.sender == nil {
		return nil
	}
	if appt.Email == "" {
		return nil
	}

	when := appt.Date.Format("Monday, January 2, 2006")
	msg := EmailMessage{
		To:      appt.Email,
		ToName:  appt.PatientName,
		Subject: fmt.Sprintf("Your appointment on %s", appt.Date.Format("January 2")),
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour appointment is confirmed:\n\n"+
				"  Doctor: %s (%s)\n  Date: %s\n  Time: %s\n\n"+
				"If you need to change or cancel, please call us.\n\n%s",
			appt.PatientName, doctorName, departmentName, when, displayTime(appt.Time), m.clinicName),
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking confirmation: %w", err)
	}
	m.logger.Info("booking confirmation sent", "appointment_id", appt.ID, "to", appt.Email)
	return nil
}

// displayTime renders "14:00" as "2:00 PM" for the email body.
func displayTime(slot string) string {
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return slot
	}
	return t.Format("3:04 PM")
}
