package scheduling

import (
	"errors"
	"time"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// ErrSlotTaken is returned when an insert loses the race for a slot. The
// storage uniqueness constraint on (doctor, date, time) over non-cancelled
// rows is the single serialization point; callers recover by re-offering
// slots, never by treating this as fatal.
var ErrSlotTaken = errors.New("scheduling: slot already booked")

// Appointment is one booked visit.
type Appointment struct {
	ID           string    `json:"id"`
	ClinicID     string    `json:"clinic_id"`
	DepartmentID string    `json:"department_id"`
	DoctorID     string    `json:"doctor_id"`
	PatientName  string    `json:"patient_name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Date         time.Time `json:"date"`
	Time         string    `json:"time"` // "HH:MM"
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
