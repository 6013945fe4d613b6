package dialog

import "time"

// Step identifies where in the dialogue a session is. Values are stable
// strings because sessions round-trip through external stores every turn.
type Step string

const (
	StepGreeting      Step = "greeting"
	StepIntent        Step = "intent"
	StepName          Step = "name"
	StepPhone         Step = "phone"
	StepEmail         Step = "email"
	StepDateOfBirth   Step = "dateOfBirth"
	StepDepartment    Step = "department"
	StepDoctor        Step = "doctor"
	StepDate          Step = "date"
	StepTime          Step = "time"
	StepConfirmation  Step = "confirmation"
	StepWalkinDetails Step = "walkinDetails"
	StepComplete      Step = "complete"
	StepTransfer      Step = "transfer"
)

// Known reports whether the step is one the engine can dispatch. A session
// arriving with an unknown step is malformed and escalates.
func (s Step) Known() bool {
	switch s {
	case StepGreeting, StepIntent, StepName, StepPhone, StepEmail,
		StepDateOfBirth, StepDepartment, StepDoctor, StepDate, StepTime,
		StepConfirmation, StepWalkinDetails, StepComplete, StepTransfer:
		return true
	}
	return false
}

// Intent is the caller's classified purpose, set once per session.
type Intent string

const (
	IntentAppointment Intent = "appointment"
	IntentWalkIn      Intent = "walk-in"
	IntentFAQ         Intent = "faq"
	IntentGeneral     Intent = "general"
)

// DoctorOption is a transient candidate carried between turns so the date
// step can resolve availability without another directory read.
type DoctorOption struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	WorkingDays []string `json:"working_days"`
	DailySlots  []string `json:"daily_slots"`
}

// Slots holds everything the dialogue has collected so far. Values, once
// set, are only replaced when the caller explicitly walks the flow backward.
type Slots struct {
	PatientName    string         `json:"patient_name,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	Email          string         `json:"email,omitempty"`
	DateOfBirth    string         `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	DepartmentID   string         `json:"department_id,omitempty"`
	DepartmentName string         `json:"department_name,omitempty"`
	DoctorID       string         `json:"doctor_id,omitempty"`
	DoctorName     string         `json:"doctor_name,omitempty"`
	Date           string         `json:"date,omitempty"` // YYYY-MM-DD
	Time           string         `json:"time,omitempty"` // HH:MM
	Reason         string         `json:"reason,omitempty"`
	Doctors        []DoctorOption `json:"doctors,omitempty"`
	TimeSlots      []string       `json:"time_slots,omitempty"`
}

// Session is the full per-call conversation state. The engine is stateless
// between turns: callers pass the session in and persist what comes back.
// Turn is maintained by the transport, not the engine, so replayed webhooks
// don't advance it.
type Session struct {
	ID           string    `json:"id"`
	Step         Step      `json:"step"`
	Intent       Intent    `json:"intent,omitempty"`
	Slots        Slots     `json:"slots"`
	Attempts     int       `json:"attempts"`
	Turn         int       `json:"turn"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession starts a session at the greeting step. The id is supplied by
// the transport (call id, websocket conversation id) and is opaque here.
func NewSession(id string) Session {
	return Session{ID: id, Step: StepGreeting}
}

// chosenDoctor returns the selected doctor's transient option, if any.
func (s *Session) chosenDoctor() (DoctorOption, bool) {
	for _, d := range s.Slots.Doctors {
		if d.ID == s.Slots.DoctorID {
			return d, true
		}
	}
	return DoctorOption{}, false
}
