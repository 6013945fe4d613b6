package dialog

import (
	"context"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/directory"
	"github.com/clinicdesk/clinic-voice-platform/internal/scheduling"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// Next-input hints for the transport: keep listening, or stop (the call is
// being transferred or ended).
const (
	InputSpeech = "speech"
	InputNone   = "none"
)

// PatientRecord describes a walk-in patient the caller of the engine should
// register once the turn returns.
type PatientRecord struct {
	ClinicID string `json:"clinic_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Reason   string `json:"reason"`
}

// Effects are the side-effect instructions a turn produces. The engine never
// performs these itself; the transport layer does.
type Effects struct {
	ShouldTransfer    bool                    `json:"should_transfer"`
	ShouldHangup      bool                    `json:"should_hangup"`
	AppointmentBooked *scheduling.Appointment `json:"appointment_booked,omitempty"`
	PatientRegistered *PatientRecord          `json:"patient_registered,omitempty"`
	NextExpectedInput string                  `json:"next_expected_input"`
}

// TurnObserver receives conversation metrics. The engine installs a no-op
// when none is configured.
type TurnObserver interface {
	ObserveTurn(step, outcome string)
	ObserveTransfer(reason string)
	ObserveBooking(status string)
}

type noopObserver struct{}

func (noopObserver) ObserveTurn(string, string) {}
func (noopObserver) ObserveTransfer(string)     {}
func (noopObserver) ObserveBooking(string)      {}

// reply is what a state handler returns to the engine loop.
type reply struct {
	next    Step
	text    string
	fail    bool // failed extraction: re-prompt and count the attempt
	effects Effects
}

// Engine is the dialogue manager. It is a pure request/response transformer:
// (session, utterance) in, (session, agent text, effects) out. It holds no
// per-call state of its own; everything lives in the Session value.
type Engine struct {
	directory directory.Reader
	bookings  scheduling.BookingStore
	resolver  *scheduling.Resolver
	logger    *logging.Logger
	metrics   TurnObserver
	now       func() time.Time

	maxAttempts             int
	confirmationMaxAttempts int
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock fixes the engine's notion of now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics installs a turn observer.
func WithMetrics(m TurnObserver) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithAttemptLimits overrides the retry thresholds.
func WithAttemptLimits(max, confirmation int) Option {
	return func(e *Engine) {
		if max > 0 {
			e.maxAttempts = max
		}
		if confirmation > 0 {
			e.confirmationMaxAttempts = confirmation
		}
	}
}

// NewEngine builds the dialogue manager over its collaborators.
func NewEngine(dir directory.Reader, bookings scheduling.BookingStore, logger *logging.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		directory:               dir,
		bookings:                bookings,
		resolver:                scheduling.NewResolver(bookings),
		logger:                  logger,
		metrics:                 noopObserver{},
		now:                     time.Now,
		maxAttempts:             3,
		confirmationMaxAttempts: 2,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Advance runs one conversation turn. Every path returns a well-formed
// (session, text, effects) triple; collaborator failures surface as an
// apology plus a transfer, never as an error.
func (e *Engine) Advance(ctx context.Context, sess Session, utterance, clinicID string) (Session, string, Effects) {
	stepBefore := sess.Step
	sess.LastActivity = e.now().UTC()
	utterance = strings.TrimSpace(utterance)

	if !sess.Step.Known() {
		e.logger.Warn("unknown session step", "session_id", sess.ID, "step", string(sess.Step))
		return e.transfer(sess, msgUnavailable, "malformed_session")
	}

	// Escalation keywords win over all state logic for the turn.
	if containsKeyword(utterance, urgencyKeywords) {
		return e.transfer(sess, msgUrgent, "urgency")
	}
	if containsKeyword(utterance, escalationKeywords) {
		return e.transfer(sess, msgTransfer, "requested")
	}

	r := e.dispatch(ctx, &sess, utterance, clinicID)

	if r.fail {
		sess.Attempts++
		if sess.Attempts >= e.limitFor(sess.Step) {
			return e.transfer(sess, msgEscalate, "attempts_exhausted")
		}
		e.metrics.ObserveTurn(string(stepBefore), "retry")
		return sess, r.text, speechEffects(r.effects)
	}

	sess.Attempts = 0
	sess.Step = r.next

	outcome := "advance"
	switch {
	case r.effects.ShouldTransfer:
		outcome = "transfer"
	case r.effects.ShouldHangup:
		outcome = "hangup"
	case r.effects.AppointmentBooked != nil:
		outcome = "booked"
	}
	e.metrics.ObserveTurn(string(stepBefore), outcome)
	if r.effects.AppointmentBooked != nil {
		e.metrics.ObserveBooking("confirmed")
	}
	if r.effects.ShouldTransfer {
		e.metrics.ObserveTransfer("handler")
	}

	return sess, r.text, speechEffects(r.effects)
}

func (e *Engine) limitFor(step Step) int {
	if step == StepConfirmation {
		return e.confirmationMaxAttempts
	}
	return e.maxAttempts
}

// transfer ends the engine's involvement: the session parks at the transfer
// step and the transport hands the call to a human.
func (e *Engine) transfer(sess Session, text, reason string) (Session, string, Effects) {
	sess.Step = StepTransfer
	sess.Attempts = 0
	e.metrics.ObserveTransfer(reason)
	e.logger.Info("transferring call", "session_id", sess.ID, "reason", reason)
	return sess, text, Effects{ShouldTransfer: true, NextExpectedInput: InputNone}
}

// unavailable is the in-handler form of a collaborator failure.
func (e *Engine) unavailable(err error, sessID string) reply {
	e.logger.Error("collaborator unavailable", "session_id", sessID, "error", err)
	return reply{
		next:    StepTransfer,
		text:    msgUnavailable,
		effects: Effects{ShouldTransfer: true, NextExpectedInput: InputNone},
	}
}

func speechEffects(eff Effects) Effects {
	if eff.NextExpectedInput == "" {
		eff.NextExpectedInput = InputSpeech
	}
	return eff
}

func (e *Engine) dispatch(ctx context.Context, sess *Session, utterance, clinicID string) reply {
	switch sess.Step {
	case StepGreeting:
		return e.handleGreeting(ctx, sess, utterance, clinicID)
	case StepIntent:
		return e.handleIntent(ctx, sess, utterance, clinicID)
	case StepName:
		return e.handleName(sess, utterance)
	case StepPhone:
		return e.handlePhone(sess, utterance)
	case StepEmail:
		return e.handleEmail(sess, utterance)
	case StepDateOfBirth:
		return e.handleDateOfBirth(ctx, sess, utterance, clinicID)
	case StepDepartment:
		return e.handleDepartment(ctx, sess, utterance, clinicID)
	case StepDoctor:
		return e.handleDoctor(sess, utterance)
	case StepDate:
		return e.handleDate(ctx, sess, utterance)
	case StepTime:
		return e.handleTime(sess, utterance)
	case StepConfirmation:
		return e.handleConfirmation(ctx, sess, utterance, clinicID)
	case StepWalkinDetails:
		return e.handleWalkinDetails(sess, utterance, clinicID)
	case StepComplete:
		return e.handleComplete(ctx, sess, utterance, clinicID)
	case StepTransfer:
		return reply{
			next:    StepTransfer,
			text:    msgTransfer,
			effects: Effects{ShouldTransfer: true, NextExpectedInput: InputNone},
		}
	}
	// Unreachable: Known() is checked before dispatch.
	return e.unavailable(nil, sess.ID)
}
