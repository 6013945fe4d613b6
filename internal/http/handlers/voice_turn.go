package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicdesk/clinic-voice-platform/internal/archive"
	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/internal/notify"
	"github.com/clinicdesk/clinic-voice-platform/internal/observability/metrics"
	"github.com/clinicdesk/clinic-voice-platform/internal/patients"
	"github.com/clinicdesk/clinic-voice-platform/internal/sessionstore"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// ----- Voice webhook event types -----

// VoiceTurnEvent is the webhook payload the telephony platform posts once
// per caller utterance. Our endpoint is registered as a webhook tool on the
// platform's voice assistant; the assistant transcribes the caller and
// invokes the tool with the transcript.
type VoiceTurnEvent struct {
	// ConversationID groups turns within a single call and doubles as the
	// session id.
	ConversationID string `json:"conversation_id,omitempty"`
	// ClinicID identifies the clinic whose number received the call.
	ClinicID string `json:"clinic_id,omitempty"`
	// EventType identifies the webhook event (e.g. "tool_call").
	EventType string `json:"event_type,omitempty"`
	// From is the caller's phone number (E.164).
	From string `json:"from,omitempty"`
	// To is the clinic number that received the call (E.164).
	To string `json:"to,omitempty"`
	// Payload holds the tool invocation details.
	Payload VoiceTurnPayload `json:"payload,omitempty"`
}

// VoiceTurnPayload carries the tool call arguments.
type VoiceTurnPayload struct {
	ToolName   string            `json:"tool_name,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	// Arguments carries "transcript": the caller's latest utterance.
	Arguments map[string]string `json:"arguments,omitempty"`
}

// VoiceTurnResponse is what the platform's TTS engine speaks back, plus the
// call-control flags the dialogue produced.
type VoiceTurnResponse struct {
	ToolCallID string `json:"tool_call_id"`
	Response   string `json:"response"`
	EndCall    bool   `json:"end_call,omitempty"`
	Transfer   bool   `json:"transfer,omitempty"`
	NextInput  string `json:"next_input,omitempty"`
}

// VoiceTurnError is returned when the event itself is unusable.
type VoiceTurnError struct {
	ToolCallID string `json:"tool_call_id,omitempty"`
	Error      string `json:"error"`
}

// ----- Handler -----

// turnEngine is the dialogue surface the handler drives; *dialog.Engine
// satisfies it.
type turnEngine interface {
	Advance(ctx context.Context, sess dialog.Session, utterance, clinicID string) (dialog.Session, string, dialog.Effects)
}

// VoiceTurnHandler adapts the telephony webhook to the dialogue engine: it
// loads the session, runs one turn, persists the result, records the
// exchange in the ledger, and carries out the turn's side effects.
type VoiceTurnHandler struct {
	engine   turnEngine
	sessions sessionstore.Store
	records  ledger.Writer
	reader   ledger.Reader
	walkins  patients.Registrar
	mailer   *notify.ConfirmationMailer
	archive  *archive.Store
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// VoiceTurnHandlerConfig wires the handler's collaborators. Engine,
// Sessions, and Records are required; the rest degrade to no-ops.
type VoiceTurnHandlerConfig struct {
	Engine   turnEngine
	Sessions sessionstore.Store
	Records  ledger.Writer
	Reader   ledger.Reader
	Walkins  patients.Registrar
	Mailer   *notify.ConfirmationMailer
	Archive  *archive.Store
	Metrics  *metrics.ConversationMetrics
	Logger   *logging.Logger
}

// NewVoiceTurnHandler creates the webhook handler.
func NewVoiceTurnHandler(cfg VoiceTurnHandlerConfig) *VoiceTurnHandler {
	if cfg.Engine == nil {
		panic("handlers: dialogue engine required")
	}
	if cfg.Sessions == nil {
		panic("handlers: session store required")
	}
	if cfg.Records == nil {
		panic("handlers: ledger required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &VoiceTurnHandler{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		records:  cfg.Records,
		reader:   cfg.Reader,
		walkins:  cfg.Walkins,
		mailer:   cfg.Mailer,
		archive:  cfg.Archive,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// HandleTurn is the HTTP handler for POST /webhooks/voice/turn.
func (h *VoiceTurnHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := h.now()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		h.logger.Error("voice turn: read body", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var event VoiceTurnEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("voice turn: parse event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if event.ConversationID == "" {
		h.writeError(w, event.Payload.ToolCallID, "conversation_id required", http.StatusBadRequest)
		return
	}

	transcript := strings.TrimSpace(event.Payload.Arguments["transcript"])

	sess, err := h.sessions.Load(ctx, event.ConversationID)
	if errors.Is(err, sessionstore.ErrNotFound) {
		sess = dialog.NewSession(event.ConversationID)
	} else if err != nil {
		// A broken session store must not strand the caller in silence.
		h.logger.Error("voice turn: load session", "error", err, "session_id", event.ConversationID)
		sess = dialog.NewSession(event.ConversationID)
	}

	next, text, effects := h.engine.Advance(ctx, sess, transcript, event.ClinicID)
	next.Turn = sess.Turn + 1

	if err := h.sessions.Save(ctx, next); err != nil {
		h.logger.Error("voice turn: save session", "error", err, "session_id", next.ID)
	}

	h.recordTurn(ctx, event, sess, next, transcript, text, effects)
	h.applyEffects(ctx, event, next, effects)

	h.metrics.ObserveTurnLatency("voice", h.now().Sub(start).Seconds())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(VoiceTurnResponse{
		ToolCallID: event.Payload.ToolCallID,
		Response:   text,
		EndCall:    effects.ShouldHangup,
		Transfer:   effects.ShouldTransfer,
		NextInput:  effects.NextExpectedInput,
	})
}

func turnOutcome(effects dialog.Effects) string {
	switch {
	case effects.ShouldTransfer:
		return "transferred"
	case effects.ShouldHangup:
		return "completed"
	case effects.AppointmentBooked != nil:
		return "booked"
	default:
		return "in_progress"
	}
}

// recordTurn appends the exchange and refreshes the call summary. Ledger
// failures are logged, never surfaced to the caller.
func (h *VoiceTurnHandler) recordTurn(ctx context.Context, event VoiceTurnEvent, prev, next dialog.Session, utterance, response string, effects dialog.Effects) {
	outcome := turnOutcome(effects)

	err := h.records.AppendTurn(ctx, ledger.TurnRecord{
		SessionID: next.ID,
		ClinicID:  event.ClinicID,
		Turn:      next.Turn,
		Step:      string(prev.Step),
		Utterance: utterance,
		Response:  response,
		Outcome:   outcome,
	})
	if err != nil {
		h.logger.Error("voice turn: append turn record", "error", err, "session_id", next.ID)
	}

	sum := ledger.CallSummary{
		SessionID:         next.ID,
		ClinicID:          event.ClinicID,
		Intent:            string(next.Intent),
		PatientName:       next.Slots.PatientName,
		Phone:             next.Slots.Phone,
		Outcome:           outcome,
		AppointmentBooked: effects.AppointmentBooked != nil,
		Turns:             next.Turn,
	}
	if effects.AppointmentBooked != nil {
		sum.AppointmentID = effects.AppointmentBooked.ID
	}
	if err := h.records.UpsertSummary(ctx, sum); err != nil {
		h.logger.Error("voice turn: upsert summary", "error", err, "session_id", next.ID)
	}
}

// applyEffects carries out the side effects the turn produced. Every branch
// is best-effort: the caller already heard the agent's reply.
func (h *VoiceTurnHandler) applyEffects(ctx context.Context, event VoiceTurnEvent, sess dialog.Session, effects dialog.Effects) {
	if appt := effects.AppointmentBooked; appt != nil && h.mailer != nil {
		if err := h.mailer.SendBookingConfirmation(ctx, *appt, sess.Slots.DoctorName, sess.Slots.DepartmentName); err != nil {
			h.logger.Error("voice turn: confirmation email", "error", err, "appointment_id", appt.ID)
		}
	}

	if reg := effects.PatientRegistered; reg != nil && h.walkins != nil {
		_, err := h.walkins.RegisterWalkin(ctx, patients.WalkinPatient{
			ClinicID: reg.ClinicID,
			Name:     reg.Name,
			Phone:    reg.Phone,
			Reason:   reg.Reason,
		})
		if err != nil {
			h.logger.Error("voice turn: register walk-in", "error", err, "session_id", sess.ID)
		}
	}

	if (effects.ShouldHangup || effects.ShouldTransfer) && h.archive.Enabled() && h.reader != nil {
		turns, err := h.reader.ListTurns(ctx, sess.ID)
		if err != nil {
			h.logger.Error("voice turn: list turns for archive", "error", err, "session_id", sess.ID)
			return
		}
		err = h.archive.ArchiveCall(ctx, &archive.CallRecord{
			SessionID: sess.ID,
			ClinicID:  event.ClinicID,
			Outcome:   turnOutcome(effects),
			Booked:    effects.AppointmentBooked != nil,
			Turns:     turns,
		})
		if err != nil {
			h.logger.Error("voice turn: archive call", "error", err, "session_id", sess.ID)
		}
	}
}

func (h *VoiceTurnHandler) writeError(w http.ResponseWriter, toolCallID, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(VoiceTurnError{ToolCallID: toolCallID, Error: msg})
}
