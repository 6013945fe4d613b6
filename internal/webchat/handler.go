package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/internal/observability/metrics"
	"github.com/clinicdesk/clinic-voice-platform/internal/sessionstore"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// chatEngine is the dialogue surface the chat channel drives; *dialog.Engine
// satisfies it.
type chatEngine interface {
	Advance(ctx context.Context, sess dialog.Session, utterance, clinicID string) (dialog.Session, string, dialog.Effects)
}

// Handler manages web chat connections. Unlike the voice webhook, the widget
// holds a live socket, so each inbound message runs a dialogue turn and the
// reply goes straight back down the same connection.
type Handler struct {
	engine   chatEngine
	sessions sessionstore.Store
	records  ledger.Writer
	reader   ledger.Reader
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	widgetJS []byte
	now      func() time.Time

	mu    sync.RWMutex
	conns map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// Config wires the handler's collaborators. Engine, Sessions, and Records
// are required; Reader enables history, Metrics and Logger degrade to no-ops.
type Config struct {
	Engine   chatEngine
	Sessions sessionstore.Store
	Records  ledger.Writer
	Reader   ledger.Reader
	Metrics  *metrics.ConversationMetrics
	Logger   *logging.Logger
	WidgetJS []byte
}

// NewHandler creates a web chat handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Engine == nil {
		panic("webchat: dialogue engine required")
	}
	if cfg.Sessions == nil {
		panic("webchat: session store required")
	}
	if cfg.Records == nil {
		panic("webchat: ledger required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Handler{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		records:  cfg.Records,
		reader:   cfg.Reader,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		widgetJS: cfg.WidgetJS,
		now:      time.Now,
		conns:    make(map[string]*wsConn),
	}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	ClinicID  string `json:"clinic_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "session", "history", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	EndChat   bool             `json:"end_chat,omitempty"`
	Transfer  bool             `json:"transfer,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ConversationID builds the canonical conversation ID for a webchat session.
func ConversationID(clinicID, sessionID string) string {
	return fmt.Sprintf("webchat:%s:%s", clinicID, sessionID)
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	clinicID := r.URL.Query().Get("clinic")
	if clinicID == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing clinic parameter"})
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	convID := ConversationID(clinicID, sessionID)

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	if history := h.loadHistory(r.Context(), convID); len(history) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
	}

	// One live socket per conversation; a reconnect supersedes the old one.
	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	if prev, ok := h.conns[convID]; ok {
		_ = prev.conn.Close()
	}
	h.conns[convID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.conns[convID] == wsc {
			delete(h.conns, convID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("webchat: connection opened", "clinic_id", clinicID, "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "clinic_id", clinicID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		reply := h.processMessage(r.Context(), clinicID, sessionID, msg.Text)
		_ = websocket.JSON.Send(conn, reply)

		// The dialogue decided the conversation is over; close our side so
		// the widget falls back to its "chat ended" state.
		if reply.EndChat || reply.Transfer {
			return
		}
	}
}

// processMessage runs one dialogue turn and returns the agent's reply.
func (h *Handler) processMessage(ctx context.Context, clinicID, sessionID, text string) OutboundMessage {
	start := h.now()
	convID := ConversationID(clinicID, sessionID)
	text = strings.TrimSpace(text)

	sess, err := h.sessions.Load(ctx, convID)
	if errors.Is(err, sessionstore.ErrNotFound) {
		sess = dialog.NewSession(convID)
	} else if err != nil {
		h.logger.Error("webchat: load session", "error", err, "session_id", convID)
		sess = dialog.NewSession(convID)
	}

	next, reply, effects := h.engine.Advance(ctx, sess, text, clinicID)
	next.Turn = sess.Turn + 1

	if err := h.sessions.Save(ctx, next); err != nil {
		h.logger.Error("webchat: save session", "error", err, "session_id", convID)
	}

	h.recordTurn(ctx, clinicID, sess, next, text, reply, effects)

	h.metrics.ObserveTurnLatency("webchat", h.now().Sub(start).Seconds())

	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      reply,
		SessionID: sessionID,
		EndChat:   effects.ShouldHangup,
		Transfer:  effects.ShouldTransfer,
	}
}

func chatOutcome(effects dialog.Effects) string {
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
// failures are logged, never surfaced to the widget.
func (h *Handler) recordTurn(ctx context.Context, clinicID string, prev, next dialog.Session, utterance, response string, effects dialog.Effects) {
	outcome := chatOutcome(effects)

	err := h.records.AppendTurn(ctx, ledger.TurnRecord{
		SessionID: next.ID,
		ClinicID:  clinicID,
		Turn:      next.Turn,
		Step:      string(prev.Step),
		Utterance: utterance,
		Response:  response,
		Outcome:   outcome,
	})
	if err != nil {
		h.logger.Error("webchat: append turn record", "error", err, "session_id", next.ID)
	}

	sum := ledger.CallSummary{
		SessionID:         next.ID,
		ClinicID:          clinicID,
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
		h.logger.Error("webchat: upsert summary", "error", err, "session_id", next.ID)
	}
}

// loadHistory rebuilds the widget-facing transcript from the ledger. Each
// recorded turn is one user line (when the turn had an utterance) followed
// by one assistant line.
func (h *Handler) loadHistory(ctx context.Context, convID string) []HistoryMessage {
	if h.reader == nil {
		return nil
	}
	turns, err := h.reader.ListTurns(ctx, convID)
	if err != nil {
		h.logger.Error("webchat: load history", "error", err, "session_id", convID)
		return nil
	}
	history := make([]HistoryMessage, 0, len(turns)*2)
	for _, t := range turns {
		if t.Utterance != "" {
			history = append(history, HistoryMessage{Role: "user", Text: t.Utterance})
		}
		if t.Response != "" {
			history = append(history, HistoryMessage{Role: "assistant", Text: t.Response})
		}
	}
	return history
}

// HandleMessage is the HTTP fallback for widgets that cannot hold a socket.
// The turn runs synchronously and the reply comes back in the response body.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClinicID  string `json:"clinic_id"`
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClinicID == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "clinic_id and text are required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	reply := h.processMessage(r.Context(), req.ClinicID, req.SessionID, req.Text)
	reply.SessionID = req.SessionID

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	clinicID := r.URL.Query().Get("clinic")
	sessionID := r.URL.Query().Get("session")
	if clinicID == "" || sessionID == "" {
		http.Error(w, "clinic and session parameters required", http.StatusBadRequest)
		return
	}

	history := h.loadHistory(r.Context(), ConversationID(clinicID, sessionID))
	if history == nil {
		history = []HistoryMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": history})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
