package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/internal/sessionstore"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// echoEngine replies with a fixed script and records what it saw.
type echoEngine struct {
	reply    string
	effects  dialog.Effects
	sessions []dialog.Session
	inputs   []string
	clinics  []string
}

func (e *echoEngine) Advance(_ context.Context, sess dialog.Session, utterance, clinicID string) (dialog.Session, string, dialog.Effects) {
	e.sessions = append(e.sessions, sess)
	e.inputs = append(e.inputs, utterance)
	e.clinics = append(e.clinics, clinicID)
	sess.Step = dialog.StepIntent
	return sess, e.reply, e.effects
}

// memSessions is an in-memory sessionstore.Store.
type memSessions struct {
	store map[string]dialog.Session
}

func newMemSessions() *memSessions {
	return &memSessions{store: make(map[string]dialog.Session)}
}

func (m *memSessions) Load(_ context.Context, id string) (dialog.Session, error) {
	sess, ok := m.store[id]
	if !ok {
		return dialog.Session{}, sessionstore.ErrNotFound
	}
	return sess, nil
}

func (m *memSessions) Save(_ context.Context, sess dialog.Session) error {
	m.store[sess.ID] = sess
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	delete(m.store, id)
	return nil
}

// memLedger records turns and summaries in memory.
type memLedger struct {
	turns     []ledger.TurnRecord
	summaries map[string]ledger.CallSummary
}

func newMemLedger() *memLedger {
	return &memLedger{summaries: make(map[string]ledger.CallSummary)}
}

func (m *memLedger) AppendTurn(_ context.Context, rec ledger.TurnRecord) error {
	m.turns = append(m.turns, rec)
	return nil
}

func (m *memLedger) UpsertSummary(_ context.Context, sum ledger.CallSummary) error {
	m.summaries[sum.SessionID] = sum
	return nil
}

func (m *memLedger) ListTurns(_ context.Context, sessionID string) ([]ledger.TurnRecord, error) {
	var out []ledger.TurnRecord
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memLedger) GetSummary(_ context.Context, sessionID string) (*ledger.CallSummary, error) {
	sum, ok := m.summaries[sessionID]
	if !ok {
		return nil, ledger.ErrSummaryNotFound
	}
	return &sum, nil
}

func (m *memLedger) ListSummaries(_ context.Context, clinicID string, _ int) ([]ledger.CallSummary, error) {
	var out []ledger.CallSummary
	for _, s := range m.summaries {
		if s.ClinicID == clinicID {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestHandler(engine chatEngine, sessions sessionstore.Store, records *memLedger) *Handler {
	return NewHandler(Config{
		Engine:   engine,
		Sessions: sessions,
		Records:  records,
		Reader:   records,
		Logger:   logging.New("error"),
		WidgetJS: []byte("// widget"),
	})
}

func TestConversationID(t *testing.T) {
	assert.Equal(t, "webchat:clinic-1:sess456", ConversationID("clinic-1", "sess456"))
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestHandleMessage_RunsTurn(t *testing.T) {
	engine := &echoEngine{reply: "What can I help you with today?"}
	sessions := newMemSessions()
	records := newMemLedger()
	h := newTestHandler(engine, sessions, records)

	body := `{"clinic_id":"clinic-1","session_id":"sess1","text":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, "assistant", resp.Role)
	assert.Equal(t, "What can I help you with today?", resp.Text)
	assert.Equal(t, "sess1", resp.SessionID)
	assert.False(t, resp.EndChat)

	// Engine saw a fresh session keyed by the canonical conversation id.
	require.Len(t, engine.sessions, 1)
	assert.Equal(t, "webchat:clinic-1:sess1", engine.sessions[0].ID)
	assert.Equal(t, dialog.StepGreeting, engine.sessions[0].Step)
	assert.Equal(t, []string{"Hello"}, engine.inputs)
	assert.Equal(t, []string{"clinic-1"}, engine.clinics)

	// Session persisted with the turn counter advanced.
	saved, err := sessions.Load(context.Background(), "webchat:clinic-1:sess1")
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Turn)
	assert.Equal(t, dialog.StepIntent, saved.Step)

	// Exchange landed in the ledger.
	require.Len(t, records.turns, 1)
	assert.Equal(t, "Hello", records.turns[0].Utterance)
	assert.Equal(t, "greeting", records.turns[0].Step)
	assert.Equal(t, "in_progress", records.summaries["webchat:clinic-1:sess1"].Outcome)
}

func TestHandleMessage_ContinuesSession(t *testing.T) {
	engine := &echoEngine{reply: "Got it."}
	sessions := newMemSessions()
	records := newMemLedger()
	h := newTestHandler(engine, sessions, records)

	sess := dialog.NewSession("webchat:clinic-1:sess1")
	sess.Step = dialog.StepName
	sess.Turn = 3
	require.NoError(t, sessions.Save(context.Background(), sess))

	body := `{"clinic_id":"clinic-1","session_id":"sess1","text":"John Smith"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	require.Len(t, engine.sessions, 1)
	assert.Equal(t, dialog.StepName, engine.sessions[0].Step)

	saved, err := sessions.Load(context.Background(), "webchat:clinic-1:sess1")
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Turn)
}

func TestHandleMessage_TransferFlag(t *testing.T) {
	engine := &echoEngine{
		reply:   "Let me connect you with our staff.",
		effects: dialog.Effects{ShouldTransfer: true},
	}
	h := newTestHandler(engine, newMemSessions(), newMemLedger())

	body := `{"clinic_id":"clinic-1","session_id":"sess1","text":"talk to a person"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Transfer)
	assert.False(t, resp.EndChat)
}

func TestHandleMessage_MissingFields(t *testing.T) {
	h := newTestHandler(&echoEngine{}, newMemSessions(), newMemLedger())

	body := `{"clinic_id":"","text":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	h := newTestHandler(&echoEngine{reply: "Hi."}, newMemSessions(), newMemLedger())

	body := `{"clinic_id":"clinic-1","text":"Hi"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp OutboundMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
}

func TestHandleHistory(t *testing.T) {
	records := newMemLedger()
	records.turns = []ledger.TurnRecord{
		{SessionID: "webchat:clinic-1:sess1", Turn: 1, Response: "Thank you for calling."},
		{SessionID: "webchat:clinic-1:sess1", Turn: 2, Utterance: "book an appointment", Response: "May I have your name?"},
		{SessionID: "webchat:clinic-1:other", Turn: 1, Utterance: "hi", Response: "Hello."},
	}
	h := newTestHandler(&echoEngine{}, newMemSessions(), records)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?clinic=clinic-1&session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "assistant", resp.Messages[0].Role)
	assert.Equal(t, "Thank you for calling.", resp.Messages[0].Text)
	assert.Equal(t, "user", resp.Messages[1].Role)
	assert.Equal(t, "book an appointment", resp.Messages[1].Text)
}

func TestHandleHistory_MissingParams(t *testing.T) {
	h := newTestHandler(&echoEngine{}, newMemSessions(), newMemLedger())

	req := httptest.NewRequest(http.MethodGet, "/chat/history?clinic=clinic-1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWidgetJS(t *testing.T) {
	widgetContent := []byte("(function(){ /* widget */ })();")
	h := NewHandler(Config{
		Engine:   &echoEngine{},
		Sessions: newMemSessions(),
		Records:  newMemLedger(),
		Logger:   logging.New("error"),
		WidgetJS: widgetContent,
	})

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, string(widgetContent), w.Body.String())
}
