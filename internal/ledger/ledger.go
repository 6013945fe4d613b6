// Package ledger is the append-only record of what was said on each call.
// Turn records are never updated or deleted; the per-call summary row is the
// only mutable piece, and its booked flag only ever moves from false to true.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
)

var ledgerTracer = otel.Tracer("clinicdesk.internal.ledger")

// ErrSummaryNotFound indicates no summary row exists for the session.
var ErrSummaryNotFound = errors.New("ledger: call summary not found")

// TurnRecord is one caller/agent exchange.
type TurnRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ClinicID  string    `json:"clinic_id"`
	Turn      int       `json:"turn"`
	Step      string    `json:"step"`
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// CallSummary is the one-row-per-call rollup the admin surface reads.
type CallSummary struct {
	SessionID         string    `json:"session_id"`
	ClinicID          string    `json:"clinic_id"`
	Intent            string    `json:"intent,omitempty"`
	PatientName       string    `json:"patient_name,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Outcome           string    `json:"outcome"`
	AppointmentBooked bool      `json:"appointment_booked"`
	AppointmentID     string    `json:"appointment_id,omitempty"`
	Turns             int       `json:"turns"`
	StartedAt         time.Time `json:"started_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Writer is the per-turn surface the transports use.
type Writer interface {
	AppendTurn(ctx context.Context, rec TurnRecord) error
	UpsertSummary(ctx context.Context, sum CallSummary) error
}

// Reader serves the admin transcript endpoints.
type Reader interface {
	ListTurns(ctx context.Context, sessionID string) ([]TurnRecord, error)
	GetSummary(ctx context.Context, sessionID string) (*CallSummary, error)
	ListSummaries(ctx context.Context, clinicID string, limit int) ([]CallSummary, error)
}

// querier is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists the conversation ledger.
type PostgresLedger struct {
	db querier
}

// NewPostgresLedger initializes a ledger backed by pgxpool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("ledger: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

func newLedgerWithQuerier(db querier) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// AppendTurn writes one exchange. Records are insert-only.
func (l *PostgresLedger) AppendTurn(ctx context.Context, rec TurnRecord) error {
	ctx, span := ledgerTracer.Start(ctx, "ledger.append_turn")
	defer span.End()

	if rec.SessionID == "" {
		return errors.New("ledger: session id required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `
		INSERT INTO turn_records
			(id, session_id, clinic_id, turn, step, utterance, response, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.db.Exec(ctx, query,
		rec.ID,
		rec.SessionID,
		rec.ClinicID,
		rec.Turn,
		rec.Step,
		rec.Utterance,
		rec.Response,
		rec.Outcome,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("ledger: insert turn record: %w", err)
	}
	return nil
}

// UpsertSummary creates or refreshes the call's summary row. The booked flag
// is monotonic: once true it survives later updates from non-booking turns.
func (l *PostgresLedger) UpsertSummary(ctx context.Context, sum CallSummary) error {
	ctx, span := ledgerTracer.Start(ctx, "ledger.upsert_summary")
	defer span.End()

	if sum.SessionID == "" {
		return errors.New("ledger: session id required")
	}

	query := `
		INSERT INTO call_summaries
			(session_id, clinic_id, intent, patient_name, phone, outcome,
			 appointment_booked, appointment_id, turns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) DO UPDATE SET
			intent             = EXCLUDED.intent,
			patient_name       = EXCLUDED.patient_name,
			phone              = EXCLUDED.phone,
			outcome            = EXCLUDED.outcome,
			appointment_booked = call_summaries.appointment_booked OR EXCLUDED.appointment_booked,
			appointment_id     = COALESCE(NULLIF(EXCLUDED.appointment_id, ''), call_summaries.appointment_id),
			turns              = GREATEST(call_summaries.turns, EXCLUDED.turns),
			updated_at         = now()
	`
	_, err := l.db.Exec(ctx, query,
		sum.SessionID,
		sum.ClinicID,
		sum.Intent,
		sum.PatientName,
		sum.Phone,
		sum.Outcome,
		sum.AppointmentBooked,
		sum.AppointmentID,
		sum.Turns,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("ledger: upsert call summary: %w", err)
	}
	return nil
}

// ListTurns returns the session's exchanges in spoken order.
func (l *PostgresLedger) ListTurns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.list_turns")
	defer span.End()

	query := `
		SELECT id, session_id, clinic_id, turn, step, utterance, response, outcome, created_at
		FROM turn_records
		WHERE session_id = $1
		ORDER BY turn
	`
	rows, err := l.db.Query(ctx, query, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ledger: select turn records: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ClinicID, &r.Turn, &r.Step,
			&r.Utterance, &r.Response, &r.Outcome, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan turn record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate turn records: %w", err)
	}
	return out, nil
}

// GetSummary fetches one call's summary.
func (l *PostgresLedger) GetSummary(ctx context.Context, sessionID string) (*CallSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.get_summary")
	defer span.End()

	query := `
		SELECT session_id, clinic_id, intent, patient_name, phone, outcome,
		       appointment_booked, appointment_id, turns, started_at, updated_at
		FROM call_summaries
		WHERE session_id = $1
	`
	var s CallSummary
	err := l.db.QueryRow(ctx, query, sessionID).Scan(
		&s.SessionID, &s.ClinicID, &s.Intent, &s.PatientName, &s.Phone, &s.Outcome,
		&s.AppointmentBooked, &s.AppointmentID, &s.Turns, &s.StartedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ledger: select call summary: %w", err)
	}
	return &s, nil
}

// ListSummaries returns the clinic's most recent calls.
func (l *PostgresLedger) ListSummaries(ctx context.Context, clinicID string, limit int) ([]CallSummary, error) {
	ctx, span := ledgerTracer.Start(ctx, "ledger.list_summaries")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT session_id, clinic_id, intent, patient_name, phone, outcome,
		       appointment_booked, appointment_id, turns, started_at, updated_at
		FROM call_summaries
		WHERE clinic_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`
	rows, err := l.db.Query(ctx, query, clinicID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("ledger: select call summaries: %w", err)
	}
	defer rows.Close()

	var out []CallSummary
	for rows.Next() {
		var s CallSummary
		if err := rows.Scan(&s.SessionID, &s.ClinicID, &s.Intent, &s.PatientName, &s.Phone,
			&s.Outcome, &s.AppointmentBooked, &s.AppointmentID, &s.Turns, &s.StartedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan call summary: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate call summaries: %w", err)
	}
	return out, nil
}
