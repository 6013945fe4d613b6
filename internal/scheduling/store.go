package scheduling

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

var schedulingTracer = otel.Tracer("clinicdesk.internal.scheduling")

// BookingReader exposes the read side of the appointment book.
type BookingReader interface {
	GetBookedTimes(ctx context.Context, doctorID string, date time.Time) ([]string, error)
}

// BookingStore is the full read/write surface the dialogue engine's
// confirmation step depends on.
type BookingStore interface {
	BookingReader
	Insert(ctx context.Context, appt Appointment) (*Appointment, error)
}

// querier is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("scheduling: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newStoreWithQuerier(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetBookedTimes returns the times already taken for (doctor, date),
// excluding cancelled appointments.
func (s *PostgresStore) GetBookedTimes(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.booked_times")
	defer span.End()

	query := `
		SELECT appointment_time
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		ORDER BY appointment_time
	`
	rows, err := s.db.Query(ctx, query, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: select booked times: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scheduling: scan booked time: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: iterate booked times: %w", err)
	}
	return out, nil
}

// Insert writes a new appointment. The partial unique index on
// (doctor_id, appointment_date, appointment_time) decides races: under two
// concurrent inserts for the same slot exactly one succeeds and the loser
// gets ErrSlotTaken.
func (s *PostgresStore) Insert(ctx context.Context, appt Appointment) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.insert")
	defer span.End()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.Status == "" {
		appt.Status = StatusConfirmed
	}

	query := `
		INSERT INTO appointments
			(id, clinic_id, department_id, doctor_id, patient_name, phone, email,
			 appointment_date, appointment_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		appt.ID,
		appt.ClinicID,
		appt.DepartmentID,
		appt.DoctorID,
		appt.PatientName,
		appt.Phone,
		appt.Email,
		appt.Date,
		appt.Time,
		appt.Status,
		appt.Notes,
	).Scan(&appt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return &appt, nil
}
