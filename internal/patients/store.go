// Package patients manages the walk-in queue. Registration happens over the
// standard database/sql interface so the queue can live in a separate
// reporting database from the appointment book.
package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var patientsTracer = otel.Tracer("clinicdesk.internal.patients")

// WalkinPatient is one entry in today's walk-in queue.
type WalkinPatient struct {
	ID        string    `json:"id"`
	ClinicID  string    `json:"clinic_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Reason    string    `json:"reason"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Registrar is the write surface the voice transport uses when a walk-in
// turn completes.
type Registrar interface {
	RegisterWalkin(ctx context.Context, p WalkinPatient) (*WalkinPatient, error)
}

// Store persists walk-in registrations.
type Store struct {
	db *sql.DB
}

// NewStore initializes the walk-in store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("patients: sql db required")
	}
	return &Store{db: db}
}

// RegisterWalkin appends the patient to today's queue and reports their
// position in it.
func (s *Store) RegisterWalkin(ctx context.Context, p WalkinPatient) (*WalkinPatient, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.register_walkin")
	defer span.End()

	if p.ClinicID == "" || p.Name == "" {
		return nil, errors.New("patients: clinic id and name required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO walkin_patients (id, clinic_id, patient_name, phone, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at,
			(SELECT COUNT(*) FROM walkin_patients
			 WHERE clinic_id = $2 AND created_at::date = CURRENT_DATE) + 1
	`
	err := s.db.QueryRowContext(ctx, query, p.ID, p.ClinicID, p.Name, p.Phone, p.Reason).
		Scan(&p.CreatedAt, &p.Position)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("patients: insert walk-in: %w", err)
	}
	return &p, nil
}

// ListToday returns the clinic's walk-in queue for the current day, in
// arrival order.
func (s *Store) ListToday(ctx context.Context, clinicID string) ([]WalkinPatient, error) {
	ctx, span := patientsTracer.Start(ctx, "patients.list_today")
	defer span.End()

	query := `
		SELECT id, clinic_id, patient_name, phone, reason, created_at
		FROM walkin_patients
		WHERE clinic_id = $1 AND created_at::date = CURRENT_DATE
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, clinicID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("patients: select walk-ins: %w", err)
	}
	defer rows.Close()

	var out []WalkinPatient
	for rows.Next() {
		var p WalkinPatient
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Phone, &p.Reason, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("patients: scan walk-in: %w", err)
		}
		p.Position = len(out) + 1
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("patients: iterate walk-ins: %w", err)
	}
	return out, nil
}
