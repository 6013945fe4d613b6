package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Reader supplies the per-request directory snapshot the dialogue engine
// consults. Implementations must be safe for concurrent use.
type Reader interface {
	GetDepartments(ctx context.Context, clinicID string) ([]Department, error)
	GetDoctors(ctx context.Context, clinicID, departmentID string) ([]Doctor, error)
}

// querier is the subset of pgxpool.Pool used here; pgxmock satisfies it.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository reads clinic directory data from Postgres.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newRepositoryWithQuerier(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetDepartments returns the clinic's active departments in display order.
func (r *PostgresRepository) GetDepartments(ctx context.Context, clinicID string) ([]Department, error) {
	query := `
		SELECT id, name
		FROM departments
		WHERE clinic_id = $1 AND active
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("directory: select departments: %w", err)
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("directory: scan department: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate departments: %w", err)
	}
	return out, nil
}

// GetDoctors returns the department's active doctors with their weekly
// availability templates.
func (r *PostgresRepository) GetDoctors(ctx context.Context, clinicID, departmentID string) ([]Doctor, error) {
	query := `
		SELECT id, department_id, name, working_days, daily_slots
		FROM doctors
		WHERE clinic_id = $1 AND department_id = $2 AND active
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, clinicID, departmentID)
	if err != nil {
		return nil, fmt.Errorf("directory: select doctors: %w", err)
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.DepartmentID, &d.Name, &d.WorkingDays, &d.DailySlots); err != nil {
			return nil, fmt.Errorf("directory: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate doctors: %w", err)
	}
	return out, nil
}
