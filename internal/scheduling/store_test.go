package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestGetBookedTimes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newStoreWithQuerier(mock)

	date := time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"appointment_time"}).
		AddRow("09:00").
		AddRow("10:30")
	mock.ExpectQuery("SELECT appointment_time").WithArgs("doc-1", date).WillReturnRows(rows)

	times, err := store.GetBookedTimes(context.Background(), "doc-1", date)
	if err != nil {
		t.Fatalf("GetBookedTimes failed: %v", err)
	}
	if len(times) != 2 || times[0] != "09:00" || times[1] != "10:30" {
		t.Fatalf("unexpected times: %v", times)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertReturnsAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newStoreWithQuerier(mock)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "clinic-1", "dep-1", "doc-1", "John Smith", "+15558675309", "",
			pgxmock.AnyArg(), "14:00", StatusConfirmed, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	appt, err := store.Insert(context.Background(), Appointment{
		ClinicID:     "clinic-1",
		DepartmentID: "dep-1",
		DoctorID:     "doc-1",
		PatientName:  "John Smith",
		Phone:        "+15558675309",
		Date:         time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
		Time:         "14:00",
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if appt.ID == "" || appt.Status != StatusConfirmed || !appt.CreatedAt.Equal(now) {
		t.Fatalf("unexpected appointment: %#v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertMapsUniqueViolationToErrSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newStoreWithQuerier(mock)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_unique"})

	_, err = store.Insert(context.Background(), Appointment{
		DoctorID: "doc-1",
		Date:     time.Date(2025, time.June, 9, 0, 0, 0, 0, time.UTC),
		Time:     "14:00",
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
}

func TestInsertOtherErrorsPassThrough(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newStoreWithQuerier(mock)

	mock.ExpectQuery("INSERT INTO appointments").
		WillReturnError(errors.New("connection refused"))

	_, err = store.Insert(context.Background(), Appointment{DoctorID: "doc-1", Time: "14:00"})
	if err == nil || errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want plain failure", err)
	}
}
