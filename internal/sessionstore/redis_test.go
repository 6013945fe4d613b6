package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	ctx := context.Background()

	sess := dialog.NewSession("call-1")
	sess.Step = dialog.StepDoctor
	sess.Slots.PatientName = "John Smith"
	sess.Slots.Doctors = []dialog.DoctorOption{{ID: "doc-1", Name: "Dr. Sarah Lee"}}

	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Step != dialog.StepDoctor || got.Slots.PatientName != "John Smith" {
		t.Errorf("loaded session = %+v", got)
	}
	if len(got.Slots.Doctors) != 1 || got.Slots.Doctors[0].ID != "doc-1" {
		t.Errorf("doctor options lost: %+v", got.Slots.Doctors)
	}
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, dialog.NewSession("call-1")); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after expiry", err)
	}
}

func TestRedisStoreSaveRenewsTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()
	sess := dialog.NewSession("call-1")

	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(45 * time.Second)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(45 * time.Second)
	if _, err := store.Load(ctx, "call-1"); err != nil {
		t.Fatalf("session expired despite renewal: %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, dialog.NewSession("call-1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "call-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(ctx, "call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
}

func TestRedisStoreRejectsEmptyID(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	if err := store.Save(context.Background(), dialog.Session{}); err == nil {
		t.Fatal("expected error for empty session id")
	}
}
