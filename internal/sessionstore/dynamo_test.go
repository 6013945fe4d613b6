package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/clinicdesk/clinic-voice-platform/internal/dialog"
)

type fakeDynamo struct {
	items map[string]map[string]types.AttributeValue
	err   error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func itemKey(key map[string]types.AttributeValue) string {
	return key["sessionId"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.items[itemKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, itemKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStoreRoundTrip(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "sessions", time.Minute)
	ctx := context.Background()

	sess := dialog.NewSession("call-1")
	sess.Step = dialog.StepConfirmation
	sess.Slots.Time = "14:00"

	if err := store.Save(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx, "call-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Step != dialog.StepConfirmation || got.Slots.Time != "14:00" {
		t.Errorf("loaded session = %+v", got)
	}
}

func TestDynamoStoreMissingSession(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "sessions", time.Minute)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDynamoStoreExpiredRecordIsGone(t *testing.T) {
	// The table TTL sweep is lazy; a stale record must still read as missing.
	store := NewDynamoStore(newFakeDynamo(), "sessions", time.Minute)
	base := time.Date(2025, time.June, 9, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }
	ctx := context.Background()

	if err := store.Save(ctx, dialog.NewSession("call-1")); err != nil {
		t.Fatal(err)
	}
	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := store.Load(ctx, "call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for expired record", err)
	}
}

func TestDynamoStoreDelete(t *testing.T) {
	store := NewDynamoStore(newFakeDynamo(), "sessions", time.Minute)
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

func TestDynamoStoreSurfacesClientErrors(t *testing.T) {
	fake := newFakeDynamo()
	fake.err = errors.New("throttled")
	store := NewDynamoStore(fake, "sessions", time.Minute)

	if err := store.Save(context.Background(), dialog.NewSession("call-1")); err == nil {
		t.Fatal("expected save error")
	}
	if _, err := store.Load(context.Background(), "call-1"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want wrapped client error", err)
	}
}
