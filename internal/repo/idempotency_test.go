package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

// idempotencyStore is the method set shared by both idempotency stores.
type idempotencyStore interface {
	GetIdempotency(ctx context.Context, userID, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, userID, key, productID, productName string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

var (
	_ idempotencyStore = (*SQLIdempotencyStore)(nil)
	_ idempotencyStore = (*MemoryIdempotencyStore)(nil)
)

func runIdempotencyContract(t *testing.T, newStore func(t *testing.T) idempotencyStore) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.CreateIdempotency(ctx, "1001", "k1", "p1", "Desk", 201, time.Hour)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if rec.ID == "" || rec.ProductID != "p1" || rec.ProductName != "Desk" || rec.Status != 201 {
			t.Fatalf("created = %+v", rec)
		}
		got, err := s.GetIdempotency(ctx, "1001", "k1", time.Now().UTC())
		if err != nil || got.ProductID != "p1" {
			t.Fatalf("get = %+v, %v", got, err)
		}
	})

	t.Run("scoped per user", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.CreateIdempotency(ctx, "1001", "k1", "p1", "Desk", 201, time.Hour); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.GetIdempotency(ctx, "1002", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("other user should miss, got %v", err)
		}
	})

	t.Run("duplicate live key", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.CreateIdempotency(ctx, "1001", "k1", "p1", "Desk", 201, time.Hour); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.CreateIdempotency(ctx, "1001", "k1", "p2", "Chair", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("expired is missing and replaceable", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.CreateIdempotency(ctx, "1001", "k1", "p1", "Desk", 201, time.Millisecond); err != nil {
			t.Fatalf("create: %v", err)
		}
		later := time.Now().UTC().Add(time.Second)
		if _, err := s.GetIdempotency(ctx, "1001", "k1", later); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expired should miss, got %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		rec, err := s.CreateIdempotency(ctx, "1001", "k1", "p2", "Chair", 201, time.Hour)
		if err != nil {
			t.Fatalf("re-create after expiry: %v", err)
		}
		if rec.ProductID != "p2" {
			t.Fatalf("replacement = %+v", rec)
		}
	})

	t.Run("blank key", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetIdempotency(ctx, "1001", "", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("blank key should miss, got %v", err)
		}
	})
}

func TestSQLIdempotencyStore_Contract(t *testing.T) {
	runIdempotencyContract(t, func(t *testing.T) idempotencyStore {
		return &SQLIdempotencyStore{DB: newTestDB(t)}
	})
}

func TestMemoryIdempotencyStore_Contract(t *testing.T) {
	runIdempotencyContract(t, func(*testing.T) idempotencyStore {
		return NewMemoryIdempotencyStore()
	})
}
