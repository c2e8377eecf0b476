// Package repo implements the catalog stores. This file provides the
// idempotency record stores that back safe retries of product creation:
// SQLIdempotencyStore (GORM) and MemoryIdempotencyStore.
package repo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-catalog-api/internal/domain"
)

func newIdempotency(userID, key, productID, productName string, status int, ttl time.Duration) *domain.Idempotency {
	now := time.Now().UTC()
	return &domain.Idempotency{
		ID:          uuid.NewString(),
		UserID:      userID,
		Key:         key,
		ProductID:   productID,
		ProductName: productName,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// SQLIdempotencyStore keeps idempotency records in the "idempotency" table.
type SQLIdempotencyStore struct {
	DB *gorm.DB
}

// GetIdempotency returns a non-expired record or ErrNotFound.
func (s *SQLIdempotencyStore) GetIdempotency(ctx context.Context, userID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func (s *SQLIdempotencyStore) CreateIdempotency(ctx context.Context, userID, key, productID, productName string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	rec := newIdempotency(userID, key, productID, productName, status, ttl)
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			// An expired record still holds the unique slot; replace it.
			res := s.DB.WithContext(ctx).
				Where("user_id = ? AND key = ? AND expires_at <= ?", userID, key, rec.CreatedAt).
				Delete(&domain.Idempotency{})
			if res.Error == nil && res.RowsAffected > 0 {
				if err := s.DB.WithContext(ctx).Create(rec).Error; err == nil {
					return rec, nil
				}
			}
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

type idemKey struct{ userID, key string }

// MemoryIdempotencyStore keeps idempotency records in process memory.
// Expired records are dropped lazily on lookup and overwritten on create.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	recs map[idemKey]*domain.Idempotency
}

// NewMemoryIdempotencyStore returns an empty store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{recs: make(map[idemKey]*domain.Idempotency)}
}

// GetIdempotency returns a non-expired record or ErrNotFound.
func (s *MemoryIdempotencyStore) GetIdempotency(_ context.Context, userID, key string, now time.Time) (*domain.Idempotency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idemKey{userID, key}
	rec, ok := s.recs[k]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Expired(now) {
		delete(s.recs, k)
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// CreateIdempotency stores a record and returns ErrDuplicate while a live
// record for (userID, key) exists.
func (s *MemoryIdempotencyStore) CreateIdempotency(_ context.Context, userID, key, productID, productName string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	rec := newIdempotency(userID, key, productID, productName, status, ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idemKey{userID, key}
	if cur, ok := s.recs[k]; ok && !cur.Expired(rec.CreatedAt) {
		return nil, ErrDuplicate
	}
	s.recs[k] = rec
	cp := *rec
	return &cp, nil
}
