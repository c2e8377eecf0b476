package domain

import (
	"testing"
	"time"
)

func TestIdempotency_UniquePerUserAndKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_user_key") {
		t.Fatalf("expected unique index ux_user_key")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID: "i1", UserID: "1001", Key: "k1", ProductID: "p1", ProductName: "Desk",
		Status: 201, CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := *rec
	dup.ID = "i2"
	if err := db.Create(&dup).Error; err == nil {
		t.Fatalf("expected unique violation for same (user_id, key)")
	}

	other := *rec
	other.ID = "i3"
	other.UserID = "1002"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("same key for another user should be allowed: %v", err)
	}
}

func TestIdempotency_Expired(t *testing.T) {
	now := time.Now()
	rec := &Idempotency{ExpiresAt: now.Add(time.Minute)}
	if rec.Expired(now) {
		t.Fatalf("should not be expired before ExpiresAt")
	}
	if !rec.Expired(now.Add(time.Minute)) {
		t.Fatalf("should be expired at ExpiresAt")
	}
}
