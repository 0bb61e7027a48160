package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-carparts-backend/internal/domain"
)

func TestGetIdempotency_BlankKey_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, true)
	rec, err := GetIdempotency(context.Background(), db, "POST /api/carparts", "   ", time.Now().UTC())
	if rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for blank key, got (%v, %v)", rec, err)
	}
}

func TestGetIdempotency_ExpiredOrMissing_ReturnsNotFound(t *testing.T) {
	db := newTestDB(t, true)
	now := time.Now().UTC()

	exp := &domain.Idempotency{
		ID:        "expired",
		Scope:     "parts",
		Key:       "k1",
		Status:    201,
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	if err := db.Create(exp).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}

	if rec, err := GetIdempotency(context.Background(), db, "parts", "k1", now); rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for expired, got (%v, %v)", rec, err)
	}
	if rec, err := GetIdempotency(context.Background(), db, "parts", "missing", now); rec != nil || !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected (nil, ErrNotFound) for missing, got (%v, %v)", rec, err)
	}
}

func TestCreateAndGetIdempotency_RoundTrip(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	rec, err := CreateIdempotency(ctx, db, "parts", "k1", "part-1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ResourceID != "part-1" || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "parts", "k1", time.Now().UTC())
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ResourceID != "part-1" || got.Status != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Same key in another scope is independent.
	if _, err := GetIdempotency(ctx, db, "other", "k1", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected scope isolation, got %v", err)
	}
}

func TestCreateIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "parts", "k1", "a", 201, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	rec, err := CreateIdempotency(ctx, db, "parts", "k1", "b", 201, time.Hour)
	if rec != nil || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected (nil, ErrDuplicate), got (%v, %v)", rec, err)
	}
}

func TestCreateIdempotency_DBError(t *testing.T) {
	db := newTestDB(t, false)
	_, err := CreateIdempotency(context.Background(), db, "parts", "k1", "a", 201, time.Hour)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected raw DB error without table, got %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, exp := range []time.Time{now.Add(-time.Minute), now.Add(-time.Second), now.Add(time.Hour)} {
		rec := &domain.Idempotency{
			ID:        string(rune('a' + i)),
			Scope:     "parts",
			Key:       string(rune('a' + i)),
			CreatedAt: now.Add(-time.Hour),
			ExpiresAt: exp,
		}
		if err := db.Create(rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil {
		t.Fatalf("PurgeExpiredIdempotency: %v", err)
	}
	if n != 2 {
		t.Fatalf("purged %d, want 2", n)
	}
	var left int64
	db.Model(&domain.Idempotency{}).Count(&left)
	if left != 1 {
		t.Fatalf("remaining = %d, want 1", left)
	}
}
