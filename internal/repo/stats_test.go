package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/errs"
)

func TestPartsStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t, false)
	if _, _, err := PartsStats(context.Background(), db, PartFilter{}); err == nil {
		t.Fatalf("expected error due to missing car_parts table")
	}
}

func TestPartsStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, true)
	count, maxAt, err := PartsStats(context.Background(), db, PartFilter{})
	if err != nil {
		t.Fatalf("PartsStats: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestPartsStats_FilterAndMax(t *testing.T) {
	db := newTestDB(t, true)
	m := seedModel(t, db, "V70")
	other := seedModel(t, db, "XC90")

	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	t3 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	a := seedPart(t, db, m.ID, "A", "Brakes", "", 1)
	b := seedPart(t, db, m.ID, "B", "Brakes", "", 0)
	c := seedPart(t, db, other.ID, "C", "Brakes", "", 1)
	for p, ts := range map[*domain.Part]time.Time{a: t1, b: t2, c: t3} {
		if err := db.Model(&domain.Part{}).Where("id = ?", p.ID).UpdateColumn("updated_at", ts).Error; err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	count, maxAt, err := PartsStats(context.Background(), db, PartFilter{ModelID: m.ID})
	if err != nil {
		t.Fatalf("PartsStats: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxAt)
	}

	count, maxAt, err = PartsStats(context.Background(), db, PartFilter{ModelID: m.ID, InStock: true})
	if err != nil {
		t.Fatalf("PartsStats: %v", err)
	}
	if count != 1 || maxAt == nil || !maxAt.Equal(t1) {
		t.Fatalf("expected (1, %v), got (%d, %v)", t1, count, maxAt)
	}
}

func TestPartsStats_MalformedModel(t *testing.T) {
	db := newTestDB(t, true)
	_, _, err := PartsStats(context.Background(), db, PartFilter{ModelID: "bad"})
	var mid *errs.MalformedIDError
	if !errors.As(err, &mid) {
		t.Fatalf("expected MalformedIDError, got %v", err)
	}
}
