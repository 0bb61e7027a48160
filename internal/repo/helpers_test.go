package repo

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-carparts-backend/internal/domain"
)

// newTestDB opens a private in-memory database. With migrate=true the full
// schema is created.
func newTestDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedModel(t *testing.T, db *gorm.DB, name string) *domain.CarModel {
	t.Helper()
	m := &domain.CarModel{ID: uuid.NewString(), Make: "Volvo", Name: name, Year: 2004}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed model: %v", err)
	}
	return m
}

func seedPart(t *testing.T, db *gorm.DB, modelID, name, category, description string, stock int) *domain.Part {
	t.Helper()
	p := &domain.Part{
		ID:          uuid.NewString(),
		Name:        name,
		Category:    category,
		Description: description,
		Price:       10,
		Stock:       stock,
		CarModelID:  modelID,
	}
	if err := db.Omit("CarModel").Create(p).Error; err != nil {
		t.Fatalf("seed part: %v", err)
	}
	return p
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.NewString(), Name: "user", Email: email, Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedWishlist(t *testing.T, db *gorm.DB, userID string, parts ...*domain.Part) *domain.Wishlist {
	t.Helper()
	w := &domain.Wishlist{ID: uuid.NewString(), UserID: userID}
	if err := db.Create(w).Error; err != nil {
		t.Fatalf("seed wishlist: %v", err)
	}
	for _, p := range parts {
		if err := db.Exec("INSERT INTO wishlist_parts (wishlist_id, part_id) VALUES (?, ?)", w.ID, p.ID).Error; err != nil {
			t.Fatalf("seed wishlist part: %v", err)
		}
	}
	return w
}
