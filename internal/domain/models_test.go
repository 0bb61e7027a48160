package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(CarModel{}).TableName():    "car_models",
		(Part{}).TableName():        "car_parts",
		(User{}).TableName():        "users",
		(Wishlist{}).TableName():    "wishlists",
		(Idempotency{}).TableName(): "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestPart_InStock(t *testing.T) {
	var nilPart *Part
	if nilPart.InStock() {
		t.Fatalf("nil part must not be in stock")
	}
	for _, tc := range []struct {
		stock int
		want  bool
	}{{-1, false}, {0, false}, {1, true}, {42, true}} {
		p := &Part{Stock: tc.stock}
		if got := p.InStock(); got != tc.want {
			t.Fatalf("stock=%d InStock()=%v want %v", tc.stock, got, tc.want)
		}
	}
}

func TestIdempotency_Expired(t *testing.T) {
	now := time.Now().UTC()
	rec := &Idempotency{ExpiresAt: now.Add(time.Minute)}
	if rec.Expired(now) {
		t.Fatalf("record expiring in the future reported expired")
	}
	if !rec.Expired(now.Add(time.Minute)) {
		t.Fatalf("record must be expired at its ExpiresAt")
	}
}

func TestMigrations_Indexes_AndWishlistJoin(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&CarModel{}, &Part{}, &User{}, &Wishlist{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&CarModel{}, &Part{}, &User{}, &Wishlist{}, &Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasTable("wishlist_parts") {
		t.Fatalf("expected wishlist_parts join table")
	}
	if !m.HasIndex(&Part{}, "ux_car_parts_name") {
		t.Fatalf("expected unique index ux_car_parts_name")
	}
	if !m.HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected unique index ux_scope_key")
	}

	model := &CarModel{ID: "m1", Make: "Volvo", Name: "V70"}
	part := &Part{ID: "p1", Name: "Brake pad", Category: "Brakes", CarModelID: model.ID}
	user := &User{ID: "u1", Email: "a@example.com", Role: RoleCustomer}
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("create model: %v", err)
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("create part: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	wl := &Wishlist{ID: "w1", UserID: user.ID, Parts: []Part{*part}}
	if err := db.Omit("Parts.*").Create(wl).Error; err != nil {
		t.Fatalf("create wishlist: %v", err)
	}

	var got Wishlist
	if err := db.Preload("User").Preload("Parts.CarModel").First(&got, "id = ?", "w1").Error; err != nil {
		t.Fatalf("load wishlist: %v", err)
	}
	if got.User == nil || got.User.Email != "a@example.com" {
		t.Fatalf("wishlist user not resolved: %+v", got.User)
	}
	if len(got.Parts) != 1 || got.Parts[0].CarModel == nil || got.Parts[0].CarModel.Name != "V70" {
		t.Fatalf("wishlist parts not resolved: %+v", got.Parts)
	}
}

func TestSearchKey_FoldsUnicodeCase(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"ÖVRE", "övre"},
		{"Främre", "FRÄMRE"},
		{"Straße", "STRASSE"},
		{"ｂｒａｋｅ", "BRAKE"},
	}
	for _, tc := range tests {
		if SearchKey(tc.a) != SearchKey(tc.b) {
			t.Fatalf("SearchKey(%q)=%q != SearchKey(%q)=%q", tc.a, SearchKey(tc.a), tc.b, SearchKey(tc.b))
		}
	}
	if got := SearchKey("A", "B"); got != "a\x1fb" {
		t.Fatalf("fields must be separated, got %q", got)
	}
}

func TestPart_BeforeCreateSetsSearchText(t *testing.T) {
	p := &Part{Name: "Ölkylare", Category: "Tillbehör", Description: "12V"}
	if err := p.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate: %v", err)
	}
	if p.SearchText != SearchKey("Ölkylare", "Tillbehör", "12V") {
		t.Fatalf("SearchText = %q", p.SearchText)
	}
}
