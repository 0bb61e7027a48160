// Package domain defines the persistence models for the parts inventory:
// car parts, the vehicle models they belong to, customers and their
// wishlists. These types are mapped with GORM and form the core data layer
// of the inventory API.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// RoleCustomer is the user role that receives "new part" announcements.
const RoleCustomer = "customer"

// CarModel is the vehicle a part belongs to. It is read-only from the API's
// perspective and only appears as the resolved owner of a Part.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Make / Name / Year: descriptive vehicle attributes.
type CarModel struct {
	ID        string    `json:"_id"       gorm:"type:char(36);primaryKey"`
	Make      string    `json:"make"      gorm:"type:varchar(64);not null"`
	Name      string    `json:"name"      gorm:"type:varchar(128);not null"`
	Year      int       `json:"year,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for CarModel.
func (CarModel) TableName() string { return "car_models" }

// Part is an inventory record for an automotive component.
//
// Fields:
//   - ID: UUID primary key (char(36)), serialized as "_id".
//   - Name: unique display name.
//   - Description / Category / Image: free-form catalogue attributes.
//   - Price: unit price, must not be negative.
//   - Stock: units on hand. A move from <= 0 to > 0 is a restock.
//   - CarModelID: reference to the owning vehicle model.
//   - CarModel: the resolved owning model, nil when the reference dangles.
//   - SearchText: case-folded name, category and description; the column
//     search matches against. Never serialized.
type Part struct {
	ID          string    `json:"_id"         gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex:ux_car_parts_name" validate:"required"`
	Description string    `json:"description" gorm:"type:text"`
	Price       float64   `json:"price"       gorm:"not null;default:0" validate:"gte=0"`
	Stock       int       `json:"stock"       gorm:"not null;default:0;index"`
	Category    string    `json:"category"    gorm:"type:varchar(128);index" validate:"required"`
	Image       string    `json:"image"       gorm:"type:text"`
	CarModelID  string    `json:"-"           gorm:"column:car_model_id;type:char(36);not null;index"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	SearchText  string    `json:"-"           gorm:"column:search_text;type:text"`

	CarModel *CarModel `json:"carModel" gorm:"foreignKey:CarModelID;references:ID"`
}

// TableName returns the database table name for Part.
func (Part) TableName() string { return "car_parts" }

// InStock reports whether at least one unit is available.
func (p *Part) InStock() bool { return p != nil && p.Stock > 0 }

// BeforeCreate fills SearchText from the searchable fields.
func (p *Part) BeforeCreate(*gorm.DB) error {
	p.SearchText = SearchKey(p.Name, p.Category, p.Description)
	return nil
}

// searchSep separates fields inside a search key so a term cannot match
// across two of them.
const searchSep = "\x1f"

// SearchKey returns the Unicode case-folded, NFKC-normalized form of fields,
// joined by a unit separator. Terms folded the same way match it with a
// plain LIKE on every dialect, so "ÖVRE", "övre" and "Övre" are one term.
func SearchKey(fields ...string) string {
	folded := make([]string, len(fields))
	for i, f := range fields {
		// Casers keep state; one per call.
		folded[i] = cases.Fold().String(norm.NFKC.String(f))
	}
	return strings.Join(folded, searchSep)
}

// User is a shop account. Only Email and Role matter to this service: the
// former addresses notifications, the latter selects announcement recipients.
type User struct {
	ID        string    `json:"_id"       gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(128)"`
	Email     string    `json:"email"     gorm:"type:varchar(255);index"`
	Role      string    `json:"role"      gorm:"type:varchar(32);not null;default:'customer';index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Wishlist is a user's set of watched parts. Wishlists are used only to
// resolve who should hear about a restock.
type Wishlist struct {
	ID        string    `json:"_id"  gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"-"    gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User  *User  `json:"user"     gorm:"foreignKey:UserID;references:ID"`
	Parts []Part `json:"carParts" gorm:"many2many:wishlist_parts;joinForeignKey:WishlistID;joinReferences:PartID"`
}

// TableName returns the database table name for Wishlist.
func (Wishlist) TableName() string { return "wishlists" }
