// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Part model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - Identifiers that are not UUIDs yield errs.MalformedIDError.
//   - Missing parts yield errs.NotFoundError ("Car part not found").
//   - Schema violations yield errs.ValidationError; unique violations yield
//     errs.DuplicateKeyError (see TranslateError).
//
// Functions:
//
//   - FindParts(ctx, db, filter) -> []domain.Part, error
//   - GetPart(ctx, db, id) -> *domain.Part, error
//   - CreatePart(ctx, db, part) -> *domain.Part, error
//   - UpdatePart(ctx, db, id, patch) -> *domain.Part, error
//   - DeletePart(ctx, db, id) -> error
package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/errs"
)

// MsgPartNotFound is the client-facing message for a missing part.
const MsgPartNotFound = "Car part not found"

// PartFilter narrows FindParts. Zero values disable a condition; set
// conditions are combined with AND.
type PartFilter struct {
	// ModelID matches the owning model exactly.
	ModelID string
	// InStock keeps only parts with stock > 0.
	InStock bool
	// Search is a case-insensitive substring matched against name, category
	// OR description.
	Search string
}

// PartPatch is a partial update. Nil fields are left untouched.
type PartPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Category    *string
	Image       *string
	CarModel    *string
}

// Empty reports whether the patch changes nothing.
func (p PartPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil &&
		p.Category == nil && p.Image == nil && p.CarModel == nil
}

// FindParts returns all parts matching f with their owning model resolved,
// in insertion order. An empty filter returns every part.
func FindParts(ctx context.Context, db *gorm.DB, f PartFilter) ([]domain.Part, error) {
	q, err := applyPartFilter(db.WithContext(ctx).Model(&domain.Part{}), f)
	if err != nil {
		return nil, err
	}
	out := []domain.Part{}
	if err := q.Preload("CarModel").Order("created_at asc").Find(&out).Error; err != nil {
		return nil, TranslateError(err)
	}
	return out, nil
}

// GetPart fetches a single part by id with its owning model resolved.
func GetPart(ctx context.Context, db *gorm.DB, id string) (*domain.Part, error) {
	pid, err := parseID("_id", id)
	if err != nil {
		return nil, err
	}
	var p domain.Part
	err = db.WithContext(ctx).Preload("CarModel").Where("id = ?", pid).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NotFound(MsgPartNotFound)
	}
	if err != nil {
		return nil, TranslateError(err)
	}
	return &p, nil
}

// CreatePart validates and inserts p, assigning a fresh UUID. The returned
// part is re-read so CarModel is resolved.
func CreatePart(ctx context.Context, db *gorm.DB, p *domain.Part) (*domain.Part, error) {
	p.Name = norm.NFC.String(strings.TrimSpace(p.Name))
	p.Category = strings.TrimSpace(p.Category)

	fields := fieldErrors(validate.Struct(p), "")
	if strings.TrimSpace(p.CarModelID) == "" {
		fields = append(fields, errs.FieldError{Field: "carModel", Message: fieldMessage("carModel", "required", "")})
	}
	if err := errs.Validation(fields...); err != nil {
		return nil, err
	}
	mid, err := parseID("carModel", p.CarModelID)
	if err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	p.CarModelID = mid
	p.CarModel = nil
	if err := db.WithContext(ctx).Omit("CarModel").Create(p).Error; err != nil {
		return nil, TranslateError(err)
	}
	return GetPart(ctx, db, p.ID)
}

// UpdatePart applies patch to the part identified by id and returns the new
// record. It returns errs.NotFoundError when no part matches.
func UpdatePart(ctx context.Context, db *gorm.DB, id string, patch PartPatch) (*domain.Part, error) {
	pid, err := parseID("_id", id)
	if err != nil {
		return nil, err
	}
	cols, err := patchColumns(patch)
	if err != nil {
		return nil, err
	}
	if len(cols) > 0 {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var cur domain.Part
			err := tx.Select("id", "name", "category", "description").Where("id = ?", pid).First(&cur).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(MsgPartNotFound)
			}
			if err != nil {
				return TranslateError(err)
			}
			if patch.touchesSearch() {
				cols["search_text"] = domain.SearchKey(
					pick(patch.Name, cur.Name, cols["name"]),
					pick(patch.Category, cur.Category, cols["category"]),
					pick(patch.Description, cur.Description, cols["description"]),
				)
			}
			if err := tx.Model(&domain.Part{}).Where("id = ?", pid).Updates(cols).Error; err != nil {
				return TranslateError(err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return GetPart(ctx, db, pid)
}

// DeletePart removes the part identified by id together with its wishlist
// memberships. It returns errs.NotFoundError when no part matches.
func DeletePart(ctx context.Context, db *gorm.DB, id string) error {
	pid, err := parseID("_id", id)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", pid).Delete(&domain.Part{})
		if res.Error != nil {
			return TranslateError(res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.NotFound(MsgPartNotFound)
		}
		if err := tx.Exec("DELETE FROM wishlist_parts WHERE part_id = ?", pid).Error; err != nil {
			return TranslateError(err)
		}
		return nil
	})
}

func (p PartPatch) touchesSearch() bool {
	return p.Name != nil || p.Category != nil || p.Description != nil
}

// pick returns the normalized column value when the patch sets the field,
// else the stored one.
func pick(set *string, stored string, col any) string {
	if set == nil {
		return stored
	}
	v, _ := col.(string)
	return v
}

// patchColumns validates the set fields of patch and maps them to columns.
func patchColumns(p PartPatch) (map[string]any, error) {
	cols := map[string]any{}
	var fields []errs.FieldError

	if p.Name != nil {
		name := norm.NFC.String(strings.TrimSpace(*p.Name))
		fields = append(fields, fieldErrors(validate.Var(name, "required"), "name")...)
		cols["name"] = name
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Price != nil {
		fields = append(fields, fieldErrors(validate.Var(*p.Price, "gte=0"), "price")...)
		cols["price"] = *p.Price
	}
	if p.Stock != nil {
		cols["stock"] = *p.Stock
	}
	if p.Category != nil {
		cat := strings.TrimSpace(*p.Category)
		fields = append(fields, fieldErrors(validate.Var(cat, "required"), "category")...)
		cols["category"] = cat
	}
	if p.Image != nil {
		cols["image"] = *p.Image
	}
	if err := errs.Validation(fields...); err != nil {
		return nil, err
	}
	if p.CarModel != nil {
		mid, err := parseID("carModel", *p.CarModel)
		if err != nil {
			return nil, err
		}
		cols["car_model_id"] = mid
	}
	return cols, nil
}

// applyPartFilter adds the WHERE clauses for f to q.
func applyPartFilter(q *gorm.DB, f PartFilter) (*gorm.DB, error) {
	if f.ModelID != "" {
		mid, err := parseID("carModel", f.ModelID)
		if err != nil {
			return nil, err
		}
		q = q.Where("car_model_id = ?", mid)
	}
	if f.InStock {
		q = q.Where("stock > ?", 0)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		q = q.Where("search_text LIKE ? ESCAPE '\\'", "%"+escapeLike(domain.SearchKey(term))+"%")
	}
	return q, nil
}

// escapeLike neutralizes LIKE wildcards so the term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
