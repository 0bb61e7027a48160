// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read-only queries over users and
// wishlists that resolve notification recipients.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/domain"
)

// CustomerEmails returns the email address of every user with the customer
// role. Users without an address are skipped.
func CustomerEmails(ctx context.Context, db *gorm.DB) ([]string, error) {
	out := []string{}
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("role = ? AND email IS NOT NULL AND email <> ''", domain.RoleCustomer).
		Order("created_at asc").
		Pluck("email", &out).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return out, nil
}

// WishlistEmailsForPart returns the distinct, non-empty email addresses of
// the owners of every wishlist that contains partID. Wishlists whose owner
// cannot be resolved contribute nothing.
func WishlistEmailsForPart(ctx context.Context, db *gorm.DB, partID string) ([]string, error) {
	out := []string{}
	err := db.WithContext(ctx).
		Table("wishlists").
		Joins("JOIN wishlist_parts ON wishlist_parts.wishlist_id = wishlists.id").
		Joins("JOIN users ON users.id = wishlists.user_id").
		Where("wishlist_parts.part_id = ? AND users.email IS NOT NULL AND users.email <> ''", partID).
		Distinct().
		Order("users.email").
		Pluck("users.email", &out).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return out, nil
}
