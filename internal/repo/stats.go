// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/domain"
)

// PartsStats returns aggregate metadata for the parts matching f: the number
// of rows and the greatest UpdatedAt among them (nil when there are none).
func PartsStats(ctx context.Context, db *gorm.DB, f PartFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q, err := applyPartFilter(db.WithContext(ctx).Model(&domain.Part{}), f)
	if err != nil {
		return 0, nil, err
	}

	// Count
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
