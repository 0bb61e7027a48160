// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency represents a recorded result of a previously processed request,
// keyed by (scope, key). It enables safe retries for POST operations by
// returning the originally created resource without re-executing side effects
// such as customer notifications.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_key,priority:2"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:TIMESTAMP NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record is no longer valid at now.
func (i *Idempotency) Expired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}
