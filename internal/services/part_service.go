// Package services – PartService
//
// This file implements the PartService, which carries the business rules of
// the inventory: CRUD over parts through the repository, plus the email side
// effects of two events:
//
//   - a part is created: every customer is told about it;
//   - a part is restocked (stock moves from <= 0 to > 0 in one update): the
//     owners of wishlists containing it are told it is back.
//
// Notification failures are contained here. They are logged and never change
// the outcome of the inventory operation that caused them.
package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/notify"
	"github.com/tbourn/go-carparts-backend/internal/repo"
)

// PartRepo defines the repository contract required by PartService.
type PartRepo interface {
	// FindParts returns the parts matching the filter with their model resolved.
	FindParts(ctx context.Context, db *gorm.DB, f repo.PartFilter) ([]domain.Part, error)

	// GetPart fetches a part by id.
	GetPart(ctx context.Context, db *gorm.DB, id string) (*domain.Part, error)

	// CreatePart validates and inserts a part.
	CreatePart(ctx context.Context, db *gorm.DB, p *domain.Part) (*domain.Part, error)

	// UpdatePart applies a partial update and returns the new record.
	UpdatePart(ctx context.Context, db *gorm.DB, id string, patch repo.PartPatch) (*domain.Part, error)

	// DeletePart removes a part.
	DeletePart(ctx context.Context, db *gorm.DB, id string) error

	// CustomerEmails returns the addresses of all customers.
	CustomerEmails(ctx context.Context, db *gorm.DB) ([]string, error)

	// WishlistEmailsForPart returns the distinct addresses of wishlist owners
	// watching the part.
	WishlistEmailsForPart(ctx context.Context, db *gorm.DB, partID string) ([]string, error)
}

// PartService provides inventory operations and their notification side
// effects.
type PartService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the part repository used by this service.
	Repo PartRepo
	// Dispatcher delivers notifications; nil disables them.
	Dispatcher notify.Dispatcher
	// ShopName appears in notification bodies.
	ShopName string
}

// NewPartService constructs a PartService.
func NewPartService(db *gorm.DB, r PartRepo, d notify.Dispatcher, shopName string) *PartService {
	return &PartService{DB: db, Repo: r, Dispatcher: d, ShopName: shopName}
}

// List returns every part matching f.
func (s *PartService) List(ctx context.Context, f repo.PartFilter) ([]domain.Part, error) {
	parts, err := s.Repo.FindParts(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	logger(ctx).Info().Int("count", len(parts)).Msg("listed car parts")
	return parts, nil
}

// Get returns the part identified by id.
func (s *PartService) Get(ctx context.Context, id string) (*domain.Part, error) {
	return s.Repo.GetPart(ctx, s.DB, id)
}

// Create persists p and announces it to all customers.
func (s *PartService) Create(ctx context.Context, p *domain.Part) (*domain.Part, error) {
	created, err := s.Repo.CreatePart(ctx, s.DB, p)
	if err != nil {
		return nil, err
	}
	logger(ctx).Info().Str("part_id", created.ID).Msg("created car part")

	s.notifyCustomers(ctx, created)
	return created, nil
}

// Update applies patch to the part identified by id. A restock notifies the
// owners of wishlists containing the part.
func (s *PartService) Update(ctx context.Context, id string, patch repo.PartPatch) (*domain.Part, error) {
	old, err := s.Repo.GetPart(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.Repo.UpdatePart(ctx, s.DB, id, patch)
	if err != nil {
		return nil, err
	}
	logger(ctx).Info().Str("part_id", updated.ID).Msg("updated car part")

	if Restocked(old.Stock, updated.Stock) {
		s.notifyWishlists(ctx, updated)
	}
	return updated, nil
}

// Delete removes the part identified by id. No notification is sent.
func (s *PartService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.DeletePart(ctx, s.DB, id); err != nil {
		return err
	}
	logger(ctx).Info().Str("part_id", id).Msg("deleted car part")
	return nil
}

// Restocked reports whether a stock change from before to after is a
// restock event.
func Restocked(before, after int) bool {
	return before <= 0 && after > 0
}

func (s *PartService) notifyCustomers(ctx context.Context, p *domain.Part) {
	if s.Dispatcher == nil {
		return
	}
	lg := logger(ctx)
	emails, err := s.Repo.CustomerEmails(ctx, s.DB)
	if err != nil {
		lg.Warn().Err(err).Str("part_id", p.ID).Msg("new part notification skipped: customer lookup failed")
		return
	}
	if len(emails) == 0 {
		return
	}
	if err := s.Dispatcher.Dispatch(ctx, notify.NewPartAdded(s.ShopName, p, emails)); err != nil {
		lg.Warn().Err(err).Str("part_id", p.ID).Msg("new part notification failed")
		return
	}
	lg.Info().Str("part_id", p.ID).Int("recipients", len(emails)).Msg("new part notification dispatched")
}

func (s *PartService) notifyWishlists(ctx context.Context, p *domain.Part) {
	if s.Dispatcher == nil {
		return
	}
	lg := logger(ctx)
	emails, err := s.Repo.WishlistEmailsForPart(ctx, s.DB, p.ID)
	if err != nil {
		lg.Warn().Err(err).Str("part_id", p.ID).Msg("restock notification skipped: wishlist lookup failed")
		return
	}
	if len(emails) == 0 {
		return
	}
	if err := s.Dispatcher.Dispatch(ctx, notify.NewBackInStock(s.ShopName, p, emails)); err != nil {
		lg.Warn().Err(err).Str("part_id", p.ID).Msg("restock notification failed")
		return
	}
	lg.Info().Str("part_id", p.ID).Int("recipients", len(emails)).Msg("restock notification dispatched")
}

// logger returns the request-scoped logger stored in ctx, falling back to
// the global logger.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
