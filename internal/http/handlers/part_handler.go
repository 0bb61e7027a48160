// Car part HTTP handlers.
//
// This file exposes REST endpoints for the parts inventory:
//   - GET    /carparts        (list, filterable, ETag support)
//   - GET    /carparts/{id}   (fetch one)
//   - POST   /carparts        (create, Idempotency-Key aware)
//   - PUT    /carparts/{id}   (partial update)
//   - DELETE /carparts/{id}   (remove)
//
// Handlers are transport-thin: they decode input, call the part service and
// write the resource. Every failure is handed to the error normalizer via
// fail(); no handler formats an error body itself.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/domain"
	"github.com/tbourn/go-carparts-backend/internal/errs"
	"github.com/tbourn/go-carparts-backend/internal/http/middleware"
	"github.com/tbourn/go-carparts-backend/internal/repo"
	"github.com/tbourn/go-carparts-backend/internal/services"
)

//
// Service contract
//

// PartService defines the inventory operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PartService interface {
	// List returns the parts matching f with their owning model resolved.
	List(ctx context.Context, f repo.PartFilter) ([]domain.Part, error)
	// Get returns a single part by id.
	Get(ctx context.Context, id string) (*domain.Part, error)
	// Create inserts a part and announces it to customers.
	Create(ctx context.Context, p *domain.Part) (*domain.Part, error)
	// Update patches a part and alerts wishlist owners on restock.
	Update(ctx context.Context, id string, patch repo.PartPatch) (*domain.Part, error)
	// Delete removes a part.
	Delete(ctx context.Context, id string) error
}

//
// Handler wiring
//

// DefaultIdempotencyTTL is how long a completed create can be replayed.
const DefaultIdempotencyTTL = 24 * time.Hour

// MsgPartRemoved is returned by a successful delete.
const MsgPartRemoved = "Car part removed"

// Handlers groups the car part endpoints.
type Handlers struct {
	parts   PartService
	idemTTL time.Duration
}

// New constructs Handlers bound to the given service. A non-positive
// idemTTL falls back to DefaultIdempotencyTTL.
func New(parts PartService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = DefaultIdempotencyTTL
	}
	return &Handlers{parts: parts, idemTTL: idemTTL}
}

// db returns the database handle behind the concrete service, used for
// best-effort ETag and idempotency bookkeeping. It is nil for test doubles.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.parts.(*services.PartService); ok {
		return svc.DB
	}
	return nil
}

//
// DTOs
//

// PartRequest is the JSON payload for creating or updating a part. On update,
// omitted fields are left unchanged.
type PartRequest struct {
	Name        *string  `json:"name"        example:"Front brake pad set"`
	Description *string  `json:"description" example:"Ceramic pads, low dust"`
	Price       *float64 `json:"price"       example:"49.9"`
	Stock       *int     `json:"stock"       example:"12"`
	Category    *string  `json:"category"    example:"Brakes"`
	Image       *string  `json:"image"       example:"https://cdn.example.com/pads.jpg"`
	// CarModel is the id of the owning vehicle model.
	CarModel *string `json:"carModel" format:"uuid" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

func (r PartRequest) toPart() *domain.Part {
	p := &domain.Part{}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	if r.Category != nil {
		p.Category = *r.Category
	}
	if r.Image != nil {
		p.Image = *r.Image
	}
	if r.CarModel != nil {
		p.CarModelID = *r.CarModel
	}
	return p
}

func (r PartRequest) toPatch() repo.PartPatch {
	return repo.PartPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Category:    r.Category,
		Image:       r.Image,
		CarModel:    r.CarModel,
	}
}

//
// Helpers
//

// bindPart decodes the request body. An empty body decodes to an empty
// request. Values of the wrong JSON type become a ValidationError naming the
// field; syntactically broken JSON is reported with status 400.
func bindPart(c *gin.Context) (PartRequest, int, error) {
	var req PartRequest
	err := c.ShouldBindJSON(&req)
	if err == nil || errors.Is(err, io.EOF) {
		return req, 0, nil
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "body"
		}
		return req, 0, errs.Validation(errs.FieldError{Field: field, Message: field + " must be " + jsonKind(ute.Type)})
	}
	return req, http.StatusBadRequest, pkgerrors.Wrap(err, "invalid JSON body")
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "valid"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	default:
		return "valid"
	}
}

// partFilter builds the list filter from query parameters. inStock is a
// presence flag: any non-empty value enables it, "false" and "0" included.
func partFilter(c *gin.Context) repo.PartFilter {
	return repo.PartFilter{
		ModelID: strings.TrimSpace(c.Query("modelId")),
		InStock: c.Query("inStock") != "",
		Search:  strings.TrimSpace(c.Query("search")),
	}
}

// filterTag returns a stable token identifying f inside an ETag.
func filterTag(f repo.PartFilter) string {
	key := fmt.Sprintf("m=%s;s=%t;q=%s", f.ModelID, f.InStock, domain.SearchKey(f.Search))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()[:8]
}

//
// Handlers
//

// ListParts godoc
// @ID          listCarParts
// @Summary     List car parts
// @Description Returns all parts with their owning model. Filters combine with AND. Supports weak ETag via If-None-Match and may return 304.
// @Tags        CarParts
// @Produce     json
//
// @Param       modelId        query   string  false "Owning model id (exact)"          format(uuid)
// @Param       inStock        query   string  false "Only parts with stock > 0 (presence flag)"
// @Param       search         query   string  false "Case-insensitive substring of name, category or description"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"     example(W/\"carparts:abc:1:0\")
//
// @Success     200  {array}   domain.Part
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  middleware.ErrorBody "Malformed modelId or internal error"
// @Router      /carparts [get]
func (h *Handlers) ListParts(c *gin.Context) {
	ctx := c.Request.Context()
	f := partFilter(c)

	// ETag pre-check (best effort).
	if db := h.db(); db != nil {
		count, maxTS, err := repo.PartsStats(ctx, db, f)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"carparts:%s:%d:%d"`, filterTag(f), count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				lg := middleware.LoggerFrom(c)
				lg.Info().Int64("count", count).Bool("not_modified", true).Msg("listed car parts")
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	parts, err := h.parts.List(ctx, f)
	if err != nil {
		fail(c, 0, err)
		return
	}
	ok(c, http.StatusOK, parts)
}

// GetPart godoc
// @ID          getCarPart
// @Summary     Get a car part
// @Tags        CarParts
// @Produce     json
//
// @Param       id  path  string  true  "Part id" format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object}  domain.Part
// @Failure     404  {object}  middleware.ErrorBody "Car part not found"
// @Failure     500  {object}  middleware.ErrorBody "Malformed id or internal error"
// @Router      /carparts/{id} [get]
func (h *Handlers) GetPart(c *gin.Context) {
	p, err := h.parts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, 0, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// CreatePart godoc
// @ID          createCarPart
// @Summary     Create a car part
// @Description Creates a part and emails every customer about it. With an Idempotency-Key header, a retried request returns the originally created part without a second announcement.
// @Tags        CarParts
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                     false "Idempotency key" example(create-pads-001)
// @Param       body             body    handlers.PartRequest       true  "Part payload"
//
// @Success     201  {object}  domain.Part
// @Failure     400  {object}  middleware.ErrorBody "Invalid JSON or Idempotency-Key"
// @Failure     500  {object}  middleware.ErrorBody "Validation, duplicate name or internal error"
// @Router      /carparts [post]
func (h *Handlers) CreatePart(c *gin.Context) {
	ctx := c.Request.Context()

	if id, replay := middleware.ReplayOf(c); replay {
		p, err := h.parts.Get(ctx, id)
		if err != nil {
			fail(c, 0, err)
			return
		}
		c.Header("Idempotent-Replay", "true")
		ok(c, http.StatusCreated, p)
		return
	}

	req, status, err := bindPart(c)
	if err != nil {
		fail(c, status, err)
		return
	}

	p, err := h.parts.Create(ctx, req.toPart())
	if err != nil {
		fail(c, 0, err)
		return
	}
	h.rememberCreate(c, p.ID)
	ok(c, http.StatusCreated, p)
}

// rememberCreate records the created resource under the request's
// Idempotency-Key, if any. Failures are logged and never affect the response.
func (h *Handlers) rememberCreate(c *gin.Context, resourceID string) {
	key, has := middleware.GetIdempotencyKey(c)
	db := h.db()
	if !has || db == nil {
		return
	}
	_, err := repo.CreateIdempotency(c.Request.Context(), db, middleware.IdempotencyScope(c), key, resourceID, http.StatusCreated, h.idemTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency record not stored")
	}
}

// UpdatePart godoc
// @ID          updateCarPart
// @Summary     Update a car part
// @Description Applies the supplied fields. When stock moves from zero or less to above zero, every user watching the part is emailed.
// @Tags        CarParts
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                true  "Part id" format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       body  body  handlers.PartRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Part
// @Failure     400  {object}  middleware.ErrorBody "Invalid JSON"
// @Failure     404  {object}  middleware.ErrorBody "Car part not found"
// @Failure     500  {object}  middleware.ErrorBody "Validation, duplicate name or internal error"
// @Router      /carparts/{id} [put]
func (h *Handlers) UpdatePart(c *gin.Context) {
	req, status, err := bindPart(c)
	if err != nil {
		fail(c, status, err)
		return
	}
	p, err := h.parts.Update(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		fail(c, 0, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DeletePart godoc
// @ID          deleteCarPart
// @Summary     Delete a car part
// @Tags        CarParts
// @Produce     json
//
// @Param       id  path  string  true  "Part id" format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     404  {object}  middleware.ErrorBody "Car part not found"
// @Failure     500  {object}  middleware.ErrorBody "Malformed id or internal error"
// @Router      /carparts/{id} [delete]
func (h *Handlers) DeletePart(c *gin.Context) {
	if err := h.parts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, 0, err)
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: MsgPartRemoved})
}
