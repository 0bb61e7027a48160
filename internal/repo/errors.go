// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file translates driver-level failures into the tagged
// error variants of package errs, so no layer above the store ever inspects
// driver error codes or message text.
package repo

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-carparts-backend/internal/errs"
)

// ErrNotFound is returned by lookups that found no row. It aliases
// gorm.ErrRecordNotFound for callers that work with raw GORM handles.
var ErrNotFound = gorm.ErrRecordNotFound

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var (
	// SQLite: "UNIQUE constraint failed: car_parts.name"
	sqliteUniqueRE = regexp.MustCompile(`(?i)unique constraint failed: ([a-z0-9_]+)\.([a-z0-9_]+)`)
	// Postgres detail: `Key (name)=(Brake pad) already exists.`
	pgKeyDetailRE = regexp.MustCompile(`Key \(([^),]+)[^)]*\)=`)
)

// columnFields maps storage columns to their API field names.
var columnFields = map[string]string{
	"car_model_id": "carModel",
}

// TranslateError maps a driver error into one of the errs variants.
//
// Behavior:
//   - nil and already-tagged errors are returned unchanged.
//   - Unique violations (SQLite text, pgconn.PgError 23505, gorm.ErrDuplicatedKey)
//     become errs.DuplicateKeyError with the conflicting field when it can be
//     determined.
//   - Anything else is returned with a stack trace attached and stays
//     unclassified.
func TranslateError(err error) error {
	if err == nil || isTagged(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		field := ""
		if m := pgKeyDetailRE.FindStringSubmatch(pgErr.Detail); len(m) > 1 {
			field = m[1]
		} else {
			field = fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName)
		}
		return errs.DuplicateKey(apiField(field), err)
	}

	if m := sqliteUniqueRE.FindStringSubmatch(err.Error()); len(m) > 2 {
		return errs.DuplicateKey(apiField(m[2]), err)
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.DuplicateKey("", err)
	}

	return pkgerrors.WithStack(err)
}

// isTagged reports whether err already is one of the errs variants.
func isTagged(err error) bool {
	var (
		nf  *errs.NotFoundError
		mid *errs.MalformedIDError
		ve  *errs.ValidationError
		dk  *errs.DuplicateKeyError
	)
	return errors.As(err, &nf) || errors.As(err, &mid) || errors.As(err, &ve) || errors.As(err, &dk)
}

// fieldFromConstraint derives the column from index names following the
// "ux_<table>_<column>" convention used by the models.
func fieldFromConstraint(table, constraint string) string {
	if constraint == "" {
		return ""
	}
	c := strings.TrimPrefix(constraint, "ux_")
	if table != "" {
		c = strings.TrimPrefix(c, table+"_")
	}
	if c == constraint {
		return ""
	}
	return c
}

func apiField(column string) string {
	if f, ok := columnFields[column]; ok {
		return f
	}
	return column
}

// parseID checks that value is a well-formed identifier for field.
func parseID(field, value string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", errs.MalformedID(field, value)
	}
	return id.String(), nil
}

// validate is shared by all repository validation; it is safe for
// concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into ordered errs.FieldError values.
// field overrides the reported name (used for single-value checks).
func fieldErrors(err error, field string) []errs.FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]errs.FieldError, 0, len(ve))
	for _, fe := range ve {
		name := field
		if name == "" {
			name = fe.Field()
		}
		out = append(out, errs.FieldError{Field: name, Message: fieldMessage(name, fe.Tag(), fe.Param())})
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be greater than or equal to " + param
	default:
		return field + " is invalid"
	}
}
