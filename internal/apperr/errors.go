// Package apperr holds the error kinds returned by the service layer.
// Handlers map them to HTTP status codes in one place.
package apperr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FieldError is a single failed field constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports one or more field constraint violations.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validation builds a ValidationError for a single field.
func Validation(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error and returns the receiver.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// DuplicateError is a unique-index conflict on Field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// PreconditionError is a violated business rule.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// Precondition builds a PreconditionError.
func Precondition(message string) error {
	return &PreconditionError{Message: message}
}

// NotFoundError is a missing or soft-deleted record.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// NotFound builds a NotFoundError.
func NotFound(message string) error {
	return &NotFoundError{Message: message}
}

// UpstreamError is a failed call to an external service. It is never retried.
type UpstreamError struct {
	Service string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Service, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream builds an UpstreamError.
func Upstream(service, message string, err error) error {
	return &UpstreamError{Service: service, Message: message, Err: err}
}

// IsNotFound reports whether err is a NotFoundError or gorm.ErrRecordNotFound.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, gorm.ErrRecordNotFound)
}

var sqliteUnique = regexp.MustCompile(`UNIQUE constraint failed: \w+\.(\w+)`)

// FromDB translates unique-index violations into DuplicateError and leaves
// every other error untouched.
func FromDB(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &DuplicateError{Field: fieldFromConstraint(pgErr.ConstraintName)}
	}
	if m := sqliteUnique.FindStringSubmatch(err.Error()); m != nil {
		return &DuplicateError{Field: jsonName(m[1])}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateError{Field: "record"}
	}
	return err
}

// idx_tenants_id_card -> idCard
func fieldFromConstraint(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) >= 3 && parts[0] == "idx" {
		return jsonName(strings.Join(parts[2:], "_"))
	}
	return jsonName(name)
}

func jsonName(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
