package database

import (
	"strings"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Invalid(col, "must not be empty")

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "available_cases"):
		return errors.New(errors.CodeInsufficientStock, "insufficient available stock", 409)
	case strings.Contains(constraint, "quantity_cases"):
		return errors.Invalid("quantity", "must be a positive number of cases")
	case strings.Contains(constraint, "location_type"):
		return errors.Invalid("type", "must be one of: rack, floor, receiving, shipping")
	case strings.Contains(constraint, "status"):
		return errors.Invalid("status", "unknown status")
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "location_code"), strings.Contains(constraint, "location_barcode"):
		return "a location with this code already exists"
	case strings.Contains(constraint, "case_label"):
		return "a case label with this barcode already exists"
	case strings.Contains(constraint, "pick_list_number"):
		return "a pick list with this number already exists"
	case strings.Contains(constraint, "pick_list_order"):
		return "an open pick list already exists for this order"
	default:
		return "a record with these values already exists"
	}
}

// Map returns the AppError for err when it is a known PostgreSQL error,
// otherwise err unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}
