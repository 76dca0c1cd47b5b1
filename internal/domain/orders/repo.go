package orders

import (
	"context"
	"time"
)

// OrderRepository returns apperr-classified errors.
type OrderRepository interface {
	// Create inserts o. An unknown PatientID is a validation error.
	Create(ctx context.Context, o *Order) error
	// UpdateMessage replaces the message and moves updated_at to at, or to
	// just after created_at when at is not later. Missing orders are NotFound.
	UpdateMessage(ctx context.Context, id int64, message string, at time.Time) (*Order, error)
	ListByPatient(ctx context.Context, f ListFilter) ([]*Order, error)
	CountByPatient(ctx context.Context, patientID int64, search string) (int, error)
}
