package identity

import (
	"context"
)

// PatientRepository returns apperr-classified errors.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	List(ctx context.Context, f ListFilter) ([]*Patient, error)
	// Count returns the number of patients whose name contains search; an
	// empty search counts every patient.
	Count(ctx context.Context, search string) (int, error)
}

// Transactor runs fn in a transaction that repositories pick up from ctx.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
