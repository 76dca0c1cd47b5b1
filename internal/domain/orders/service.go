package orders

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/registry/internal/platform/apperr"
	"github.com/ehr/registry/pkg/pagination"
)

const msgOrderNotFound = "Order not found"

type Service struct {
	orders OrderRepository
	now    func() time.Time
}

func NewService(orders OrderRepository) *Service {
	return &Service{orders: orders, now: time.Now}
}

// WithClock replaces the clock used for created_at and updated_at.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// timestamp is the current instant at the store's microsecond precision.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ListOrders returns one page of a patient's orders, newest first. A
// malformed patient id yields an empty page without querying the store.
func (s *Service) ListOrders(ctx context.Context, patientIDRaw string, params pagination.Params) (*pagination.Page[*Order], error) {
	patientID, ok := ParseID(patientIDRaw)
	if !ok {
		return pagination.NewPage[*Order](nil, 0, params), nil
	}

	var (
		items []*Order
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.orders.ListByPatient(gctx, ListFilter{
			PatientID: patientID,
			Search:    params.Search,
			Limit:     params.Limit,
			Offset:    params.Offset(),
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.orders.CountByPatient(gctx, patientID, params.Search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pagination.NewPage(items, total, params), nil
}

// CreateOrder stores a new order with created_at and updated_at set to the
// same instant. An empty message is accepted.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if !req.PatientID.Valid {
		return nil, apperr.Validation("patient_id is required",
			map[string]string{"patient_id": "is required"})
	}

	now := s.timestamp()
	o := &Order{
		PatientID: req.PatientID.ID,
		Message:   req.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrder replaces the message of an existing order. Concurrent updates
// to the same order are last-write-wins.
func (s *Service) UpdateOrder(ctx context.Context, idRaw string, req UpdateOrderRequest) (*Order, error) {
	id, ok := ParseID(idRaw)
	if !ok {
		return nil, apperr.NotFound(msgOrderNotFound, nil)
	}
	if req.Message == nil {
		return nil, apperr.Validation("message is required",
			map[string]string{"message": "is required"})
	}

	return s.orders.UpdateMessage(ctx, id, *req.Message, s.timestamp())
}
