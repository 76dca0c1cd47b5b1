package orders

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/ehr/registry/internal/platform/apperr"
	"github.com/ehr/registry/internal/platform/db"
	"github.com/ehr/registry/internal/platform/db/dbtest"
	"github.com/ehr/registry/pkg/pagination"
)

func newPGService(t *testing.T) (*Service, int64) {
	t.Helper()
	pool := dbtest.NewPool(t)

	var patientID int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO patients (name, mrn, gender, birth_date) VALUES ('Ann', 'X1', 'Female', '1990-01-01') RETURNING id`,
	).Scan(&patientID)
	if err != nil {
		t.Fatalf("insert patient: %v", err)
	}
	return NewService(NewOrderRepo(db.NewConn(pool))), patientID
}

func TestOrderRepoPG_CreateUpdateList(t *testing.T) {
	svc, pid := newPGService(t)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, CreateOrderRequest{PatientID: PatientRef{ID: pid, Valid: true}, Message: "Take aspirin"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("unexpected created order %+v", created)
	}

	msg := "Take ibuprofen"
	updated, err := svc.UpdateOrder(ctx, itoa(created.ID), UpdateOrderRequest{Message: &msg})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Message != msg || !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("unexpected updated order %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || updated.PatientID != pid {
		t.Error("created_at and patient_id must be unchanged")
	}

	second, err := svc.CreateOrder(ctx, CreateOrderRequest{PatientID: PatientRef{ID: pid, Valid: true}, Message: "Rest"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	page, err := svc.ListOrders(ctx, itoa(pid), pagination.Params{Page: 1, Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || page.Data[0].ID != second.ID {
		t.Errorf("expected newest first, got %+v", page.Data)
	}

	page, err = svc.ListOrders(ctx, itoa(pid), pagination.Params{Page: 1, Limit: 5, Search: "IBU"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.Total != 1 || page.Data[0].ID != created.ID {
		t.Errorf("expected search to match the updated message, got %+v", page.Data)
	}
}

func TestOrderRepoPG_UnknownPatient(t *testing.T) {
	svc, pid := newPGService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{PatientID: PatientRef{ID: pid + 1000, Valid: true}})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestOrderRepoPG_UpdateMissing(t *testing.T) {
	svc, _ := newPGService(t)

	msg := "x"
	_, err := svc.UpdateOrder(context.Background(), "999999", UpdateOrderRequest{Message: &msg})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
