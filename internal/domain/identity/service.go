package identity

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/registry/internal/platform/apperr"
	"github.com/ehr/registry/internal/platform/validate"
	"github.com/ehr/registry/pkg/pagination"
)

const msgMissingFields = "All fields (name, gender, mrn, birth_date) are required"

type Service struct {
	patients PatientRepository
	tx       Transactor
}

// NewService builds the patient service. tx may be nil, in which case seeding
// runs without a transaction.
func NewService(patients PatientRepository, tx Transactor) *Service {
	return &Service{patients: patients, tx: tx}
}

// CreatePatient validates req before touching the store. A duplicate MRN is
// reported as a conflict.
func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	req.normalize()

	fields, err := validate.Struct(req)
	if err != nil {
		return nil, apperr.Transient(err)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(msgMissingFields, fields)
	}

	birthDate, ok := parseBirthDate(req.BirthDate)
	if !ok {
		return nil, apperr.Validation("birth_date must be a valid date (YYYY-MM-DD)",
			map[string]string{"birth_date": "must be a valid date"})
	}

	p := &Patient{
		Name:      req.Name,
		MRN:       req.MRN,
		Gender:    req.Gender,
		BirthDate: birthDate,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatients returns one page of patients ordered by id. The page query and
// the count run concurrently; either failing fails the call.
func (s *Service) ListPatients(ctx context.Context, params pagination.Params) (*pagination.Page[*Patient], error) {
	var (
		items []*Patient
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.patients.List(gctx, ListFilter{
			Search: params.Search,
			Limit:  params.Limit,
			Offset: params.Offset(),
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.patients.Count(gctx, params.Search)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pagination.NewPage(items, total, params), nil
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx, "")
}
