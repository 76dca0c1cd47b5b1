package identity

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/registry/internal/platform/apperr"
	"github.com/ehr/registry/internal/platform/db"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var patientCols = []string{"id", "name", "mrn", "gender", "birth_date", "created_at"}

const msgDuplicateMRN = "Patient with this MRN already exists"

type patientRepoPG struct {
	q db.Querier
}

func NewPatientRepo(q db.Querier) PatientRepository {
	return &patientRepoPG{q: q}
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	query, args, err := qb.
		Insert("patients").
		Columns("name", "mrn", "gender", "birth_date").
		Values(p.Name, p.MRN, p.Gender, p.BirthDate).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return apperr.Transient(fmt.Errorf("build patient insert: %w", err))
	}

	err = r.q.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict(msgDuplicateMRN, err)
		}
		return apperr.Transient(fmt.Errorf("patient create: %w", err))
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f ListFilter) ([]*Patient, error) {
	builder := nameFilter(qb.Select(patientCols...).From("patients"), f.Search).
		OrderBy("id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("build patient list: %w", err))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("patient list: %w", err))
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, apperr.Transient(fmt.Errorf("scan patient: %w", err))
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(fmt.Errorf("patient list: %w", err))
	}
	return items, nil
}

func (r *patientRepoPG) Count(ctx context.Context, search string) (int, error) {
	query, args, err := nameFilter(qb.Select("COUNT(*)").From("patients"), search).ToSql()
	if err != nil {
		return 0, apperr.Transient(fmt.Errorf("build patient count: %w", err))
	}

	var total int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperr.Transient(fmt.Errorf("patient count: %w", err))
	}
	return total, nil
}

func nameFilter(b sq.SelectBuilder, search string) sq.SelectBuilder {
	if search == "" {
		return b
	}
	return b.Where(sq.ILike{"name": db.ContainsPattern(search)})
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.MRN, &p.Gender, &p.BirthDate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.BirthDate = p.BirthDate.UTC()
	return &p, nil
}
