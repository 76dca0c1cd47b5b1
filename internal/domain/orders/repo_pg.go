package orders

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/ehr/registry/internal/platform/apperr"
	"github.com/ehr/registry/internal/platform/db"
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const orderReturning = "RETURNING id, patient_id, message, created_at, updated_at"

var orderCols = []string{"id", "patient_id", "message", "created_at", "updated_at"}

type orderRepoPG struct {
	q db.Querier
}

func NewOrderRepo(q db.Querier) OrderRepository {
	return &orderRepoPG{q: q}
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	query, args, err := qb.
		Insert("orders").
		Columns("patient_id", "message", "created_at", "updated_at").
		Values(o.PatientID, o.Message, o.CreatedAt, o.UpdatedAt).
		Suffix(orderReturning).
		ToSql()
	if err != nil {
		return apperr.Transient(fmt.Errorf("build order insert: %w", err))
	}

	created, err := scanOrder(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return apperr.Validation("Patient not found", map[string]string{"patient_id": "does not exist"})
		}
		return apperr.Transient(fmt.Errorf("order create: %w", err))
	}
	*o = *created
	return nil
}

func (r *orderRepoPG) UpdateMessage(ctx context.Context, id int64, message string, at time.Time) (*Order, error) {
	query, args, err := qb.
		Update("orders").
		Set("message", message).
		Set("updated_at", sq.Expr("GREATEST(?::timestamptz, created_at + INTERVAL '1 microsecond')", at)).
		Where(sq.Eq{"id": id}).
		Suffix(orderReturning).
		ToSql()
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("build order update: %w", err))
	}

	o, err := scanOrder(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound(msgOrderNotFound, err)
		}
		return nil, apperr.Transient(fmt.Errorf("order update: %w", err))
	}
	return o, nil
}

func (r *orderRepoPG) ListByPatient(ctx context.Context, f ListFilter) ([]*Order, error) {
	query, args, err := patientFilter(qb.Select(orderCols...).From("orders"), f.PatientID, f.Search).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		ToSql()
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("build order list: %w", err))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient(fmt.Errorf("order list: %w", err))
	}
	defer rows.Close()

	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Transient(fmt.Errorf("scan order: %w", err))
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(fmt.Errorf("order list: %w", err))
	}
	return items, nil
}

func (r *orderRepoPG) CountByPatient(ctx context.Context, patientID int64, search string) (int, error) {
	query, args, err := patientFilter(qb.Select("COUNT(*)").From("orders"), patientID, search).ToSql()
	if err != nil {
		return 0, apperr.Transient(fmt.Errorf("build order count: %w", err))
	}

	var total int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperr.Transient(fmt.Errorf("order count: %w", err))
	}
	return total, nil
}

func patientFilter(b sq.SelectBuilder, patientID int64, search string) sq.SelectBuilder {
	b = b.Where(sq.Eq{"patient_id": patientID})
	if search != "" {
		b = b.Where(sq.ILike{"message": db.ContainsPattern(search)})
	}
	return b
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.PatientID, &o.Message, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
