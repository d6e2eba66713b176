package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/societyops/society-service/internal/domain"
)

// BillFilter captures bill search parameters.
type BillFilter struct {
	ResidentID *string
	Statuses   []domain.BillStatus
	Limit      int
	Offset     int
}

// BillRepository encapsulates bill persistence.
type BillRepository interface {
	Create(ctx context.Context, bill *domain.Bill) error
	GetByID(ctx context.Context, id string) (*domain.Bill, error)
	Update(ctx context.Context, bill *domain.Bill) error
	ListWithFilter(ctx context.Context, filter BillFilter) ([]domain.Bill, error)
	ListAll(ctx context.Context) ([]domain.Bill, error)
}

type billRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository instantiates repository.
func NewBillRepository(pool *pgxpool.Pool) BillRepository {
	return &billRepository{pool: pool}
}

const billColumns = `id, resident_id, type, amount, currency, due_date, status, description, comments,
               paid_at, created_at, updated_at`

func (r *billRepository) Create(ctx context.Context, bill *domain.Bill) error {
	const query = `
        INSERT INTO bills (resident_id, type, amount, currency, due_date, status, description, comments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		bill.ResidentID,
		bill.Type,
		bill.Amount,
		bill.Currency,
		bill.DueDate,
		bill.Status,
		bill.Description,
		bill.Comments,
	).Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
}

func (r *billRepository) GetByID(ctx context.Context, id string) (*domain.Bill, error) {
	const query = `SELECT ` + billColumns + ` FROM bills WHERE id=$1`
	var bill domain.Bill
	if err := scanBill(r.pool.QueryRow(ctx, query, id), &bill); err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) Update(ctx context.Context, bill *domain.Bill) error {
	const query = `
        UPDATE bills SET status=$1, comments=$2, paid_at=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, bill.Status, bill.Comments, bill.PaidAt, bill.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *billRepository) ListWithFilter(ctx context.Context, filter BillFilter) ([]domain.Bill, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ResidentID != nil {
		args = append(args, *filter.ResidentID)
		clauses = append(clauses, fmt.Sprintf("resident_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM bills WHERE %s ORDER BY due_date DESC LIMIT %d OFFSET %d`,
		billColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func (r *billRepository) ListAll(ctx context.Context) ([]domain.Bill, error) {
	const query = `SELECT ` + billColumns + ` FROM bills ORDER BY due_date ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func scanBills(rows pgx.Rows) ([]domain.Bill, error) {
	var result []domain.Bill
	for rows.Next() {
		var bill domain.Bill
		if err := scanBill(rows, &bill); err != nil {
			return nil, err
		}
		result = append(result, bill)
	}
	return result, rows.Err()
}

func scanBill(row pgx.Row, bill *domain.Bill) error {
	return row.Scan(
		&bill.ID,
		&bill.ResidentID,
		&bill.Type,
		&bill.Amount,
		&bill.Currency,
		&bill.DueDate,
		&bill.Status,
		&bill.Description,
		&bill.Comments,
		&bill.PaidAt,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
}
