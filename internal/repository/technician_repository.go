package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/societyops/society-service/internal/domain"
)

// TechnicianRepository reads the technician directory. The assignment
// engine only consumes snapshots; technician lifecycle lives with the user
// records.
type TechnicianRepository interface {
	GetByID(ctx context.Context, id string) (domain.Technician, error)
	ListAvailable(ctx context.Context) ([]domain.Technician, error)
	ListAll(ctx context.Context) ([]domain.Technician, error)
	UpdateAvailability(ctx context.Context, technicianID string, availability domain.Availability) error
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository builds repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

const technicianColumns = `id, name, phone, email, skills, hourly_rate, availability`

func (r *technicianRepository) GetByID(ctx context.Context, id string) (domain.Technician, error) {
	const query = `
        SELECT ` + technicianColumns + `
        FROM users
        WHERE id=$1 AND role='technician'`
	var tech domain.Technician
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&tech.ID,
		&tech.Name,
		&tech.Phone,
		&tech.Email,
		&tech.Skills,
		&tech.HourlyRate,
		&tech.Availability,
	)
	return tech, err
}

func (r *technicianRepository) ListAvailable(ctx context.Context) ([]domain.Technician, error) {
	const query = `
        SELECT ` + technicianColumns + `
        FROM users
        WHERE role='technician' AND active AND availability='available'
        ORDER BY created_at ASC`
	return r.list(ctx, query)
}

func (r *technicianRepository) ListAll(ctx context.Context) ([]domain.Technician, error) {
	const query = `
        SELECT ` + technicianColumns + `
        FROM users
        WHERE role='technician' AND active
        ORDER BY created_at ASC`
	return r.list(ctx, query)
}

func (r *technicianRepository) UpdateAvailability(ctx context.Context, technicianID string, availability domain.Availability) error {
	const query = `
        UPDATE users SET availability=$1, updated_at=NOW()
        WHERE id=$2 AND role='technician'`
	cmd, err := r.pool.Exec(ctx, query, availability, technicianID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) list(ctx context.Context, query string) ([]domain.Technician, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var tech domain.Technician
		if err := rows.Scan(
			&tech.ID,
			&tech.Name,
			&tech.Phone,
			&tech.Email,
			&tech.Skills,
			&tech.HourlyRate,
			&tech.Availability,
		); err != nil {
			return nil, err
		}
		result = append(result, tech)
	}
	return result, rows.Err()
}
