package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/paraglide/internal/domain"
)

type PilotRepository interface {
	ListByCompany(ctx context.Context, companyID string, status domain.PilotStatus) ([]domain.Pilot, error)
	GetByID(ctx context.Context, id string) (*domain.Pilot, error)
}

type PGPilotRepository struct {
	db Querier
}

func NewPilotRepository(db Querier) PilotRepository {
	return &PGPilotRepository{db: db}
}

const pilotColumns = `id::text, company_id::text, COALESCE(name, '{}'::jsonb), phone, status, created_at`

func (r *PGPilotRepository) ListByCompany(ctx context.Context, companyID string, status domain.PilotStatus) ([]domain.Pilot, error) {
	rows, err := r.db.Query(ctx, `SELECT `+pilotColumns+` FROM pilots WHERE company_id = $1 AND status = $2 ORDER BY created_at`, companyID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list pilots: %w", err)
	}
	defer rows.Close()

	pilots := make([]domain.Pilot, 0)
	for rows.Next() {
		var p domain.Pilot
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Phone, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pilot: %w", err)
		}
		pilots = append(pilots, p)
	}
	return pilots, rows.Err()
}

func (r *PGPilotRepository) GetByID(ctx context.Context, id string) (*domain.Pilot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+pilotColumns+` FROM pilots WHERE id = $1`, id)
	var p domain.Pilot
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Phone, &p.Status, &p.CreatedAt); err != nil {
		return nil, notFound(err, "get pilot")
	}
	return &p, nil
}

var _ PilotRepository = (*PGPilotRepository)(nil)
