package repository

import (
	"context"

	"github.com/Domenick1991/paraglide/internal/domain"
)

type CompanyRepository interface {
	GetByOwner(ctx context.Context, ownerID string) (*domain.Company, error)
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type PGCompanyRepository struct {
	db Querier
}

func NewCompanyRepository(db Querier) CompanyRepository {
	return &PGCompanyRepository{db: db}
}

const companyColumns = `id::text, owner_id, COALESCE(name, '{}'::jsonb), email, created_at`

func (r *PGCompanyRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Company, error) {
	row := r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE owner_id = $1`, ownerID)
	var c domain.Company
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return nil, notFound(err, "get company by owner")
	}
	return &c, nil
}

func (r *PGCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	row := r.db.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	var c domain.Company
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return nil, notFound(err, "get company")
	}
	return &c, nil
}

var _ CompanyRepository = (*PGCompanyRepository)(nil)
