package pilots

import (
	"context"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/Domenick1991/paraglide/internal/repository"
	"go.uber.org/zap"
)

type PilotUseCase interface {
	Verified(ctx context.Context, companyID string) ([]domain.Pilot, error)
}

type PilotCache interface {
	GetPilots(ctx context.Context, companyID string) ([]domain.Pilot, error)
	SetPilots(ctx context.Context, companyID string, pilots []domain.Pilot) error
}

type PilotService struct {
	repo   repository.PilotRepository
	cache  PilotCache
	logger *zap.Logger
}

// NewPilotService builds the service; cache may be nil.
func NewPilotService(repo repository.PilotRepository, cache PilotCache, logger *zap.Logger) *PilotService {
	return &PilotService{repo: repo, cache: cache, logger: logger}
}

// Verified lists the company's verified pilots, the candidates for assignment.
func (s *PilotService) Verified(ctx context.Context, companyID string) ([]domain.Pilot, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPilots(ctx, companyID)
		if err != nil {
			s.logger.Warn("pilot cache read failed", zap.String("company_id", companyID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	pilots, err := s.repo.ListByCompany(ctx, companyID, domain.PilotStatusVerified)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetPilots(ctx, companyID, pilots); err != nil {
			s.logger.Warn("pilot cache write failed", zap.String("company_id", companyID), zap.Error(err))
		}
	}
	return pilots, nil
}

var _ PilotUseCase = (*PilotService)(nil)
