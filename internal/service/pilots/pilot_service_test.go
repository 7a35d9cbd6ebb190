package pilots

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/paraglide/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockPilotRepository struct {
	mock.Mock
}

func (m *MockPilotRepository) ListByCompany(ctx context.Context, companyID string, status domain.PilotStatus) ([]domain.Pilot, error) {
	args := m.Called(ctx, companyID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pilot), args.Error(1)
}

func (m *MockPilotRepository) GetByID(ctx context.Context, id string) (*domain.Pilot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pilot), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetPilots(ctx context.Context, companyID string) ([]domain.Pilot, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pilot), args.Error(1)
}

func (m *MockCache) SetPilots(ctx context.Context, companyID string, pilots []domain.Pilot) error {
	args := m.Called(ctx, companyID, pilots)
	return args.Error(0)
}

var verified = []domain.Pilot{{ID: "p1", Status: domain.PilotStatusVerified, Name: domain.LocalizedText{domain.LocaleEn: "Giorgi"}}}

func TestPilotService_Verified_CacheHit(t *testing.T) {
	repo := &MockPilotRepository{}
	cache := &MockCache{}
	service := NewPilotService(repo, cache, zap.NewNop())
	ctx := context.Background()

	cache.On("GetPilots", ctx, "c1").Return(verified, nil).Once()

	pilots, err := service.Verified(ctx, "c1")

	assert.NoError(t, err)
	assert.Equal(t, verified, pilots)
	repo.AssertNotCalled(t, "ListByCompany", mock.Anything, mock.Anything, mock.Anything)
}

func TestPilotService_Verified_CacheMiss(t *testing.T) {
	repo := &MockPilotRepository{}
	cache := &MockCache{}
	service := NewPilotService(repo, cache, zap.NewNop())
	ctx := context.Background()

	cache.On("GetPilots", ctx, "c1").Return(nil, nil).Once()
	repo.On("ListByCompany", ctx, "c1", domain.PilotStatusVerified).Return(verified, nil).Once()
	cache.On("SetPilots", ctx, "c1", verified).Return(nil).Once()

	pilots, err := service.Verified(ctx, "c1")

	assert.NoError(t, err)
	assert.Equal(t, verified, pilots)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestPilotService_Verified_CacheErrorFallsThrough(t *testing.T) {
	repo := &MockPilotRepository{}
	cache := &MockCache{}
	service := NewPilotService(repo, cache, zap.NewNop())
	ctx := context.Background()

	cache.On("GetPilots", ctx, "c1").Return(nil, errors.New("redis down")).Once()
	repo.On("ListByCompany", ctx, "c1", domain.PilotStatusVerified).Return(verified, nil).Once()
	cache.On("SetPilots", ctx, "c1", verified).Return(errors.New("redis down")).Once()

	pilots, err := service.Verified(ctx, "c1")

	assert.NoError(t, err)
	assert.Len(t, pilots, 1)
}

func TestPilotService_Verified_NoCache(t *testing.T) {
	repo := &MockPilotRepository{}
	service := NewPilotService(repo, nil, zap.NewNop())
	ctx := context.Background()

	dbErr := errors.New("db error")
	repo.On("ListByCompany", ctx, "c1", domain.PilotStatusVerified).Return(nil, dbErr).Once()

	pilots, err := service.Verified(ctx, "c1")

	assert.Nil(t, pilots)
	assert.Equal(t, dbErr, err)
}
