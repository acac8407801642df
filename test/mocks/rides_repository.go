package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/ride-board/internal/rides"
	"github.com/stretchr/testify/mock"
)

// MockRidesRepository is a mock implementation of rides.RepositoryInterface
type MockRidesRepository struct {
	mock.Mock
}

func (m *MockRidesRepository) CreateRide(ctx context.Context, ride *rides.Ride) error {
	args := m.Called(ctx, ride)
	return args.Error(0)
}

func (m *MockRidesRepository) GetRide(ctx context.Context, id uuid.UUID) (*rides.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rides.Ride), args.Error(1)
}

func (m *MockRidesRepository) ListRides(ctx context.Context, limit int) ([]*rides.Ride, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rides.Ride), args.Error(1)
}

func (m *MockRidesRepository) CountRides(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRidesRepository) AppendBooking(ctx context.Context, rideID uuid.UUID, booking *rides.Booking, idempotencyKey string) error {
	args := m.Called(ctx, rideID, booking, idempotencyKey)
	return args.Error(0)
}

func (m *MockRidesRepository) GetBookingByKey(ctx context.Context, idempotencyKey string) (*rides.Booking, error) {
	args := m.Called(ctx, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rides.Booking), args.Error(1)
}

// MockChangePublisher is a mock implementation of rides.ChangePublisher
type MockChangePublisher struct {
	mock.Mock
}

func (m *MockChangePublisher) PublishChange(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
