package rides

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/ride-board/pkg/common"
	"github.com/richxcame/ride-board/pkg/config"
	"github.com/richxcame/ride-board/pkg/logger"
	"github.com/richxcame/ride-board/pkg/resilience"
)

// Service contains the ride board business logic
type Service struct {
	repo           RepositoryInterface
	publisher      ChangePublisher
	keyCache       KeyCache
	bookingTimeout time.Duration
	keyTTL         time.Duration
	snapshotLimit  int
	retryConfig    resilience.RetryConfig
}

// NewService creates a new rides service. keyCache may be nil; bookings then
// always check the store for a prior use of the idempotency key.
func NewService(repo RepositoryInterface, publisher ChangePublisher, keyCache KeyCache, cfg *config.BoardConfig) *Service {
	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.RetryableChecker = func(err error) bool {
		return errors.Is(err, ErrStoreUnavailable)
	}

	return &Service{
		repo:           repo,
		publisher:      publisher,
		keyCache:       keyCache,
		bookingTimeout: time.Duration(cfg.BookingTimeoutSeconds) * time.Second,
		keyTTL:         time.Duration(cfg.IdempotencyTTLHours) * time.Hour,
		snapshotLimit:  cfg.SnapshotLimit,
		retryConfig:    retryConfig,
	}
}

// CreateRide posts a new ride to the board
func (s *Service) CreateRide(ctx context.Context, req *CreateRideRequest) (*Ride, *common.AppError) {
	ride := &Ride{
		ID:             uuid.New(),
		DriverName:     req.DriverName,
		DriverPhone:    req.DriverPhone,
		Origin:         req.Origin,
		Destination:    req.Destination,
		Date:           req.Date,
		Time:           req.Time,
		TotalSeats:     req.Seats,
		SeatsAvailable: req.Seats,
		PricePerSeat:   req.PricePerSeat,
		Bookings:       []Booking{},
	}

	if err := s.repo.CreateRide(ctx, ride); err != nil {
		logger.WithContext(ctx).Error("Failed to create ride", zap.Error(err))
		return nil, s.storeError("Failed to create ride", err)
	}

	logger.WithContext(ctx).Info("Ride created",
		zap.String("ride_id", ride.ID.String()),
		zap.String("origin", ride.Origin),
		zap.String("destination", ride.Destination),
		zap.Int("total_seats", ride.TotalSeats))

	s.notifyChange(ctx)

	return ride, nil
}

// GetRide fetches a single ride by ID
func (s *Service) GetRide(ctx context.Context, id uuid.UUID) (*Ride, *common.AppError) {
	result, err := resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) (interface{}, error) {
		return s.repo.GetRide(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrRideNotFound) {
			return nil, common.NewNotFoundError("Ride not found", err)
		}
		logger.WithContext(ctx).Error("Failed to get ride", zap.Error(err), zap.String("ride_id", id.String()))
		return nil, s.storeError("Failed to get ride", err)
	}
	return result.(*Ride), nil
}

// ListRides returns the most recent rides, newest first
func (s *Service) ListRides(ctx context.Context, limit int) ([]*Ride, *common.AppError) {
	if limit <= 0 || limit > s.snapshotLimit {
		limit = s.snapshotLimit
	}

	result, err := resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListRides(ctx, limit)
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list rides", zap.Error(err))
		return nil, s.storeError("Failed to list rides", err)
	}
	return result.([]*Ride), nil
}

// SearchRides returns rides matching the query, newest first. An empty
// query matches everything.
func (s *Service) SearchRides(ctx context.Context, query string, limit int) ([]*Ride, *common.AppError) {
	rides, appErr := s.ListRides(ctx, limit)
	if appErr != nil {
		return nil, appErr
	}

	matched := make([]*Ride, 0, len(rides))
	for _, ride := range rides {
		if ride.Matches(query) {
			matched = append(matched, ride)
		}
	}
	return matched, nil
}

// CountRides returns the total ride count
func (s *Service) CountRides(ctx context.Context) (int64, *common.AppError) {
	result, err := resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) (interface{}, error) {
		return s.repo.CountRides(ctx)
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to count rides", zap.Error(err))
		return 0, s.storeError("Failed to count rides", err)
	}
	return result.(int64), nil
}

// BookSeats reserves seats on a ride. The idempotency key makes the
// operation safe to retry: replaying a key returns the original booking
// instead of reserving twice. The second return reports whether this call
// created the booking, so replays can answer 200 instead of 201.
func (s *Service) BookSeats(ctx context.Context, rideID uuid.UUID, req *BookSeatsRequest, idempotencyKey string) (*Booking, bool, *common.AppError) {
	if idempotencyKey == "" {
		return nil, false, common.NewBadRequestError("Idempotency-Key header is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, s.bookingTimeout)
	defer cancel()

	if s.seenKey(ctx, idempotencyKey) {
		if existing, err := s.repo.GetBookingByKey(ctx, idempotencyKey); err == nil {
			logger.WithContext(ctx).Info("Booking replayed",
				zap.String("booking_id", existing.ID.String()),
				zap.String("idempotency_key", idempotencyKey))
			return existing, false, nil
		} else if !errors.Is(err, ErrBookingNotFound) {
			logger.WithContext(ctx).Error("Failed to check idempotency key", zap.Error(err))
			return nil, false, s.storeError("Failed to book seats", err)
		}
	}

	booking := &Booking{
		ID:            uuid.New(),
		RideID:        rideID,
		PassengerName: req.PassengerName,
		Seats:         req.Seats,
	}

	err := s.repo.AppendBooking(ctx, rideID, booking, idempotencyKey)
	if err != nil {
		switch {
		case errors.Is(err, ErrRideNotFound):
			return nil, false, common.NewNotFoundError("Ride not found", err)
		case errors.Is(err, ErrInsufficientSeats):
			return nil, false, common.NewConflictError("Not enough seats available", err)
		case errors.Is(err, ErrDuplicateBooking):
			// Lost the race against a concurrent request with the same key.
			existing, lookupErr := s.repo.GetBookingByKey(ctx, idempotencyKey)
			if lookupErr != nil {
				logger.WithContext(ctx).Error("Failed to load booking after duplicate key", zap.Error(lookupErr))
				return nil, false, s.storeError("Failed to book seats", lookupErr)
			}
			s.rememberKey(ctx, idempotencyKey, existing.ID.String())
			return existing, false, nil
		default:
			logger.WithContext(ctx).Error("Failed to book seats", zap.Error(err), zap.String("ride_id", rideID.String()))
			return nil, false, s.storeError("Failed to book seats", err)
		}
	}

	logger.WithContext(ctx).Info("Seats booked",
		zap.String("booking_id", booking.ID.String()),
		zap.String("ride_id", rideID.String()),
		zap.Int("seats", booking.Seats))

	s.rememberKey(ctx, idempotencyKey, booking.ID.String())
	s.notifyChange(ctx)

	return booking, true, nil
}

// seenKey reports whether the idempotency key may have been used before.
// Without a cache every booking checks the store; with one, only keys the
// cache remembers pay for the lookup. The store's unique index catches the
// rare cache miss on a reused key.
func (s *Service) seenKey(ctx context.Context, idempotencyKey string) bool {
	if s.keyCache == nil {
		return true
	}
	id, err := s.keyCache.GetString(ctx, idemCacheKey(idempotencyKey))
	return err == nil && id != ""
}

func (s *Service) rememberKey(ctx context.Context, idempotencyKey, bookingID string) {
	if s.keyCache == nil {
		return
	}
	if err := s.keyCache.SetWithExpiration(ctx, idemCacheKey(idempotencyKey), bookingID, s.keyTTL); err != nil {
		logger.WithContext(ctx).Debug("Failed to cache idempotency key", zap.Error(err))
	}
}

func idemCacheKey(key string) string {
	return "idem:" + key
}

// notifyChange publishes a change notification so live subscribers refresh.
// A failed publish is logged but never fails the write that triggered it.
func (s *Service) notifyChange(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish change notification", zap.Error(err))
	}
}

func (s *Service) storeError(msg string, err error) *common.AppError {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return common.NewServiceUnavailableError(msg, err)
	}
	return common.NewInternalServerError(msg)
}
