package rides

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface abstracts the backing ride store so the service can be
// tested without a database.
type RepositoryInterface interface {
	CreateRide(ctx context.Context, ride *Ride) error
	GetRide(ctx context.Context, id uuid.UUID) (*Ride, error)
	ListRides(ctx context.Context, limit int) ([]*Ride, error)
	CountRides(ctx context.Context) (int64, error)

	// AppendBooking atomically decrements the ride's available seats and
	// appends the booking. It fails with ErrRideNotFound, ErrInsufficientSeats
	// or ErrDuplicateBooking without any partial write.
	AppendBooking(ctx context.Context, rideID uuid.UUID, booking *Booking, idempotencyKey string) error

	GetBookingByKey(ctx context.Context, idempotencyKey string) (*Booking, error)
}

// ChangePublisher notifies subscribers that the ride collection changed
type ChangePublisher interface {
	PublishChange(ctx context.Context) error
}

// KeyCache remembers recently used idempotency keys so most bookings skip
// the store lookup. The store's unique index stays authoritative; the cache
// is only a fast path. *redis.Client satisfies it.
type KeyCache interface {
	GetString(ctx context.Context, key string) (string, error)
	SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}
