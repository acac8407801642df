package rides

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrRideNotFound means the referenced ride does not exist
	ErrRideNotFound = errors.New("ride not found")
	// ErrInsufficientSeats means the ride has fewer seats than requested
	ErrInsufficientSeats = errors.New("not enough seats available")
	// ErrDuplicateBooking means the idempotency key was already used
	ErrDuplicateBooking = errors.New("booking already exists for idempotency key")
	// ErrBookingNotFound means no booking exists for the given key
	ErrBookingNotFound = errors.New("booking not found")
	// ErrStoreUnavailable marks transient store failures; safe to retry
	ErrStoreUnavailable = errors.New("store unavailable")
)

const uniqueViolation = "23505"

// Repository handles ride persistence against PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new rides repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateRide inserts a new ride. The store assigns the creation timestamp.
func (r *Repository) CreateRide(ctx context.Context, ride *Ride) error {
	query := `
		INSERT INTO rides (
			id, driver_name, driver_phone, origin, destination,
			ride_date, ride_time, total_seats, seats_available, price_per_seat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		ride.ID, ride.DriverName, ride.DriverPhone, ride.Origin, ride.Destination,
		ride.Date, ride.Time, ride.TotalSeats, ride.SeatsAvailable, ride.PricePerSeat,
	).Scan(&ride.CreatedAt)
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// GetRide fetches one ride with its bookings in booking order
func (r *Repository) GetRide(ctx context.Context, id uuid.UUID) (*Ride, error) {
	query := `
		SELECT id, driver_name, driver_phone, origin, destination,
			to_char(ride_date, 'YYYY-MM-DD'), ride_time,
			total_seats, seats_available, price_per_seat, created_at
		FROM rides
		WHERE id = $1
	`

	var ride Ride
	err := r.db.QueryRow(ctx, query, id).Scan(
		&ride.ID, &ride.DriverName, &ride.DriverPhone, &ride.Origin, &ride.Destination,
		&ride.Date, &ride.Time,
		&ride.TotalSeats, &ride.SeatsAvailable, &ride.PricePerSeat, &ride.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRideNotFound
		}
		return nil, wrapStoreErr(err)
	}

	bookings, err := r.bookingsForRides(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	ride.Bookings = bookings[id]
	if ride.Bookings == nil {
		ride.Bookings = []Booking{}
	}

	return &ride, nil
}

// ListRides returns rides ordered by creation time, most recent first
func (r *Repository) ListRides(ctx context.Context, limit int) ([]*Ride, error) {
	query := `
		SELECT id, driver_name, driver_phone, origin, destination,
			to_char(ride_date, 'YYYY-MM-DD'), ride_time,
			total_seats, seats_available, price_per_seat, created_at
		FROM rides
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	var rides []*Ride
	var ids []uuid.UUID
	for rows.Next() {
		var ride Ride
		err := rows.Scan(
			&ride.ID, &ride.DriverName, &ride.DriverPhone, &ride.Origin, &ride.Destination,
			&ride.Date, &ride.Time,
			&ride.TotalSeats, &ride.SeatsAvailable, &ride.PricePerSeat, &ride.CreatedAt,
		)
		if err != nil {
			return nil, wrapStoreErr(err)
		}
		ride.Bookings = []Booking{}
		rides = append(rides, &ride)
		ids = append(ids, ride.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(err)
	}

	if len(ids) == 0 {
		return rides, nil
	}

	bookings, err := r.bookingsForRides(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, ride := range rides {
		if b, ok := bookings[ride.ID]; ok {
			ride.Bookings = b
		}
	}

	return rides, nil
}

// CountRides returns the total number of posted rides
func (r *Repository) CountRides(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM rides`).Scan(&count); err != nil {
		return 0, wrapStoreErr(err)
	}
	return count, nil
}

// AppendBooking applies the seat reservation in one transaction: a guarded
// decrement of seats_available plus the booking insert. The WHERE guard is
// what keeps concurrent bookers from driving availability negative.
func (r *Repository) AppendBooking(ctx context.Context, rideID uuid.UUID, booking *Booking, idempotencyKey string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrapStoreErr(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE rides
		SET seats_available = seats_available - $1
		WHERE id = $2 AND seats_available >= $1
	`, booking.Seats, rideID)
	if err != nil {
		return wrapStoreErr(err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rides WHERE id = $1)`, rideID).Scan(&exists); err != nil {
			return wrapStoreErr(err)
		}
		if !exists {
			return ErrRideNotFound
		}
		return ErrInsufficientSeats
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (id, ride_id, passenger_name, seats, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING booked_at
	`, booking.ID, rideID, booking.PassengerName, booking.Seats, idempotencyKey).Scan(&booking.BookedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// A concurrent retry with the same key won; its decrement stands,
			// ours rolls back.
			return ErrDuplicateBooking
		}
		return wrapStoreErr(err)
	}
	booking.RideID = rideID

	if err := tx.Commit(ctx); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// GetBookingByKey looks up a booking by its idempotency key
func (r *Repository) GetBookingByKey(ctx context.Context, idempotencyKey string) (*Booking, error) {
	var booking Booking
	err := r.db.QueryRow(ctx, `
		SELECT id, ride_id, passenger_name, seats, booked_at
		FROM bookings
		WHERE idempotency_key = $1
	`, idempotencyKey).Scan(
		&booking.ID, &booking.RideID, &booking.PassengerName, &booking.Seats, &booking.BookedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, wrapStoreErr(err)
	}
	return &booking, nil
}

func (r *Repository) bookingsForRides(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, ride_id, passenger_name, seats, booked_at
		FROM bookings
		WHERE ride_id = ANY($1)
		ORDER BY booked_at, id
	`, ids)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]Booking)
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.RideID, &b.PassengerName, &b.Seats, &b.BookedAt); err != nil {
			return nil, wrapStoreErr(err)
		}
		result[b.RideID] = append(result[b.RideID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr(err)
	}

	return result, nil
}

// wrapStoreErr classifies a pgx error. Server-reported SQL errors pass
// through untouched; anything else (dial failures, closed connections,
// timeouts) is a transient store error the caller may retry.
func wrapStoreErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
