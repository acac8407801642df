package rides

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ride is a driver's offered trip with fixed seat capacity
type Ride struct {
	ID             uuid.UUID `json:"id"`
	DriverName     string    `json:"driver_name"`
	DriverPhone    string    `json:"driver_phone"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	Date           string    `json:"date"` // "2006-01-02"
	Time           string    `json:"time"` // "15:04"
	TotalSeats     int       `json:"total_seats"`
	SeatsAvailable int       `json:"seats_available"`
	PricePerSeat   int       `json:"price_per_seat"`
	Bookings       []Booking `json:"bookings"`
	CreatedAt      time.Time `json:"created_at"`
}

// Booking is an immutable reservation of seats on a ride
type Booking struct {
	ID            uuid.UUID `json:"id"`
	RideID        uuid.UUID `json:"ride_id"`
	PassengerName string    `json:"passenger_name"`
	Seats         int       `json:"seats"`
	BookedAt      time.Time `json:"booked_at"`
}

// CreateRideRequest is the payload for posting a new ride
type CreateRideRequest struct {
	DriverName   string `json:"driver_name" binding:"required"`
	DriverPhone  string `json:"driver_phone" binding:"required"`
	Origin       string `json:"origin" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	Date         string `json:"date" binding:"required,datetime=2006-01-02"`
	Time         string `json:"time" binding:"required,datetime=15:04"`
	Seats        int    `json:"seats" binding:"required,gt=0"`
	PricePerSeat int    `json:"price_per_seat" binding:"gte=0"`
}

// BookSeatsRequest is the payload for reserving seats on a ride
type BookSeatsRequest struct {
	PassengerName string `json:"passenger_name" binding:"required"`
	Seats         int    `json:"seats" binding:"required,gt=0"`
}

// Matches reports whether the ride matches a search query: case-insensitive
// substring match against origin, destination, or driver name.
func (r *Ride) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.Origin), q) ||
		strings.Contains(strings.ToLower(r.Destination), q) ||
		strings.Contains(strings.ToLower(r.DriverName), q)
}
