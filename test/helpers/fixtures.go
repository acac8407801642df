package helpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/ride-board/internal/rides"
)

// CreateTestRide creates a test ride with default values
func CreateTestRide() *rides.Ride {
	return &rides.Ride{
		ID:             uuid.New(),
		DriverName:     "John Doe",
		DriverPhone:    "+1234567890",
		Origin:         "Downtown",
		Destination:    "Airport",
		Date:           "2026-09-15",
		Time:           "08:30",
		TotalSeats:     4,
		SeatsAvailable: 4,
		PricePerSeat:   12,
		Bookings:       []rides.Booking{},
		CreatedAt:      time.Now(),
	}
}

// CreateTestBooking creates a test booking for the given ride
func CreateTestBooking(rideID uuid.UUID, seats int) *rides.Booking {
	return &rides.Booking{
		ID:            uuid.New(),
		RideID:        rideID,
		PassengerName: "Jane Smith",
		Seats:         seats,
		BookedAt:      time.Now(),
	}
}

// CreateTestRideRequest creates a test ride creation request
func CreateTestRideRequest() *rides.CreateRideRequest {
	return &rides.CreateRideRequest{
		DriverName:   "John Doe",
		DriverPhone:  "+1234567890",
		Origin:       "Downtown",
		Destination:  "Airport",
		Date:         "2026-09-15",
		Time:         "08:30",
		Seats:        4,
		PricePerSeat: 12,
	}
}

// CreateTestBookingRequest creates a test booking request
func CreateTestBookingRequest(seats int) *rides.BookSeatsRequest {
	return &rides.BookSeatsRequest{
		PassengerName: "Jane Smith",
		Seats:         seats,
	}
}
