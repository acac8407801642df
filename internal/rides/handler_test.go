package rides_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/richxcame/ride-board/internal/rides"
	"github.com/richxcame/ride-board/pkg/config"
	"github.com/richxcame/ride-board/test/helpers"
	"github.com/richxcame/ride-board/test/mocks"
)

func setupRouter(repo rides.RepositoryInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)

	service := rides.NewService(repo, nil, nil, &config.BoardConfig{
		BookingTimeoutSeconds: 5,
		SnapshotLimit:         500,
	})
	handler := rides.NewHandler(service)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestHandler_CreateRide(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	mockRepo.On("CreateRide", mock.Anything, mock.AnythingOfType("*rides.Ride")).Return(nil)

	body, _ := json.Marshal(helpers.CreateTestRideRequest())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool       `json:"success"`
		Data    rides.Ride `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Downtown", resp.Data.Origin)
	assert.Equal(t, resp.Data.TotalSeats, resp.Data.SeatsAvailable)
	mockRepo.AssertExpectations(t)
}

func TestHandler_CreateRide_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing driver name",
			body: map[string]interface{}{
				"driver_phone": "+1234567890", "origin": "A", "destination": "B",
				"date": "2026-09-15", "time": "08:30", "seats": 2,
			},
		},
		{
			name: "zero seats",
			body: map[string]interface{}{
				"driver_name": "John Doe", "driver_phone": "+1234567890",
				"origin": "A", "destination": "B",
				"date": "2026-09-15", "time": "08:30", "seats": 0,
			},
		},
		{
			name: "bad date format",
			body: map[string]interface{}{
				"driver_name": "John Doe", "driver_phone": "+1234567890",
				"origin": "A", "destination": "B",
				"date": "15/09/2026", "time": "08:30", "seats": 2,
			},
		},
		{
			name: "bad time format",
			body: map[string]interface{}{
				"driver_name": "John Doe", "driver_phone": "+1234567890",
				"origin": "A", "destination": "B",
				"date": "2026-09-15", "time": "8.30am", "seats": 2,
			},
		},
		{
			name: "negative price",
			body: map[string]interface{}{
				"driver_name": "John Doe", "driver_phone": "+1234567890",
				"origin": "A", "destination": "B",
				"date": "2026-09-15", "time": "08:30", "seats": 2,
				"price_per_seat": -5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockRidesRepository)
			router := setupRouter(mockRepo)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/rides", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockRepo.AssertNotCalled(t, "CreateRide", mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_GetRide_InvalidID(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rides/not-a-uuid", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetRide_NotFound(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	id := uuid.New()
	mockRepo.On("GetRide", mock.Anything, id).Return(nil, rides.ErrRideNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rides/"+id.String(), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListRides_Search(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	airport := helpers.CreateTestRide()
	harbor := helpers.CreateTestRide()
	harbor.Origin = "Harbor"
	harbor.Destination = "University"
	mockRepo.On("ListRides", mock.Anything, mock.Anything).Return([]*rides.Ride{airport, harbor}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rides?q=airport", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool         `json:"success"`
		Data    []rides.Ride `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "Airport", resp.Data[0].Destination)
}

func TestHandler_BookSeats(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	rideID := uuid.New()
	mockRepo.On("GetBookingByKey", mock.Anything, "abc-123").Return(nil, rides.ErrBookingNotFound)
	mockRepo.On("AppendBooking", mock.Anything, rideID, mock.AnythingOfType("*rides.Booking"), "abc-123").Return(nil)

	body, _ := json.Marshal(helpers.CreateTestBookingRequest(2))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides/"+rideID.String()+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "abc-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockRepo.AssertExpectations(t)
}

func TestHandler_BookSeats_ReplayReturnsOK(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	rideID := uuid.New()
	existing := helpers.CreateTestBooking(rideID, 2)
	mockRepo.On("GetBookingByKey", mock.Anything, "abc-123").Return(existing, nil)

	body, _ := json.Marshal(helpers.CreateTestBookingRequest(existing.Seats))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides/"+rideID.String()+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "abc-123")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// The original booking comes back without creating a new resource
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    rides.Booking `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, existing.ID, resp.Data.ID)
	mockRepo.AssertNotCalled(t, "AppendBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_BookSeats_MissingKey(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	body, _ := json.Marshal(helpers.CreateTestBookingRequest(1))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides/"+uuid.NewString()+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_BookSeats_Conflict(t *testing.T) {
	mockRepo := new(mocks.MockRidesRepository)
	router := setupRouter(mockRepo)

	rideID := uuid.New()
	mockRepo.On("GetBookingByKey", mock.Anything, "abc-456").Return(nil, rides.ErrBookingNotFound)
	mockRepo.On("AppendBooking", mock.Anything, rideID, mock.Anything, "abc-456").Return(rides.ErrInsufficientSeats)

	body, _ := json.Marshal(helpers.CreateTestBookingRequest(5))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rides/"+rideID.String()+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "abc-456")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
