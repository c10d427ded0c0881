package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/handlers"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/gocomet/rideshare/internal/domain/fleet"
	"github.com/gocomet/rideshare/internal/repository/memory"
	"github.com/gocomet/rideshare/internal/service/booking"
	requests "github.com/gocomet/rideshare/internal/service/riderequest"
	"github.com/gocomet/rideshare/internal/service/rides"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("routes-test-secret")

type testServer struct {
	router *gin.Engine
	fleet  *memory.FleetDirectory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	store := memory.NewStore()
	directory := memory.NewFleetDirectory(store)
	hub := websocket.NewHub(log)

	h := handlers.NewHandlers(
		rides.NewService(store.Rides(), nil, hub, nil, log, rides.Config{}),
		booking.NewEngine(store.Rides(), store.Contracts(), store, nil, hub, nil, log, booking.Config{}),
		requests.NewChannel(memory.NewRequestCache(nil), store.Rides(), directory, nil, hub, nil, log, requests.Config{}),
		hub,
		log,
		handlers.UpgraderConfig{},
	)

	router := gin.New()
	SetupRoutes(router, h, Options{JWTSecret: secret})
	return &testServer{router: router, fleet: directory}
}

func token(t *testing.T, userID uuid.UUID, role middleware.Role) string {
	t.Helper()
	tok, err := middleware.SignToken(secret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func rideBody(start time.Time) map[string]interface{} {
	return map[string]interface{}{
		"from":           map[string]interface{}{"description": "Old Town", "latitude": 48.1, "longitude": 17.1},
		"to":             map[string]interface{}{"description": "Airport", "latitude": 48.2, "longitude": 17.2},
		"start":          start.Format(time.RFC3339),
		"end":            start.Add(90 * time.Minute).Format(time.RFC3339),
		"price_per_seat": 1200,
		"seats":          []string{"DRIVER", "EMPTY", "EMPTY"},
		"rules":          []string{"NO_SMOKING"},
	}
}

type rideResponse struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Rules  []string `json:"rules"`
}

// TestHealth tests the unauthenticated health endpoint
func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRideBookingFlow tests publishing, booking and the ride lifecycle over HTTP
func TestRideBookingFlow(t *testing.T) {
	s := newTestServer(t)
	driverID, passengerID, otherPassenger := uuid.New(), uuid.New(), uuid.New()
	driverTok := token(t, driverID, middleware.RoleDriver)
	passengerTok := token(t, passengerID, middleware.RolePassenger)
	otherTok := token(t, otherPassenger, middleware.RolePassenger)

	// only drivers publish rides
	w := s.do(t, http.MethodPost, "/v1/rides", passengerTok, rideBody(time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/rides", driverTok, rideBody(time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created rideResponse
	decode(t, w, &created)
	assert.Equal(t, "PENDING", created.Status)

	// the driver's seat is not bookable input
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/bookings", passengerTok,
		map[string]interface{}{"seats": []map[string]interface{}{{"index": 0, "status": "MALE_OCCUPIED"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	seatReq := map[string]interface{}{"seats": []map[string]interface{}{{"index": 2, "status": "FEMALE_OCCUPIED"}}}
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/bookings", passengerTok, seatReq)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var contract struct {
		ID           string `json:"id"`
		PricePerSeat int64  `json:"price_per_seat"`
	}
	decode(t, w, &contract)
	assert.Equal(t, int64(1200), contract.PricePerSeat)

	// the same seat again
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/bookings", otherTok, seatReq)
	assert.Equal(t, http.StatusConflict, w.Code)
	var errBody struct {
		Code string `json:"code"`
	}
	decode(t, w, &errBody)
	assert.Equal(t, "SEAT_UNAVAILABLE", errBody.Code)

	w = s.do(t, http.MethodGet, "/v1/contracts/"+contract.ID, passengerTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/contracts", passengerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine struct {
		Items []json.RawMessage `json:"items"`
	}
	decode(t, w, &mine)
	assert.Len(t, mine.Items, 1)

	var seats struct {
		Seats []string `json:"seats"`
	}
	w = s.do(t, http.MethodGet, "/v1/rides/"+created.ID, otherTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &seats)
	assert.Equal(t, []string{"DRIVER", "EMPTY", "FEMALE_OCCUPIED"}, seats.Seats)

	// another driver cannot manage the ride
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/start", token(t, uuid.New(), middleware.RoleDriver), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/start", driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/bookings", otherTok,
		map[string]interface{}{"seats": []map[string]interface{}{{"index": 1, "status": "MALE_OCCUPIED"}}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/cancel", driverTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/finish", driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var finished rideResponse
	decode(t, w, &finished)
	assert.Equal(t, "ENDED_SUCCESSFULLY", finished.Status)
}

// TestRideRules tests rule management over HTTP
func TestRideRules(t *testing.T) {
	s := newTestServer(t)
	driverID := uuid.New()
	driverTok := token(t, driverID, middleware.RoleDriver)

	w := s.do(t, http.MethodPost, "/v1/rides", driverTok, rideBody(time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	var created rideResponse
	decode(t, w, &created)

	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/rules", driverTok, map[string]string{"rule": "NO_PETS"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated rideResponse
	decode(t, w, &updated)
	assert.ElementsMatch(t, []string{"NO_PETS", "NO_SMOKING"}, updated.Rules)

	w = s.do(t, http.MethodDelete, "/v1/rides/"+created.ID+"/rules/NO_SMOKING", driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &updated)
	assert.Equal(t, []string{"NO_PETS"}, updated.Rules)

	w = s.do(t, http.MethodDelete, "/v1/rides/"+created.ID+"/rules/NO_SMOKING", driverTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestCreateRide_Validation tests rejected ride payloads
func TestCreateRide_Validation(t *testing.T) {
	s := newTestServer(t)
	driverTok := token(t, uuid.New(), middleware.RoleDriver)

	past := rideBody(time.Now().Add(-time.Hour))
	w := s.do(t, http.MethodPost, "/v1/rides", driverTok, past)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noDriverSeat := rideBody(time.Now().Add(time.Hour))
	noDriverSeat["seats"] = []string{"EMPTY", "EMPTY"}
	w = s.do(t, http.MethodPost, "/v1/rides", driverTok, noDriverSeat)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/rides/not-a-uuid", driverTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v1/rides/"+uuid.NewString(), driverTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/v1/rides", driverTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestListRides tests listing by driver and date
func TestListRides(t *testing.T) {
	s := newTestServer(t)
	driverID := uuid.New()
	driverTok := token(t, driverID, middleware.RoleDriver)
	start := time.Now().Add(time.Hour)

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, "/v1/rides", driverTok, rideBody(start.Add(time.Duration(i)*time.Minute)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	var page struct {
		Items []rideResponse `json:"items"`
		Limit int            `json:"limit"`
	}
	w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/rides?driver_id=%s&limit=2", driverID), driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Limit)

	w = s.do(t, http.MethodGet, "/v1/rides?date="+start.UTC().Format("2006-01-02"), driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &page)
	assert.NotEmpty(t, page.Items)
}

// TestRideRequestFlow tests proposing and accepting a ride over HTTP
func TestRideRequestFlow(t *testing.T) {
	s := newTestServer(t)
	ownerID, driverID := uuid.New(), uuid.New()
	s.fleet.PutCar(fleet.Car{LicensePlate: "BA-123XY", OwnerID: ownerID})
	s.fleet.PutDriver(fleet.Driver{ID: driverID, Available: true})

	ownerTok := token(t, ownerID, middleware.RoleOwner)
	driverTok := token(t, driverID, middleware.RoleDriver)

	proposal := map[string]interface{}{
		"driver_id":     driverID.String(),
		"license_plate": "ba-123xy",
		"ride":          rideBody(time.Now().Add(2 * time.Hour)),
	}
	w := s.do(t, http.MethodPost, "/v1/ride-requests", driverTok, proposal)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/ride-requests", ownerTok, proposal)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req struct {
		ID string `json:"id"`
	}
	decode(t, w, &req)

	var pending struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	w = s.do(t, http.MethodGet, "/v1/ride-requests/pending", driverTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pending)
	require.Len(t, pending.Items, 1)
	assert.Equal(t, req.ID, pending.Items[0].ID)

	w = s.do(t, http.MethodPost, "/v1/ride-requests/"+req.ID+"/accept", driverTok, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created rideResponse
	decode(t, w, &created)

	w = s.do(t, http.MethodPost, "/v1/ride-requests/"+req.ID+"/accept", driverTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// owner-originated rides are managed by the owner
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/start", driverTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/v1/rides/"+created.ID+"/start", ownerTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/rides?owner_id="+ownerID.String(), ownerTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var owned struct {
		Items []rideResponse `json:"items"`
	}
	decode(t, w, &owned)
	assert.Len(t, owned.Items, 1)
}

// TestUnauthenticated tests that v1 requires a token
func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/rides?date=2026-01-01", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
