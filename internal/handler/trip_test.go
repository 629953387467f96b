package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlog/backend/internal/domain"
	"github.com/fleetlog/backend/internal/handler"
	"github.com/fleetlog/backend/internal/middleware"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create      func(ctx context.Context, ident domain.Identity, input domain.Trip) (domain.Trip, error)
	update      func(ctx context.Context, ident domain.Identity, tripID uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	delete      func(ctx context.Context, ident domain.Identity, tripID uuid.UUID) error
	listMine    func(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error)
	listCompany func(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error)
}

func (m *mockTripServicer) Create(ctx context.Context, ident domain.Identity, input domain.Trip) (domain.Trip, error) {
	return m.create(ctx, ident, input)
}
func (m *mockTripServicer) Update(ctx context.Context, ident domain.Identity, tripID uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	return m.update(ctx, ident, tripID, patch)
}
func (m *mockTripServicer) Delete(ctx context.Context, ident domain.Identity, tripID uuid.UUID) error {
	return m.delete(ctx, ident, tripID)
}
func (m *mockTripServicer) ListMine(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error) {
	return m.listMine(ctx, ident, page)
}
func (m *mockTripServicer) ListCompany(ctx context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error) {
	return m.listCompany(ctx, ident, page)
}

var _ handler.TripServicer = (*mockTripServicer)(nil)

// testIdent is the identity the stub authenticator plants on every request.
var testIdent = domain.Identity{
	DriverID:  uuid.MustParse("9a0b1111-1111-4111-8111-111111111111"),
	CompanyID: uuid.MustParse("9a0b2222-2222-4222-8222-222222222222"),
	Role:      domain.RoleDriver,
}

// stubAuth plants testIdent without requiring a token, keeping handler
// tests focused on the handlers (the real middleware has its own tests).
func stubAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), testIdent)))
	})
}

func newTestRouter(svc handler.TripServicer) http.Handler {
	return handler.NewServer(svc).Routes(stubAuth)
}

func sampleTrip() domain.Trip {
	return domain.Trip{
		ID:            uuid.MustParse("9a0b3333-3333-4333-8333-333333333333"),
		CompanyID:     testIdent.CompanyID,
		DriverID:      testIdent.DriverID,
		VehicleID:     uuid.MustParse("9a0b4444-4444-4444-8444-444444444444"),
		DepartureAt:   time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC),
		ArrivalAt:     time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC),
		Purpose:       "client visit",
		FinalOdometer: 15500,
	}
}

func createBody() string {
	t := sampleTrip()
	return fmt.Sprintf(`{
		"vehicleId": %q,
		"departureAt": %q,
		"arrivalAt": %q,
		"purpose": "client visit",
		"finalOdometer": 15500
	}`, t.VehicleID, t.DepartureAt.Format(time.RFC3339), t.ArrivalAt.Format(time.RFC3339))
}

// ---- POST /trips -----------------------------------------------------------

func TestCreateTrip_OK(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, ident domain.Identity, input domain.Trip) (domain.Trip, error) {
			assert.Equal(t, testIdent, ident)
			created := input
			created.ID = sampleTrip().ID
			created.DriverID = ident.DriverID
			created.CompanyID = ident.CompanyID
			return created, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Trip
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, sampleTrip().ID, got.ID)
	assert.Equal(t, testIdent.DriverID, got.DriverID)
	assert.Equal(t, int64(15500), got.FinalOdometer)
}

func TestCreateTrip_MalformedJSON(t *testing.T) {
	svc := &mockTripServicer{} // must never be called

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(`{"vehicleId": 7`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCreateTrip_MissingRequiredField(t *testing.T) {
	svc := &mockTripServicer{}

	req := httptest.NewRequest(http.MethodPost, "/trips",
		bytes.NewBufferString(`{"departureAt": "2024-01-11T08:00:00Z"}`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "vehicleId is required")
}

func TestCreateTrip_OdometerNotIncreasing_CarriesLastOdometer(t *testing.T) {
	last := int64(15000)
	svc := &mockTripServicer{
		create: func(_ context.Context, _ domain.Identity, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, &domain.SequenceError{
				Rule:         domain.RuleOdometerNotIncreasing,
				Message:      "final odometer must exceed 15000",
				LastOdometer: &last,
			}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "final odometer must exceed 15000", body["error"])
	assert.Equal(t, float64(15000), body["lastOdometer"])
	assert.NotContains(t, body, "lastDate")
}

func TestCreateTrip_DepartureNotAfterLastTrip_CarriesLastDate(t *testing.T) {
	lastDep := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	svc := &mockTripServicer{
		create: func(_ context.Context, _ domain.Identity, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, &domain.SequenceError{
				Rule:          domain.RuleDepartureNotAfterLastTrip,
				Message:       "departure must be after the last trip's departure",
				LastDeparture: &lastDep,
			}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "2024-01-10T08:00:00Z", body["lastDate"])
	assert.NotContains(t, body, "lastOdometer")
}

func TestCreateTrip_NotAssigned_Returns403(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, _ domain.Identity, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w: driver is not assigned to this vehicle", domain.ErrForbidden)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "driver is not assigned to this vehicle")
}

func TestCreateTrip_ConflictAtCommit_Returns409(t *testing.T) {
	svc := &mockTripServicer{
		create: func(_ context.Context, _ domain.Identity, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w: trips_vehicle_id_final_odometer_key", domain.ErrConflict)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateTrip_WithoutToken_Returns401(t *testing.T) {
	// Real authenticator, no Authorization header.
	router := handler.NewServer(&mockTripServicer{}).Routes(middleware.NewAuthenticator([]byte("s")))

	req := httptest.NewRequest(http.MethodPost, "/trips", bytes.NewBufferString(createBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---- GET /trips ------------------------------------------------------------

func TestListTrips_OK(t *testing.T) {
	svc := &mockTripServicer{
		listMine: func(_ context.Context, ident domain.Identity, page domain.PaginationParams) ([]domain.Trip, error) {
			assert.Equal(t, testIdent.DriverID, ident.DriverID)
			assert.Equal(t, 2, page.Page)
			assert.Equal(t, 5, page.Limit)
			return []domain.Trip{sampleTrip()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips?page=2&limit=5", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Trip
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 1)
}

func TestListTrips_Empty(t *testing.T) {
	svc := &mockTripServicer{
		listMine: func(_ context.Context, _ domain.Identity, _ domain.PaginationParams) ([]domain.Trip, error) {
			return []domain.Trip{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

// ---- GET /trips/admin ------------------------------------------------------

func TestListCompanyTrips_NonAdmin_Returns403(t *testing.T) {
	svc := &mockTripServicer{
		listCompany: func(_ context.Context, _ domain.Identity, _ domain.PaginationParams) ([]domain.Trip, error) {
			return nil, fmt.Errorf("service.TripService.ListCompany: %w: admin role required", domain.ErrForbidden)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/admin", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListCompanyTrips_Admin_OK(t *testing.T) {
	svc := &mockTripServicer{
		listCompany: func(_ context.Context, _ domain.Identity, _ domain.PaginationParams) ([]domain.Trip, error) {
			return []domain.Trip{sampleTrip(), sampleTrip()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/trips/admin", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []domain.Trip
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 2)
}

// ---- PATCH /trips/{id} -----------------------------------------------------

func TestUpdateTrip_OK(t *testing.T) {
	svc := &mockTripServicer{
		update: func(_ context.Context, _ domain.Identity, tripID uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
			assert.Equal(t, sampleTrip().ID, tripID)
			require.NotNil(t, patch.FinalOdometer)
			assert.Equal(t, int64(16000), *patch.FinalOdometer)
			assert.Nil(t, patch.Purpose)
			updated := sampleTrip()
			updated.FinalOdometer = *patch.FinalOdometer
			return updated, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/trips/"+sampleTrip().ID.String(),
		bytes.NewBufferString(`{"finalOdometer": 16000}`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Trip
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(16000), got.FinalOdometer)
}

func TestUpdateTrip_NotFound(t *testing.T) {
	svc := &mockTripServicer{
		update: func(_ context.Context, _ domain.Identity, _ uuid.UUID, _ domain.TripPatch) (domain.Trip, error) {
			return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", domain.ErrNotFound)
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/trips/"+uuid.NewString(),
		bytes.NewBufferString(`{"purpose": "x"}`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTrip_InvalidID(t *testing.T) {
	svc := &mockTripServicer{}

	req := httptest.NewRequest(http.MethodPatch, "/trips/not-a-uuid",
		bytes.NewBufferString(`{"purpose": "x"}`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTrip_NegativeOdometer(t *testing.T) {
	svc := &mockTripServicer{}

	req := httptest.NewRequest(http.MethodPatch, "/trips/"+sampleTrip().ID.String(),
		bytes.NewBufferString(`{"finalOdometer": -1}`))
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- DELETE /trips/{id} ----------------------------------------------------

func TestDeleteTrip_OK(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ domain.Identity, tripID uuid.UUID) error {
			assert.Equal(t, sampleTrip().ID, tripID)
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/"+sampleTrip().ID.String(), nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteTrip_Forbidden(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(_ context.Context, _ domain.Identity, _ uuid.UUID) error {
			return fmt.Errorf("service.TripService.Delete: %w: trip belongs to another driver", domain.ErrForbidden)
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/trips/"+sampleTrip().ID.String(), nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
