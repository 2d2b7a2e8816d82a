package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_dispatch_system/internal/access"
	"github.com/shenikar/emergency_dispatch_system/internal/auth"
	"github.com/shenikar/emergency_dispatch_system/internal/config"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
	"github.com/shenikar/emergency_dispatch_system/internal/realtime"
	"github.com/shenikar/emergency_dispatch_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-jwt-secret"

type testHandler struct {
	incidents *mocks.MockIncidentService
	fleet     *mocks.MockFleetService
	hub       *realtime.Hub
	router    *gin.Engine
}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T, cfg *config.Config) *testHandler {
	ctrl := gomock.NewController(t)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.JWTSecret = testSecret

	policy, err := access.NewPolicy()
	require.NoError(t, err)

	th := &testHandler{
		incidents: mocks.NewMockIncidentService(ctrl),
		fleet:     mocks.NewMockFleetService(ctrl),
		hub:       realtime.NewHub(policy, logger),
	}
	handler := NewHandler(th.incidents, th.fleet, th.hub, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	th.router = gin.New()
	api := th.router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return th
}

// login выпускает токен для новой учетной записи с указанной ролью
func login(t *testing.T, role access.Role) (access.Actor, map[string]string) {
	actor := access.Actor{ID: uuid.New(), Role: role}
	token, err := auth.GenerateToken(testSecret, actor, time.Hour)
	require.NoError(t, err)
	return actor, map[string]string{"Authorization": "Bearer " + token}
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func ptr[T any](v T) *T { return &v }

func TestHealthCheck_NoAuth(t *testing.T) {
	th := newTestHandler(t, nil)

	w := makeRequest(th.router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestAuth(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleAdmin)
	token := headers["Authorization"][len("Bearer "):]

	expired, err := auth.GenerateToken(testSecret, actor, -time.Minute)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		w := makeRequest(th.router, "GET", "/api/v1/incidents/stats", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authorization token required")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		w := makeRequest(th.router, "GET", "/api/v1/incidents/stats", nil, map[string]string{"Authorization": "Token " + token})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		w := makeRequest(th.router, "GET", "/api/v1/incidents/stats", nil, map[string]string{"Authorization": "Bearer " + expired})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("token in query is rejected outside websocket", func(t *testing.T) {
		w := makeRequest(th.router, "GET", "/api/v1/incidents/stats?token="+token, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "authorization token required")
	})

	t.Run("header token", func(t *testing.T) {
		th.incidents.EXPECT().
			GetStats(gomock.Any(), actor).
			Return(&models.IncidentStats{Pending: 2}, nil).
			Times(1)

		w := makeRequest(th.router, "GET", "/api/v1/incidents/stats", nil, headers)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Pending)
	})
}

func TestCreateIncident_Success(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleUser)
	incidentID := uuid.New()
	reqBody := CreateIncidentRequest{
		Kind:      "manual_alert",
		AlertType: "medical",
		Severity:  "high",
		Title:     "Chest pain",
		Latitude:  ptr(55.75),
		Longitude: ptr(37.61),
	}

	th.incidents.EXPECT().
		CreateIncident(gomock.Any(), actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ access.Actor, inc *models.Incident) error {
			assert.Equal(t, models.KindManualAlert, inc.Kind)
			assert.Equal(t, 55.75, *inc.Latitude)
			inc.ID = incidentID // Обновляем переданный инцидент
			inc.ReporterID = actor.ID
			inc.Status = models.StatusPending
			return nil
		}).Times(1)

	w := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, reqBody), headers)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, actor.ID, resp.ReporterID)
	assert.Equal(t, "pending", resp.Status)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)

	th.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(th.router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"kind": "sos"`), headers)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)
	reqBody := CreateIncidentRequest{ // Отсутствует Kind
		AlertType: "medical",
		Latitude:  ptr(95.0),
	}

	th.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, reqBody), headers)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Kind' failed on the 'required' tag")
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'Latitude' failed on the 'latitude' tag")
}

func TestCreateIncident_ServiceValidationError(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)

	th.incidents.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("%w: title is required; location is required", models.ErrValidation)).
		Times(1)

	w := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, CreateIncidentRequest{Kind: "manual_alert"}), headers)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "location is required")
}

func TestCreateIncident_RateLimited(t *testing.T) {
	th := newTestHandler(t, &config.Config{ReportRatePerMinute: 1})
	_, headers := login(t, access.RoleUser)
	_, otherHeaders := login(t, access.RoleUser)
	reqBody := CreateIncidentRequest{Kind: "sos", Latitude: ptr(1.0), Longitude: ptr(2.0)}

	th.incidents.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, reqBody), headers)
	second := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, reqBody), headers)
	other := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, reqBody), otherHeaders)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusCreated, other.Code, "limit is per user")
}

func TestCreateIncident_ServiceError(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)
	serviceError := errors.New("failed to create incident in service")

	th.incidents.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(serviceError).
		Times(1)

	w := makeRequest(th.router, "POST", "/api/v1/incidents", jsonBody(t, CreateIncidentRequest{Kind: "sos"}), headers)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "failed to create incident")
}

func TestGetIncident_Success(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleUser)
	incidentID := uuid.New()
	expectedIncident := &models.Incident{
		ID:                incidentID,
		ReporterID:        actor.ID,
		Kind:              models.KindManualAlert,
		Status:            models.StatusResponding,
		Title:             "Retrieved Incident",
		AssignedVehicleID: ptr(int64(7)),
	}

	th.incidents.EXPECT().GetIncident(gomock.Any(), actor, incidentID).Return(expectedIncident, nil).Times(1)

	w := makeRequest(th.router, "GET", fmt.Sprintf("/api/v1/incidents/%s", incidentID.String()), nil, headers)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, expectedIncident.Title, resp.Title)
	assert.Equal(t, int64(7), *resp.AssignedVehicleID)
}

func TestGetIncident_InvalidID(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)

	th.incidents.EXPECT().GetIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(th.router, "GET", "/api/v1/incidents/invalid-uuid", nil, headers)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("service: could not get incident: %w", models.ErrNotFound), http.StatusNotFound},
		{"foreign incident", fmt.Errorf("%w: incident belongs to another user", models.ErrAccessDenied), http.StatusForbidden},
		{"database error", errors.New("database error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestHandler(t, nil)
			_, headers := login(t, access.RoleUser)
			incidentID := uuid.New()

			th.incidents.EXPECT().GetIncident(gomock.Any(), gomock.Any(), incidentID).Return(nil, tt.err).Times(1)

			w := makeRequest(th.router, "GET", "/api/v1/incidents/"+incidentID.String(), nil, headers)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestListIncidents_PassesFilter(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleDispatcher)
	reporterID := uuid.New()
	expectedIncidents := []*models.Incident{
		{ID: uuid.New(), Title: "Incident 1", Status: models.StatusPending},
		{ID: uuid.New(), Title: "Incident 2", Status: models.StatusPending},
	}

	th.incidents.EXPECT().
		ListIncidents(gomock.Any(), actor, models.IncidentFilter{
			Status:     models.StatusPending,
			Kind:       models.KindSOS,
			AlertType:  "fire",
			ReporterID: &reporterID,
			Page:       2,
			PageSize:   5,
		}).
		Return(expectedIncidents, nil).
		Times(1)

	url := fmt.Sprintf("/api/v1/incidents?status=pending&kind=sos&type=fire&user_id=%s&page=2&pageSize=5", reporterID)
	w := makeRequest(th.router, "GET", url, nil, headers)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Len(t, resp, 2)
	assert.Equal(t, expectedIncidents[0].Title, resp[0].Title)
}

func TestListIncidents_InvalidFilter(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleAdmin)

	th.incidents.EXPECT().ListIncidents(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	for _, query := range []string{"status=closed", "kind=drill", "user_id=42"} {
		w := makeRequest(th.router, "GET", "/api/v1/incidents?"+query, nil, headers)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestUpdateIncident_Success(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleDispatcher)
	incidentID := uuid.New()
	reqBody := UpdateIncidentRequest{
		AlertType: "fire",
		Severity:  "critical",
		Title:     "Updated Title",
		Address:   "Lenina 1",
	}

	th.incidents.EXPECT().
		UpdateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ access.Actor, inc *models.Incident) (*models.Incident, error) {
			assert.Equal(t, incidentID, inc.ID)
			assert.Equal(t, reqBody.Title, inc.Title)
			inc.Status = models.StatusPending
			return inc, nil
		}).Times(1)

	w := makeRequest(th.router, "PUT", "/api/v1/incidents/"+incidentID.String(), jsonBody(t, reqBody), headers)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Updated Title")
}

func TestUpdateIncident_Forbidden(t *testing.T) {
	th := newTestHandler(t, nil)
	_, headers := login(t, access.RoleUser)

	th.incidents.EXPECT().
		UpdateIncident(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: role user", models.ErrAccessDenied)).
		Times(1)

	w := makeRequest(th.router, "PUT", "/api/v1/incidents/"+uuid.NewString(), jsonBody(t, UpdateIncidentRequest{Title: "x"}), headers)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleRescuer)
	incidentID := uuid.New()

	t.Run("success", func(t *testing.T) {
		th.incidents.EXPECT().
			UpdateStatus(gomock.Any(), actor, incidentID, models.StatusResponding).
			Return(&models.Incident{ID: incidentID, Status: models.StatusResponding}, nil).
			Times(1)

		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status",
			jsonBody(t, UpdateStatusRequest{Status: "responding"}), headers)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"responding"`)
	})

	t.Run("invalid transition", func(t *testing.T) {
		th.incidents.EXPECT().
			UpdateStatus(gomock.Any(), actor, incidentID, models.StatusPending).
			Return(nil, fmt.Errorf("service: could not change incident status: %w: resolved -> pending", models.ErrInvalidTransition)).
			Times(1)

		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status",
			jsonBody(t, UpdateStatusRequest{Status: "pending"}), headers)

		assert.Equal(t, http.StatusConflict, w.Code)
		// gin экранирует '>' в JSON, поэтому сравниваем декодированное сообщение
		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp["error"], "resolved -> pending")
	})

	t.Run("missing status", func(t *testing.T) {
		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/status",
			bytes.NewBufferString(`{}`), headers)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAssignIncident(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleDispatcher)
	incidentID := uuid.New()

	t.Run("assign vehicle and responder", func(t *testing.T) {
		th.incidents.EXPECT().
			Assign(gomock.Any(), actor, incidentID, ptr(int64(7)), ptr(int64(3))).
			Return(&models.Incident{ID: incidentID, AssignedVehicleID: ptr(int64(7)), AssignedResponderID: ptr(int64(3))}, nil).
			Times(1)

		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/assign",
			bytes.NewBufferString(`{"vehicle_id": 7, "responder_id": 3}`), headers)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"assigned_vehicle_id":7`)
	})

	t.Run("null clears assignment", func(t *testing.T) {
		th.incidents.EXPECT().
			Assign(gomock.Any(), actor, incidentID, nil, nil).
			Return(&models.Incident{ID: incidentID}, nil).
			Times(1)

		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/assign",
			bytes.NewBufferString(`{"vehicle_id": null}`), headers)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "assigned_vehicle_id")
	})

	t.Run("vehicle busy", func(t *testing.T) {
		th.incidents.EXPECT().
			Assign(gomock.Any(), actor, incidentID, ptr(int64(8)), nil).
			Return(nil, fmt.Errorf("%w: vehicle 8 is already assigned", models.ErrConflict)).
			Times(1)

		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/assign",
			bytes.NewBufferString(`{"vehicle_id": 8}`), headers)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("non positive id", func(t *testing.T) {
		w := makeRequest(th.router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/assign",
			bytes.NewBufferString(`{"vehicle_id": 0}`), headers)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteIncident(t *testing.T) {
	th := newTestHandler(t, nil)
	admin, adminHeaders := login(t, access.RoleAdmin)
	_, userHeaders := login(t, access.RoleUser)
	incidentID := uuid.New()

	th.incidents.EXPECT().DeleteIncident(gomock.Any(), admin, incidentID).Return(nil).Times(1)
	th.incidents.EXPECT().
		DeleteIncident(gomock.Any(), gomock.Not(admin), incidentID).
		Return(fmt.Errorf("%w: role user may not perform incident:delete", models.ErrAccessDenied)).
		Times(1)

	denied := makeRequest(th.router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil, userHeaders)
	deleted := makeRequest(th.router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil, adminHeaders)

	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.Equal(t, http.StatusNoContent, deleted.Code)
}

func TestGetHistory(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleUser)
	incidentID := uuid.New()

	th.incidents.EXPECT().
		GetHistory(gomock.Any(), actor, incidentID).
		Return([]*models.IncidentEvent{
			{ID: 1, IncidentID: incidentID, Event: models.EventIncidentNew, ToStatus: models.StatusPending},
			{ID: 2, IncidentID: incidentID, Event: models.EventIncidentStatusUpdated, FromStatus: models.StatusPending, ToStatus: models.StatusCancelled},
		}, nil).
		Times(1)

	w := makeRequest(th.router, "GET", "/api/v1/incidents/"+incidentID.String()+"/history", nil, headers)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []IncidentEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "cancelled", resp[1].ToStatus)
}

func TestListNearby(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleRescuer)

	th.incidents.EXPECT().
		ListNearby(gomock.Any(), actor, 55.75, 37.61, 1500.0).
		Return([]*models.Incident{{ID: uuid.New(), Status: models.StatusPending}}, nil).
		Times(1)

	w := makeRequest(th.router, "GET", "/api/v1/incidents/nearby?lat=55.75&lon=37.61&radius=1500", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(th.router, "GET", "/api/v1/incidents/nearby?lat=north", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListVehicles(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleDispatcher)

	th.fleet.EXPECT().
		ListVehicles(gomock.Any(), actor, models.VehicleAvailable).
		Return([]*models.Vehicle{{ID: 1, CallSign: "A-01", Status: models.VehicleAvailable}}, nil).
		Times(1)

	w := makeRequest(th.router, "GET", "/api/v1/vehicles?status=available", nil, headers)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []VehicleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "A-01", resp[0].CallSign)
}

func TestCreateVehicle(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleAdmin)

	t.Run("created", func(t *testing.T) {
		th.fleet.EXPECT().
			CreateVehicle(gomock.Any(), actor, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ access.Actor, v *models.Vehicle) error {
				assert.Equal(t, "B-12", v.CallSign)
				v.ID = 12
				v.Status = models.VehicleAvailable
				return nil
			}).Times(1)

		w := makeRequest(th.router, "POST", "/api/v1/vehicles", jsonBody(t, CreateVehicleRequest{CallSign: "B-12", VehicleType: "ambulance"}), headers)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"id":12`)
		assert.Contains(t, w.Body.String(), `"status":"available"`)
	})

	t.Run("duplicate call sign", func(t *testing.T) {
		th.fleet.EXPECT().
			CreateVehicle(gomock.Any(), actor, gomock.Any()).
			Return(fmt.Errorf("failed to create vehicle: %w", models.ErrConflict)).
			Times(1)

		w := makeRequest(th.router, "POST", "/api/v1/vehicles", jsonBody(t, CreateVehicleRequest{CallSign: "B-12"}), headers)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing call sign", func(t *testing.T) {
		w := makeRequest(th.router, "POST", "/api/v1/vehicles", jsonBody(t, CreateVehicleRequest{}), headers)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVehicleByID(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleAdmin)

	th.fleet.EXPECT().
		GetVehicle(gomock.Any(), actor, int64(404)).
		Return(nil, fmt.Errorf("vehicle 404: %w", models.ErrNotFound)).
		Times(1)
	th.fleet.EXPECT().
		SetVehicleStatus(gomock.Any(), actor, int64(5), models.VehicleMaintenance).
		Return(&models.Vehicle{ID: 5, CallSign: "C-05", Status: models.VehicleMaintenance}, nil).
		Times(1)

	w := makeRequest(th.router, "GET", "/api/v1/vehicles/abc", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid vehicle ID")

	w = makeRequest(th.router, "GET", "/api/v1/vehicles/404", nil, headers)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = makeRequest(th.router, "PATCH", "/api/v1/vehicles/5/status", jsonBody(t, SetVehicleStatusRequest{Status: "maintenance"}), headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"maintenance"`)
}

func TestResponders(t *testing.T) {
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleDispatcher)

	th.fleet.EXPECT().
		ListResponders(gomock.Any(), actor).
		Return([]*models.Responder{{ID: 3, Name: "Ivanov", Status: models.ResponderAvailable}}, nil).
		Times(1)
	th.fleet.EXPECT().
		CreateResponder(gomock.Any(), actor, gomock.Any()).
		Return(fmt.Errorf("%w: role dispatcher may not perform responder:write", models.ErrAccessDenied)).
		Times(1)

	w := makeRequest(th.router, "GET", "/api/v1/responders", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ivanov")

	w = makeRequest(th.router, "POST", "/api/v1/responders", jsonBody(t, CreateResponderRequest{Name: "Petrov"}), headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebSocket_RequiresToken(t *testing.T) {
	th := newTestHandler(t, nil)

	w := makeRequest(th.router, "GET", "/api/v1/ws", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, th.hub.ClientCount())
}

func TestWebSocket_ReceivesVisibleEvents(t *testing.T) {
	// Подготовка
	th := newTestHandler(t, nil)
	actor, headers := login(t, access.RoleUser)
	token := headers["Authorization"][len("Bearer "):]

	server := httptest.NewServer(th.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return th.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	// Действие
	foreign := &models.Incident{ID: uuid.New(), ReporterID: uuid.New(), Status: models.StatusPending}
	own := &models.Incident{ID: uuid.New(), ReporterID: actor.ID, Status: models.StatusPending}
	th.hub.Broadcast(realtime.NewIncidentEvent(models.EventIncidentNew, foreign))
	th.hub.Broadcast(realtime.NewIncidentEvent(models.EventIncidentNew, own))

	// Проверки
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event realtime.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, own.ID, event.IncidentID, "foreign incident must not reach a user")
	assert.Equal(t, models.EventIncidentNew, event.Name)
}
