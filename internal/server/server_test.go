package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volunteer-hub/apiserver/config"
	"github.com/volunteer-hub/apiserver/internal/store/memstore"
	"github.com/volunteer-hub/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []types.RequestEvent
}

func (c *capturedEvents) PublishRequestEvent(_ context.Context, event types.RequestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	store  *memstore.Store
	events *capturedEvents
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memstore.New()
	events := &capturedEvents{}
	router := NewRouter(Dependencies{
		Users:    store.Users(),
		Requests: store.Requests(),
		Notes:    store.Notes(),
		Events:   events,
		Auth:     config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour},
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testAPI{t: t, server: server, store: store, events: events}
}

func (a *testAPI) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.Client().Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var decoded any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	switch v := decoded.(type) {
	case map[string]any:
		return resp.StatusCode, v
	case []any:
		return resp.StatusCode, map[string]any{"items": v}
	default:
		return resp.StatusCode, nil
	}
}

func (a *testAPI) register(name string) (string, int) {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name":     name,
		"email":    name + "@example.com",
		"password": "secret123",
		"phone":    "555-0100",
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), int(user["id"].(float64))
}

// admin creates an administrator directly in the store and logs in.
func (a *testAPI) admin() string {
	a.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(a.t, err)
	_, err = a.store.Users().Create(context.Background(), types.User{
		Name:         "Adam",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         types.RoleAdmin,
		IsActive:     true,
	})
	require.NoError(a.t, err)

	status, body := a.do(http.MethodPost, "/auth/login", "", map[string]any{
		"email":    "admin@example.com",
		"password": "admin-pass",
	})
	require.Equal(a.t, http.StatusOK, status, body)
	return body["token"].(string)
}

func waterRequest() map[string]any {
	return map[string]any{
		"title":       "Need water",
		"description": "...",
		"category":    "humanitarian",
		"location":    map[string]any{"address": "1 Main St", "city": "Kyiv"},
		"contactInfo": map[string]any{"name": "Ann", "phone": "555"},
	}
}

func (a *testAPI) createRequest() int {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/requests", "", waterRequest())
	require.Equal(a.t, http.StatusCreated, status, body)
	return int(body["request"].(map[string]any)["id"].(float64))
}

func TestAPI_ExampleScenario(t *testing.T) {
	api := newTestAPI(t)
	volunteerToken, volunteerID := api.register("vera")
	adminToken := api.admin()

	status, body := api.do(http.MethodPost, "/requests", "", waterRequest())
	require.Equal(t, http.StatusCreated, status, body)
	request := body["request"].(map[string]any)
	assert.Equal(t, "new", request["status"])
	assert.Equal(t, "medium", request["priority"])
	id := int(request["id"].(float64))
	path := fmt.Sprintf("/requests/%d", id)

	status, body = api.do(http.MethodPut, path+"/assign", volunteerToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	request = body["request"].(map[string]any)
	assert.Equal(t, "assigned", request["status"])
	assert.Equal(t, float64(volunteerID), request["assignedVolunteerId"])
	assert.Equal(t, "vera", request["assignedVolunteer"].(map[string]any)["name"])

	status, body = api.do(http.MethodPut, path+"/status", adminToken, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "completed", body["request"].(map[string]any)["status"])

	status, body = api.do(http.MethodGet, path, adminToken, nil)
	require.Equal(t, http.StatusOK, status, body)
	notes := body["request"].(map[string]any)["notes"].([]any)
	require.Len(t, notes, 2)
	assert.Equal(t, "Assigned to vera", notes[0].(map[string]any)["text"])
	assert.Equal(t, "Status changed from assigned to completed", notes[1].(map[string]any)["text"])

	status, body = api.do(http.MethodPut, path+"/status", adminToken, map[string]any{"status": "new"})
	assert.Equal(t, http.StatusBadRequest, status, body)

	assert.Len(t, api.events.events, 3)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	veraToken, _ := api.register("vera")
	bobToken, bobID := api.register("bob")
	adminToken := api.admin()
	id := api.createRequest()
	path := fmt.Sprintf("/requests/%d", id)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"list without token", http.MethodGet, "/requests", "", nil, http.StatusUnauthorized},
		{"list with bad token", http.MethodGet, "/requests", "garbage", nil, http.StatusUnauthorized},
		{"missing request", http.MethodGet, "/requests/999", veraToken, nil, http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/requests/abc", veraToken, nil, http.StatusBadRequest},
		{"volunteer assigns someone else", http.MethodPut, path + "/assign", veraToken, map[string]any{"volunteerId": bobID}, http.StatusForbidden},
		{"unassigned volunteer sets status", http.MethodPut, path + "/status", veraToken, map[string]any{"status": "in_progress"}, http.StatusForbidden},
		{"unknown status", http.MethodPut, path + "/status", adminToken, map[string]any{"status": "paused"}, http.StatusBadRequest},
		{"empty note", http.MethodPost, path + "/notes", veraToken, map[string]any{"text": "  "}, http.StatusBadRequest},
		{"volunteer deletes", http.MethodDelete, path, veraToken, nil, http.StatusForbidden},
		{"invalid create", http.MethodPost, "/requests", "", map[string]any{"title": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, status, body)
		})
	}

	// Once vera holds the request, bob's claim conflicts and the request is hidden from bob.
	status, _ := api.do(http.MethodPut, path+"/assign", veraToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPut, path+"/assign", bobToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = api.do(http.MethodGet, path, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := api.do(http.MethodPost, path+"/notes", veraToken, map[string]any{"text": "on my way"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "on my way", body["note"].(map[string]any)["text"])

	status, _ = api.do(http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_ValidationErrorsListFields(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodPost, "/requests", "", map[string]any{"title": "Need water"})
	require.Equal(t, http.StatusBadRequest, status)
	fields := body["errors"].([]any)
	var names []string
	for _, f := range fields {
		names = append(names, f.(map[string]any)["field"].(string))
	}
	assert.Contains(t, names, "location.address")
	assert.Contains(t, names, "contactInfo.phone")
}

func TestAPI_Auth(t *testing.T) {
	api := newTestAPI(t)
	token, id := api.register("vera")

	status, body := api.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Vera again", "email": "VERA@example.com", "password": "secret123", "phone": "1",
	})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, _ = api.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "vera@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = api.do(http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, float64(id), user["id"])
	_, leaked := user["passwordHash"]
	assert.False(t, leaked)

	status, body = api.do(http.MethodPut, "/auth/profile", token, map[string]any{"availability": "weekends", "skills": []string{"driving"}})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "weekends", body["user"].(map[string]any)["availability"])

	status, body = api.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"driving"}, body["user"].(map[string]any)["skills"])
}

func TestAPI_Volunteers(t *testing.T) {
	api := newTestAPI(t)
	veraToken, veraID := api.register("vera")
	_, bobID := api.register("bob")
	adminToken := api.admin()

	status, body := api.do(http.MethodGet, "/users/volunteers", veraToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 2)

	bobPath := fmt.Sprintf("/users/volunteers/%d", bobID)
	status, _ = api.do(http.MethodPut, bobPath+"/status", veraToken, map[string]any{"isActive": false})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = api.do(http.MethodPut, bobPath+"/status", adminToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodPut, bobPath+"/status", adminToken, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, false, body["user"].(map[string]any)["isActive"])

	status, _ = api.do(http.MethodGet, bobPath, veraToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(http.MethodGet, fmt.Sprintf("/users/volunteers/%d", veraID), veraToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "vera", body["user"].(map[string]any)["name"])

	status, _ = api.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "bob@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, status, "deactivated accounts cannot log in")
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	status, body := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = api.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := api.server.Client().Get(api.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(payload), "volunteer_http_requests_total"))
}
