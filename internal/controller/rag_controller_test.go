package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/internal/service"
	"compliance-assistant-be/pkg/identity"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/client"
	"compliance-assistant-be/pkg/rag/deepsearch"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type backendStub struct{}

func (backendStub) SimpleQuery(_ context.Context, query, _ string) (*rag.Result, error) {
	if strings.Contains(query, "reject") {
		return nil, &client.BackendError{StatusCode: http.StatusUnprocessableEntity, Detail: "X"}
	}
	return &rag.Result{Status: rag.StatusCompleted, Query: query, Summary: "# RA 9003\n\nSolid waste act.", DocumentsFound: 1}, nil
}

func (b backendStub) FullSummary(ctx context.Context, query, userID string) (*rag.Result, error) {
	return b.SimpleQuery(ctx, query, userID)
}

func (backendStub) DeepSearch(_ context.Context, req rag.DeepSearchRequest) (*rag.Result, error) {
	return &rag.Result{Status: rag.StatusCompleted, Query: req.Query, Summary: "See RA 9003 and EO 1."}, nil
}

func (backendStub) HealthCheck(context.Context) (*rag.Health, error) {
	return &rag.Health{Status: "healthy", Service: "research"}, nil
}

func newAPI(t *testing.T) *fiber.App {
	t.Helper()
	store := kv.NewMemoryStore()
	sessions := memory.NewSessionRepository(service.NewWorkspaceFactory(service.WorkspaceDeps{
		Store:       store,
		Querier:     backendStub{},
		RetryPolicy: orchestrator.RetryPolicy{},
	}), time.Hour)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware()})
	auth := serverutils.JwtMiddleware(testSecret)
	NewRagController(service.NewRagService(sessions, deepsearch.NewOrchestrator(backendStub{}, nil, nil), backendStub{}, nil), auth).RegisterRoutes(app)
	NewCanvasController(service.NewCanvasService(sessions), auth).RegisterRoutes(app)
	NewPreferenceController(service.NewPreferenceService(store), auth).RegisterRoutes(app)
	return app
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := identity.IssueToken(identity.User{ID: "7f6c1d2e-0000-4000-8000-000000000001", Email: "a@b.ph", EmailVerified: true}, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, app *fiber.App, method, path, body, auth string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestRagRoutesRequireToken(t *testing.T) {
	app := newAPI(t)

	code, body := call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"what is ra 9003?"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Missing token", body["message"])

	code, _ = call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"what is ra 9003?"}`, "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = call(t, app, http.MethodGet, "/rag/v1/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["data"].(map[string]interface{})["status"])
}

func TestQueryRoundTrip(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t)

	code, body := call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"what is ra 9003?","mode":"simple"}`, auth)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])

	code, body = call(t, app, http.MethodGet, "/rag/v1/history", "", auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["total"])

	code, body = call(t, app, http.MethodGet, "/rag/v1/session", "", auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["data"].(map[string]interface{})["status"])
}

func TestQueryErrorsMapToStatus(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t)

	code, body := call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"ab"}`, auth)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "query must be at least 3", body["message"])

	code, _ = call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"what is ra 9003?","mode":"turbo"}`, auth)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = call(t, app, http.MethodPost, "/rag/v1/query", `{"query":"please reject this"}`, auth)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "X", body["detail"])
}

func TestStreamingDisabledIsServerError(t *testing.T) {
	app := newAPI(t)
	code, body := call(t, app, http.MethodPost, "/rag/v1/stream/simple", "", bearer(t))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, orchestrator.ErrStreamingDisabled.Error(), body["detail"])
}

func TestDeepSearchRoute(t *testing.T) {
	app := newAPI(t)
	code, body := call(t, app, http.MethodPost, "/rag/v1/deep-search", `{"query":"waste rules"}`, bearer(t))
	require.Equal(t, http.StatusOK, code)
	refs := body["data"].(map[string]interface{})["cross_references"].([]interface{})
	assert.Equal(t, []interface{}{"RA 9003", "EO 1"}, refs)
}

func TestCanvasRoutes(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t)

	code, _ := call(t, app, http.MethodGet, "/canvas/v1/versions/current", "", auth)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := call(t, app, http.MethodPost, "/canvas/v1/versions", `{"content":"# Compliance Report\n\n- item"}`, auth)
	require.Equal(t, http.StatusCreated, code)
	created := body["data"].(map[string]interface{})
	assert.Equal(t, "Version 1", created["label"])

	code, body = call(t, app, http.MethodGet, "/canvas/v1/versions/current", "", auth)
	require.Equal(t, http.StatusOK, code)
	blocks := body["data"].(map[string]interface{})["blocks"].([]interface{})
	assert.Len(t, blocks, 2)

	code, _ = call(t, app, http.MethodPut, "/canvas/v1/versions/unknown/current", "", auth)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, app, http.MethodPut, "/canvas/v1/edit-mode", `{}`, auth)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = call(t, app, http.MethodPut, "/canvas/v1/edit-mode", `{"enabled":true}`, auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["is_edit_mode"])
}

func TestSidebarPreference(t *testing.T) {
	app := newAPI(t)
	auth := bearer(t)

	code, body := call(t, app, http.MethodGet, "/preference/v1/sidebar", "", auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["data"].(map[string]interface{})["open"])

	code, _ = call(t, app, http.MethodPut, "/preference/v1/sidebar", `{"open":false}`, auth)
	require.Equal(t, http.StatusOK, code)

	_, body = call(t, app, http.MethodGet, "/preference/v1/sidebar", "", auth)
	assert.Equal(t, false, body["data"].(map[string]interface{})["open"])
}
