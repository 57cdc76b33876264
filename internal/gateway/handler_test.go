package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshreach/opal-sync-monitor/internal/auth"
	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/health"
	"github.com/freshreach/opal-sync-monitor/internal/metrics"
	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/opal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTracker struct {
	execs        map[string]*models.WorkflowExecution
	active       []models.WorkflowExecution
	activeErr    error
	triggerErr   error
	triggered    []string
	agentEvents  []*models.WebhookEvent
	completed    []string
	failed       []string
	stats        *models.ExecutionStats
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{execs: make(map[string]*models.WorkflowExecution)}
}

func (f *fakeTracker) RecordTriggered(_ context.Context, workflowID, workflowName, correlationID string, timestamp time.Time) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, workflowID)
	f.execs[workflowID] = &models.WorkflowExecution{
		WorkflowID:       workflowID,
		WorkflowName:     workflowName,
		Status:           models.WorkflowStatusPending,
		CorrelationID:    correlationID,
		TriggerTimestamp: timestamp,
	}
	return nil
}

func (f *fakeTracker) RecordAgentEvent(_ context.Context, ev *models.WebhookEvent) error {
	f.agentEvents = append(f.agentEvents, ev)
	return nil
}

func (f *fakeTracker) RecordCompleted(_ context.Context, workflowID string, timestamp time.Time) error {
	f.completed = append(f.completed, workflowID)
	if exec, ok := f.execs[workflowID]; ok {
		exec.Status = models.WorkflowStatusCompleted
		exec.CompletedAt = &timestamp
	}
	return nil
}

func (f *fakeTracker) RecordFailed(_ context.Context, workflowID, reason string, timestamp time.Time) error {
	f.failed = append(f.failed, workflowID)
	if exec, ok := f.execs[workflowID]; ok {
		exec.Status = models.WorkflowStatusFailed
		exec.FailedAt = &timestamp
		exec.FailureReason = reason
	}
	return nil
}

func (f *fakeTracker) GetExecution(_ context.Context, workflowID string) (*models.WorkflowExecution, error) {
	exec, ok := f.execs[workflowID]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *exec
	return &copied, nil
}

func (f *fakeTracker) ActiveSessions(context.Context) ([]models.WorkflowExecution, error) {
	return f.active, f.activeErr
}

func (f *fakeTracker) GetStats(_ context.Context, windowHours int) (*models.ExecutionStats, error) {
	if f.stats != nil {
		return f.stats, nil
	}
	return &models.ExecutionStats{WindowHours: windowHours}, nil
}

type fakeAgents struct {
	snapshots map[string]models.AgentStatusSnapshot
}

func (f *fakeAgents) GetLatestAgentStatuses() map[string]models.AgentStatusSnapshot {
	return f.snapshots
}

func (f *fakeAgents) Summary() map[models.AgentStatus]int {
	summary := make(map[models.AgentStatus]int)
	for _, snap := range f.snapshots {
		summary[snap.Status]++
	}
	return summary
}

type fakeEvents struct {
	appended  []*models.WebhookEvent
	appendErr error
	deleted   int64
	deleteErr error
}

func (f *fakeEvents) AppendEvent(_ context.Context, ev *models.WebhookEvent) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	if ev.ID == "" {
		ev.ID = fmt.Sprintf("ev-%d", len(f.appended)+1)
	}
	f.appended = append(f.appended, ev)
	return nil
}

func (f *fakeEvents) DeleteEventsBefore(context.Context, time.Time) (int64, error) {
	return f.deleted, f.deleteErr
}

type fakeValidations struct {
	records []models.IntegrationValidationRecord
	err     error
}

func (f *fakeValidations) ListRecentValidations(_ context.Context, limit int) ([]models.IntegrationValidationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

type fakeReconciler struct {
	result    *models.BatchResult
	err       error
	lastLimit int
	lastDry   bool
}

func (f *fakeReconciler) Run(_ context.Context, limit int, dryRun bool) (*models.BatchResult, error) {
	f.lastLimit = limit
	f.lastDry = dryRun
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &models.BatchResult{DryRun: dryRun}, nil
}

type fakeHealthSource struct {
	snap       *health.Snapshot
	cached     bool
	cachedSnap *health.Snapshot
	panics     bool
}

func (f *fakeHealthSource) GetHealth(context.Context) (*health.Snapshot, bool) {
	if f.panics {
		panic("probe exploded")
	}
	return f.snap, f.cached
}

func (f *fakeHealthSource) GetCached() *health.Snapshot { return f.cachedSnap }

func (f *fakeHealthSource) ForceRefresh(context.Context) *health.Snapshot { return f.snap }

type fakePlatform struct {
	result *opal.TriggerResult
	err    error
	calls  int
}

func (f *fakePlatform) TriggerSync(_ context.Context, scope string) (*opal.TriggerResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &opal.TriggerResult{WorkflowID: "wf-new", CorrelationID: "corr-new", SessionID: "sess-new"}, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

type handlerFixture struct {
	handler     *Handler
	tracker     *fakeTracker
	events      *fakeEvents
	validations *fakeValidations
	reconciler  *fakeReconciler
	healthSrc   *fakeHealthSource
	platform    *fakePlatform
	users       *fakeUsers
	clock       *time.Time
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	jwtManager, err := auth.NewJWTManager("test-secret")
	require.NoError(t, err)
	mm, err := metrics.NewMonitorMetrics()
	require.NoError(t, err)

	tracker := newFakeTracker()
	agents := &fakeAgents{snapshots: map[string]models.AgentStatusSnapshot{}}
	events := &fakeEvents{}
	validations := &fakeValidations{}
	reconciler := &fakeReconciler{}
	healthSrc := &fakeHealthSource{snap: &health.Snapshot{Status: health.StatusHealthy, Checks: map[string]health.CheckResult{}}}
	platform := &fakePlatform{}
	users := &fakeUsers{users: map[string]*models.User{}}

	handler := NewHandler(tracker, agents, events, validations, reconciler, healthSrc, platform, users, jwtManager, mm, *config.Default())

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := &now
	handler.nowFn = func() time.Time { return *clock }

	return &handlerFixture{
		handler:     handler,
		tracker:     tracker,
		events:      events,
		validations: validations,
		reconciler:  reconciler,
		healthSrc:   healthSrc,
		platform:    platform,
		users:       users,
		clock:       clock,
	}
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReceiveWebhook(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.POST("/api/webhooks/opal", f.handler.ReceiveWebhook)
		return r
	}

	t.Run("workflow triggered event creates execution", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type":     "workflow.triggered",
			"workflow_id":    "wf-1",
			"workflow_name":  "force_sync",
			"correlation_id": "corr-1",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, f.events.appended, 1)
		assert.Equal(t, []string{"wf-1"}, f.tracker.triggered)
	})

	t.Run("agent event is dispatched to tracker", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type":  "agent.completed",
			"workflow_id": "wf-1",
			"agent_id":    "strategy_workflow",
			"success":     true,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, f.tracker.agentEvents, 1)
		assert.Equal(t, "strategy_workflow", f.tracker.agentEvents[0].AgentID)
	})

	t.Run("unknown event type is quarantined not dispatched", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type":  "workflow.rescheduled",
			"workflow_id": "wf-1",
		})

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, f.events.appended, 1)
		assert.True(t, f.events.appended[0].Quarantined)
		assert.Empty(t, f.tracker.triggered)
		assert.Empty(t, f.tracker.agentEvents)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["quarantined"])
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		req := httptest.NewRequest("POST", "/api/webhooks/opal", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, f.events.appended)
	})

	t.Run("missing workflow_id is rejected", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type": "workflow.completed",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate trigger over terminal run returns conflict", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.tracker.triggerErr = fmt.Errorf("workflow wf-1: %w", models.ErrDuplicateWorkflow)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type":  "workflow.triggered",
			"workflow_id": "wf-1",
		})

		assert.Equal(t, http.StatusConflict, w.Code)

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.ErrCodeDuplicateWorkflow, resp.Code)
	})

	t.Run("store failure surfaces as 500", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.events.appendErr = errors.New("connection refused")
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/webhooks/opal", gin.H{
			"event_type":  "workflow.triggered",
			"workflow_id": "wf-1",
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, f.tracker.triggered)
	})
}

func TestReceiveWebhook_SharedSecret(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.POST("/api/webhooks/opal", f.handler.ReceiveWebhook)
		return r
	}

	body := gin.H{
		"event_type":  "workflow.triggered",
		"workflow_id": "wf-1",
	}

	t.Run("mismatched secret is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.handler.cfg.OPAL.WebhookSecret = "expected"
		router := newRouter(f)

		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest("POST", "/api/webhooks/opal", &buf)
		req.Header.Set(webhookSecretHeader, "wrong")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, f.events.appended)
	})

	t.Run("matching secret is accepted", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.handler.cfg.OPAL.WebhookSecret = "expected"
		router := newRouter(f)

		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(body)
		req := httptest.NewRequest("POST", "/api/webhooks/opal", &buf)
		req.Header.Set(webhookSecretHeader, "expected")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTriggerSync(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.POST("/api/sync/trigger", f.handler.TriggerSync)
		return r
	}

	t.Run("rejects when a sync is already active", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.tracker.active = []models.WorkflowExecution{{
			WorkflowID:    "wf-active",
			CorrelationID: "corr-active",
			Status:        models.WorkflowStatusRunning,
		}}
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, f.platform.calls, "platform must not be invoked")

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Sync Already Active", resp.Error)
		assert.Equal(t, models.ErrCodeSyncActive, resp.Code)
	})

	t.Run("triggers and records when idle", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", TriggerSyncRequest{SyncScope: "quick"})

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, f.platform.calls)
		assert.Equal(t, []string{"wf-new"}, f.tracker.triggered)

		var resp TriggerSyncResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "wf-new", resp.WorkflowID)
		assert.Equal(t, "corr-new", resp.CorrelationID)
	})

	t.Run("dry run never reaches the platform", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", TriggerSyncRequest{DryRun: true})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, f.platform.calls)
	})

	t.Run("missing platform client is a configuration error", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.handler.platform = nil
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp models.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.ErrCodeConfigurationError, resp.Code)
	})

	t.Run("platform failure is a bad gateway", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.platform.err = errors.New("connection refused")
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", nil)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("session check failure is a server error", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.tracker.activeErr = errors.New("db down")
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/sync/trigger", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, 0, f.platform.calls)
	})
}

func TestSyncStatus(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.GET("/api/sync/status/:workflow_id", f.handler.SyncStatus)
		return r
	}

	t.Run("running workflow keeps clients polling", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.tracker.execs["wf-1"] = &models.WorkflowExecution{
			WorkflowID: "wf-1",
			Status:     models.WorkflowStatusRunning,
			EventCount: 5,
		}
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/sync/status/wf-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp SyncStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.WorkflowStatusRunning, resp.Status)
		require.NotNil(t, resp.PollingInterval)
		assert.Equal(t, 2000, *resp.PollingInterval)
		assert.Greater(t, resp.Progress, 0)
		assert.Less(t, resp.Progress, 100)
	})

	t.Run("terminal workflow stops polling", func(t *testing.T) {
		f := newHandlerFixture(t)
		completedAt := time.Now()
		f.tracker.execs["wf-1"] = &models.WorkflowExecution{
			WorkflowID:  "wf-1",
			Status:      models.WorkflowStatusCompleted,
			CompletedAt: &completedAt,
			EventCount:  15,
		}
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/sync/status/wf-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		// polling_interval must serialize as explicit null for terminal runs
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
		assert.Equal(t, "null", string(raw["polling_interval"]))

		var resp SyncStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 100, resp.Progress)
	})

	t.Run("failed workflow carries the reason", func(t *testing.T) {
		f := newHandlerFixture(t)
		failedAt := time.Now()
		f.tracker.execs["wf-1"] = &models.WorkflowExecution{
			WorkflowID:    "wf-1",
			Status:        models.WorkflowStatusFailed,
			FailedAt:      &failedAt,
			FailureReason: "agent timeout",
		}
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/sync/status/wf-1", nil)

		var resp SyncStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "agent timeout", resp.FailureReason)
		assert.Nil(t, resp.PollingInterval)
	})

	t.Run("unknown workflow is not found", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/sync/status/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGetHealth(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.GET("/api/health", f.handler.GetHealth)
		r.POST("/api/health/refresh", f.handler.RefreshHealth)
		return r
	}

	t.Run("healthy snapshot", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, health.StatusHealthy, resp.Status)
		assert.False(t, resp.Cached)
	})

	t.Run("unhealthy snapshot still answers 200", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.healthSrc.snap = &health.Snapshot{Status: health.StatusUnhealthy, Errors: []string{"database: down"}}
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, health.StatusUnhealthy, resp.Status)
	})

	t.Run("panicking probe falls back to cache", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.healthSrc.panics = true
		f.healthSrc.cachedSnap = &health.Snapshot{Status: health.StatusDegraded, FallbackUsed: true}
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, health.StatusDegraded, resp.Status)
		assert.True(t, resp.Cached)
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("panicking probe without cache reports minimal shape", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.healthSrc.panics = true
		router := newRouter(f)

		w := performJSON(router, "GET", "/api/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, health.StatusUnhealthy, resp.Status)
	})

	t.Run("force refresh", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/health/refresh", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["force_refreshed"])
	})
}

func TestRunValidation(t *testing.T) {
	newRouter := func(f *handlerFixture) *gin.Engine {
		r := gin.New()
		r.POST("/api/validation/run", f.handler.RunValidation)
		return r
	}

	t.Run("defaults to configured batch limit", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/validation/run", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, config.Default().Validation.BatchLimit, f.reconciler.lastLimit)
		assert.False(t, f.reconciler.lastDry)
	})

	t.Run("honors explicit limit and dry run", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/validation/run", RunValidationRequest{Limit: 3, DryRun: true})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, f.reconciler.lastLimit)
		assert.True(t, f.reconciler.lastDry)
	})

	t.Run("reconciler failure surfaces as 500", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.reconciler.err = errors.New("db down")
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/validation/run", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestListValidations(t *testing.T) {
	f := newHandlerFixture(t)
	f.validations.records = []models.IntegrationValidationRecord{
		{ID: "v-1", OverallStatus: models.VerdictGreen},
		{ID: "v-2", OverallStatus: models.VerdictRed},
	}
	router := gin.New()
	router.GET("/api/validation/records", f.handler.ListValidations)

	t.Run("lists records", func(t *testing.T) {
		w := performJSON(router, "GET", "/api/validation/records", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Records []models.IntegrationValidationRecord `json:"records"`
			Count   int                                  `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("honors limit", func(t *testing.T) {
		w := performJSON(router, "GET", "/api/validation/records?limit=1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		w := performJSON(router, "GET", "/api/validation/records?limit=-2", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.DefaultCost)
	require.NoError(t, err)

	newRouter := func(f *handlerFixture) *gin.Engine {
		f.users.users["ops@example.com"] = &models.User{
			ID:             "user-1",
			Email:          "ops@example.com",
			HashedPassword: string(hashed),
		}
		r := gin.New()
		r.POST("/api/auth/login", f.handler.Login)
		return r
	}

	t.Run("valid credentials issue a token", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/auth/login", models.LoginRequest{
			Email:    "ops@example.com",
			Password: "correct horse",
		})

		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "user-1", resp.UserID)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/auth/login", models.LoginRequest{
			Email:    "ops@example.com",
			Password: "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user is unauthorized", func(t *testing.T) {
		f := newHandlerFixture(t)
		router := newRouter(f)

		w := performJSON(router, "POST", "/api/auth/login", models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestGetWorkflowStats(t *testing.T) {
	f := newHandlerFixture(t)
	f.tracker.stats = &models.ExecutionStats{WindowHours: 24, Completed: 3, SuccessRate: 0.75}
	router := gin.New()
	router.GET("/api/workflows/stats", f.handler.GetWorkflowStats)

	t.Run("returns stats", func(t *testing.T) {
		w := performJSON(router, "GET", "/api/workflows/stats", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var stats models.ExecutionStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 3, stats.Completed)
	})

	t.Run("rejects invalid window", func(t *testing.T) {
		w := performJSON(router, "GET", "/api/workflows/stats?window_hours=zero", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetAgentStatuses(t *testing.T) {
	f := newHandlerFixture(t)
	f.handler.agents = &fakeAgents{snapshots: map[string]models.AgentStatusSnapshot{
		"strategy_workflow": {AgentID: "strategy_workflow", Status: models.AgentStatusCompleted},
		"geo_audit":         {AgentID: "geo_audit", Status: models.AgentStatusRunning},
	}}
	router := gin.New()
	router.GET("/api/agents/status", f.handler.GetAgentStatuses)

	w := performJSON(router, "GET", "/api/agents/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp AgentStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Agents, 2)
	assert.Equal(t, 1, resp.Summary[models.AgentStatusRunning])
}

func TestRunCleanup(t *testing.T) {
	t.Run("reports deleted rows", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.events.deleted = 42
		router := gin.New()
		router.POST("/api/cron/cleanup", f.handler.RunCleanup)

		w := performJSON(router, "POST", "/api/cron/cleanup", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, float64(42), resp["deleted"])
	})

	t.Run("delete failure surfaces as 500", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.events.deleteErr = errors.New("db down")
		router := gin.New()
		router.POST("/api/cron/cleanup", f.handler.RunCleanup)

		w := performJSON(router, "POST", "/api/cron/cleanup", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
