package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshreach/opal-sync-monitor/internal/auth"
	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/health"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/metrics"
	"github.com/freshreach/opal-sync-monitor/internal/models"
	"github.com/freshreach/opal-sync-monitor/internal/opal"
)

// WorkflowMonitor is the tracker surface the gateway needs.
type WorkflowMonitor interface {
	RecordTriggered(ctx context.Context, workflowID, workflowName, correlationID string, timestamp time.Time) error
	RecordAgentEvent(ctx context.Context, ev *models.WebhookEvent) error
	RecordCompleted(ctx context.Context, workflowID string, timestamp time.Time) error
	RecordFailed(ctx context.Context, workflowID, reason string, timestamp time.Time) error
	GetExecution(ctx context.Context, workflowID string) (*models.WorkflowExecution, error)
	ActiveSessions(ctx context.Context) ([]models.WorkflowExecution, error)
	GetStats(ctx context.Context, windowHours int) (*models.ExecutionStats, error)
}

// AgentStatusSource exposes the latest-only agent snapshot projection.
type AgentStatusSource interface {
	GetLatestAgentStatuses() map[string]models.AgentStatusSnapshot
	Summary() map[models.AgentStatus]int
}

// EventStore is the append side of the event store plus retention.
type EventStore interface {
	AppendEvent(ctx context.Context, ev *models.WebhookEvent) error
	DeleteEventsBefore(ctx context.Context, horizon time.Time) (int64, error)
}

// ValidationStore reads persisted validation verdicts.
type ValidationStore interface {
	ListRecentValidations(ctx context.Context, limit int) ([]models.IntegrationValidationRecord, error)
}

// ValidationRunner runs a reconciliation batch.
type ValidationRunner interface {
	Run(ctx context.Context, limit int, dryRun bool) (*models.BatchResult, error)
}

// HealthSource is the health aggregator surface.
type HealthSource interface {
	GetHealth(ctx context.Context) (*health.Snapshot, bool)
	GetCached() *health.Snapshot
	ForceRefresh(ctx context.Context) *health.Snapshot
}

// SyncTrigger starts a Force Sync run on the platform. Nil when the
// platform client is not configured.
type SyncTrigger interface {
	TriggerSync(ctx context.Context, scope string) (*opal.TriggerResult, error)
}

// UserStore looks up operator accounts for login.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler handles HTTP requests for the monitor API
type Handler struct {
	tracker     WorkflowMonitor
	agents      AgentStatusSource
	events      EventStore
	validations ValidationStore
	reconciler  ValidationRunner
	health      HealthSource
	platform    SyncTrigger
	users       UserStore
	jwtManager  *auth.JWTManager
	metrics     *metrics.MonitorMetrics
	cfg         config.Config

	nowFn func() time.Time
}

// NewHandler creates a new gateway handler
func NewHandler(
	tracker WorkflowMonitor,
	agents AgentStatusSource,
	events EventStore,
	validations ValidationStore,
	reconciler ValidationRunner,
	healthSource HealthSource,
	platform SyncTrigger,
	users UserStore,
	jwtManager *auth.JWTManager,
	mm *metrics.MonitorMetrics,
	cfg config.Config,
) *Handler {
	return &Handler{
		tracker:     tracker,
		agents:      agents,
		events:      events,
		validations: validations,
		reconciler:  reconciler,
		health:      healthSource,
		platform:    platform,
		users:       users,
		jwtManager:  jwtManager,
		metrics:     mm,
		cfg:         cfg,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

// Login godoc
// @Summary Operator login
// @Description Authenticate operator and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		logger.Logger.Warn().Str("email", req.Email).Msg("user not found")
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.ErrCodeUnauthorized})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		logger.Logger.Warn().Str("email", req.Email).Msg("invalid password")
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password", Code: models.ErrCodeUnauthorized})
		return
	}

	expiresAt := h.nowFn().Add(24 * time.Hour)
	token, err := h.jwtManager.GenerateToken(c.Request.Context(), user.ID, user.Email, []string{"operator"}, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	})
}

// GetWorkflow godoc
// @Summary Get workflow execution
// @Description Return the tracked execution snapshot for one workflow run
// @Tags workflows
// @Produce json
// @Param id path string true "Workflow ID"
// @Success 200 {object} models.WorkflowExecution
// @Failure 404 {object} models.ErrorResponse
// @Router /workflows/{id} [get]
func (h *Handler) GetWorkflow(c *gin.Context) {
	workflowID := c.Param("id")

	exec, err := h.tracker.GetExecution(c.Request.Context(), workflowID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Workflow not found", Code: models.ErrCodeNotFound})
			return
		}
		logger.Logger.Error().Err(err).Str("workflow_id", workflowID).Msg("failed to load execution")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load workflow", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, exec)
}

// GetWorkflowStats godoc
// @Summary Execution statistics
// @Description Summarize executions within a trailing window
// @Tags workflows
// @Produce json
// @Param window_hours query int false "Window in hours (default 24)"
// @Success 200 {object} models.ExecutionStats
// @Failure 400 {object} models.ErrorResponse
// @Router /workflows/stats [get]
func (h *Handler) GetWorkflowStats(c *gin.Context) {
	windowHours := 24
	if raw := c.Query("window_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "window_hours must be a positive integer", Code: models.ErrCodeInvalidRequest})
			return
		}
		windowHours = parsed
	}

	stats, err := h.tracker.GetStats(c.Request.Context(), windowHours)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("failed to compute execution stats")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to compute stats", Code: models.ErrCodeInternalError})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// AgentStatusResponse is the agent dashboard payload.
type AgentStatusResponse struct {
	Agents  map[string]models.AgentStatusSnapshot `json:"agents"`
	Summary map[models.AgentStatus]int            `json:"summary"`
}

// GetAgentStatuses godoc
// @Summary Latest agent statuses
// @Description Return the latest-only status snapshot per agent with summary buckets
// @Tags agents
// @Produce json
// @Success 200 {object} AgentStatusResponse
// @Router /agents/status [get]
func (h *Handler) GetAgentStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, AgentStatusResponse{
		Agents:  h.agents.GetLatestAgentStatuses(),
		Summary: h.agents.Summary(),
	})
}

// RunCleanup godoc
// @Summary Event retention cleanup
// @Description Delete webhook events older than the retention horizon
// @Tags cron
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /cron/cleanup [post]
func (h *Handler) RunCleanup(c *gin.Context) {
	horizon := h.nowFn().Add(-h.cfg.Cleanup.Retention)

	deleted, err := h.events.DeleteEventsBefore(c.Request.Context(), horizon)
	if err != nil {
		logger.Logger.Error().Err(err).Time("horizon", horizon).Msg("event cleanup failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Cleanup failed", Code: models.ErrCodeInternalError})
		return
	}

	logger.Logger.Info().Int64("deleted", deleted).Time("horizon", horizon).Msg("event cleanup completed")
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "horizon": horizon})
}
