package opal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/logger"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// ClientInterface defines the operations the monitor needs from the OPAL
// platform API.
type ClientInterface interface {
	TriggerSync(ctx context.Context, scope string) (*TriggerResult, error)
	RecentIngestSeen(ctx context.Context, correlationID string) (bool, error)
	ResultsAvailable(ctx context.Context, workflowID string) (bool, error)
	Ping(ctx context.Context) (time.Duration, error)
	IsHealthy(ctx context.Context) bool
}

// Client talks to the OPAL platform API over HTTP. All calls run behind a
// circuit breaker and propagate the caller's trace context.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// TriggerResult is the platform's acknowledgement of a Force Sync trigger.
type TriggerResult struct {
	WorkflowID    string `json:"workflow_id"`
	CorrelationID string `json:"correlation_id"`
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
}

type triggerRequest struct {
	Scope  string `json:"scope"`
	Source string `json:"source"`
}

type ingestStatusResponse struct {
	CorrelationID string     `json:"correlation_id"`
	IngestSeen    bool       `json:"ingest_seen"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
}

type workflowResultsResponse struct {
	WorkflowID string          `json:"workflow_id"`
	Available  bool            `json:"available"`
	Results    json.RawMessage `json:"results,omitempty"`
}

// NewClient creates an OPAL platform client. Returns ErrConfiguration when
// the API key is missing, since every platform endpoint requires one.
func NewClient(cfg config.OPALConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: opal.api_key is required", models.ErrConfiguration)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "opal-platform",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer("opal-client"),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// TriggerSync asks the platform to start a Force Sync run for the given
// scope. The returned result carries the workflow and correlation IDs the
// platform assigned to the run.
func (c *Client) TriggerSync(ctx context.Context, scope string) (*TriggerResult, error) {
	ctx, span := c.tracer.Start(ctx, "opal.trigger_sync")
	defer span.End()

	span.SetAttributes(attribute.String("scope", scope))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.triggerSyncInternal(ctx, scope)
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to trigger sync: %w", err)
	}

	trig := result.(*TriggerResult)
	span.SetAttributes(
		attribute.String("workflow_id", trig.WorkflowID),
		attribute.String("correlation_id", trig.CorrelationID),
	)
	return trig, nil
}

func (c *Client) triggerSyncInternal(ctx context.Context, scope string) (*TriggerResult, error) {
	body, err := json.Marshal(triggerRequest{Scope: scope, Source: "opal-sync-monitor"})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/sync/trigger", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.prepareHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, readErrorStatus(resp)
	}

	var trig TriggerResult
	if err := json.NewDecoder(resp.Body).Decode(&trig); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &trig, nil
}

// RecentIngestSeen reports whether the platform's downstream ingestion has
// observed events for the given correlation ID.
func (c *Client) RecentIngestSeen(ctx context.Context, correlationID string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "opal.recent_ingest_seen")
	defer span.End()

	span.SetAttributes(attribute.String("correlation_id", correlationID))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/ingest/recent?correlation_id=%s", c.baseURL, neturl.QueryEscape(correlationID))
		var status ingestStatusResponse
		if err := c.getJSON(ctx, url, &status); err != nil {
			return false, err
		}
		return status.IngestSeen, nil
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to query ingest status: %w", err)
	}
	return result.(bool), nil
}

// ResultsAvailable reports whether the platform exposes results for the
// given workflow run.
func (c *Client) ResultsAvailable(ctx context.Context, workflowID string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "opal.results_available")
	defer span.End()

	span.SetAttributes(attribute.String("workflow_id", workflowID))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		url := fmt.Sprintf("%s/workflows/%s/results", c.baseURL, neturl.PathEscape(workflowID))
		var results workflowResultsResponse
		if err := c.getJSON(ctx, url, &results); err != nil {
			return false, err
		}
		return results.Available, nil
	})
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to query workflow results: %w", err)
	}
	return result.(bool), nil
}

// Ping measures platform API latency via the health endpoint. It does not
// go through the circuit breaker so the health aggregator keeps observing
// the platform while the breaker is open.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	ctx, span := c.tracer.Start(ctx, "opal.ping")
	defer span.End()

	url := fmt.Sprintf("%s/health", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.prepareHeaders(ctx, httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return latency, readErrorStatus(resp)
	}

	span.SetAttributes(attribute.Int64("latency_ms", latency.Milliseconds()))
	return latency, nil
}

// IsHealthy checks if the OPAL platform is reachable and responding.
func (c *Client) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "opal.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	_, err := c.Ping(ctx)
	healthy := err == nil
	span.SetAttributes(attribute.Bool("healthy", healthy))
	return healthy
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.prepareHeaders(ctx, httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readErrorStatus(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) prepareHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func readErrorStatus(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("opal platform returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}
	return fmt.Errorf("opal platform returned status %d: %s", resp.StatusCode, string(bodyBytes))
}
