package opal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshreach/opal-sync-monitor/internal/config"
	"github.com/freshreach/opal-sync-monitor/internal/models"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(config.OPALConfig{
		BaseURL: serverURL,
		APIKey:  "test-api-key",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("requires_api_key", func(t *testing.T) {
		_, err := NewClient(config.OPALConfig{BaseURL: "http://localhost"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrConfiguration))
	})

	t.Run("valid_config", func(t *testing.T) {
		client, err := NewClient(config.OPALConfig{
			BaseURL: "http://localhost",
			APIKey:  "key",
		})
		require.NoError(t, err)
		assert.NotNil(t, client.httpClient)
		assert.NotNil(t, client.tracer)
		assert.NotNil(t, client.breaker)
	})
}

func TestClient_TriggerSync(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedResult *TriggerResult
	}{
		{
			name: "successful_trigger",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/sync/trigger", r.URL.Path)
				assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

				var req triggerRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, "full", req.Scope)
				assert.Equal(t, "opal-sync-monitor", req.Source)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusAccepted)
				json.NewEncoder(w).Encode(TriggerResult{
					WorkflowID:    "wf-123",
					CorrelationID: "corr-456",
					SessionID:     "sess-789",
					Status:        "pending",
				})
			},
			expectedResult: &TriggerResult{
				WorkflowID:    "wf-123",
				CorrelationID: "corr-456",
				SessionID:     "sess-789",
				Status:        "pending",
			},
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "opal platform returned status 500",
		},
		{
			name: "invalid_json_response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := testClient(t, server.URL)
			result, err := client.TriggerSync(context.Background(), "full")

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, result)
		})
	}
}

func TestClient_RecentIngestSeen(t *testing.T) {
	t.Run("ingest_seen", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ingest/recent", r.URL.Path)
			assert.Equal(t, "corr-1", r.URL.Query().Get("correlation_id"))
			json.NewEncoder(w).Encode(ingestStatusResponse{CorrelationID: "corr-1", IngestSeen: true})
		}))
		defer server.Close()

		seen, err := testClient(t, server.URL).RecentIngestSeen(context.Background(), "corr-1")
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("ingest_not_seen", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(ingestStatusResponse{CorrelationID: "corr-1", IngestSeen: false})
		}))
		defer server.Close()

		seen, err := testClient(t, server.URL).RecentIngestSeen(context.Background(), "corr-1")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("correlation_id_escaped", func(t *testing.T) {
		// Correlation IDs are opaque tokens; reserved characters must reach
		// the platform as a single query value, not split the query string.
		correlationID := "corr 1&injected=true"
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, correlationID, r.URL.Query().Get("correlation_id"))
			assert.Empty(t, r.URL.Query().Get("injected"))
			json.NewEncoder(w).Encode(ingestStatusResponse{CorrelationID: correlationID, IngestSeen: true})
		}))
		defer server.Close()

		seen, err := testClient(t, server.URL).RecentIngestSeen(context.Background(), correlationID)
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("server_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := testClient(t, server.URL).RecentIngestSeen(context.Background(), "corr-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestClient_ResultsAvailable(t *testing.T) {
	t.Run("results_available", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/workflows/wf-9/results", r.URL.Path)
			json.NewEncoder(w).Encode(workflowResultsResponse{WorkflowID: "wf-9", Available: true})
		}))
		defer server.Close()

		available, err := testClient(t, server.URL).ResultsAvailable(context.Background(), "wf-9")
		require.NoError(t, err)
		assert.True(t, available)
	})

	t.Run("workflow_id_escaped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/workflows/wf%2F9/results", r.URL.EscapedPath())
			json.NewEncoder(w).Encode(workflowResultsResponse{WorkflowID: "wf/9", Available: false})
		}))
		defer server.Close()

		available, err := testClient(t, server.URL).ResultsAvailable(context.Background(), "wf/9")
		require.NoError(t, err)
		assert.False(t, available)
	})
}

func TestClient_Ping(t *testing.T) {
	t.Run("measures_latency", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		latency, err := testClient(t, server.URL).Ping(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, latency, time.Duration(0))
	})

	t.Run("unhealthy_status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := testClient(t, server.URL).Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestClient_IsHealthy(t *testing.T) {
	t.Run("healthy_service", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		assert.True(t, testClient(t, server.URL).IsHealthy(context.Background()))
	})

	t.Run("unreachable_service", func(t *testing.T) {
		client := testClient(t, "http://127.0.0.1:1")
		assert.False(t, client.IsHealthy(context.Background()))
	})
}
