package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/freshreach/opal-sync-monitor/internal/logger"
)

var wsTracer = otel.Tracer("agent-stream")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking for production
		return true
	},
}

// AgentStream pushes periodic agent-status snapshots to dashboard clients.
type AgentStream struct {
	agents   AgentStatusSource
	interval time.Duration
	tracer   trace.Tracer
}

// NewAgentStream creates a new agent status stream
func NewAgentStream(agents AgentStatusSource, interval time.Duration) *AgentStream {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &AgentStream{
		agents:   agents,
		interval: interval,
		tracer:   wsTracer,
	}
}

// agentStreamFrame is one push to the client.
type agentStreamFrame struct {
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Snapshot  AgentStatusResponse `json:"snapshot"`
}

// Stream handles WebSocket /api/ws/agents
// @Summary Stream agent statuses
// @Description WebSocket endpoint pushing the agent status snapshot at a fixed interval
// @Tags agents
// @Success 101 "Switching Protocols"
// @Router /ws/agents [get]
func (s *AgentStream) Stream(c *gin.Context) {
	_, span := s.tracer.Start(c.Request.Context(), "agent_stream.stream")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		logger.Logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}
	defer conn.Close()

	span.SetAttributes(attribute.String("client", c.ClientIP()))
	logger.Logger.Debug().Str("client", c.ClientIP()).Msg("agent stream connected")

	errChan := make(chan error, 2)

	// Client -> ignore; this is a one-way push stream, but the read pump
	// must drain so close frames and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				errChan <- err
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			frame := agentStreamFrame{
				Type:      "agent_status",
				Timestamp: time.Now().UTC(),
				Snapshot: AgentStatusResponse{
					Agents:  s.agents.GetLatestAgentStatuses(),
					Summary: s.agents.Summary(),
				},
			}
			if err := conn.WriteJSON(frame); err != nil {
				errChan <- err
				return
			}

			select {
			case <-ticker.C:
			case <-c.Request.Context().Done():
				errChan <- c.Request.Context().Err()
				return
			}
		}
	}()

	err = <-errChan
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		span.RecordError(err)
		logger.Logger.Debug().Err(err).Msg("agent stream closed")
	}
}
