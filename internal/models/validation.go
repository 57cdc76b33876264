package models

import (
	"time"
)

// VerdictColor is the traffic-light outcome of one reconciliation pass.
type VerdictColor string

const (
	VerdictGreen  VerdictColor = "green"
	VerdictYellow VerdictColor = "yellow"
	VerdictRed    VerdictColor = "red"
)

// LayerStatus is the outcome of a single validation layer. A layer that
// errors internally degrades to LayerUnknown rather than failing the pass.
type LayerStatus string

const (
	LayerPass     LayerStatus = "pass"
	LayerFail     LayerStatus = "fail"
	LayerDegraded LayerStatus = "degraded"
	LayerUnknown  LayerStatus = "unknown"
)

// IntegrationValidationRecord is one immutable reconciliation verdict for a
// Force Sync workflow. A new pass always inserts a new row; prior passes are
// never overwritten.
type IntegrationValidationRecord struct {
	ID                  string       `json:"id" db:"id"`
	ForceSyncWorkflowID string       `json:"force_sync_workflow_id" db:"force_sync_workflow_id"`
	OPALCorrelationID   string       `json:"opal_correlation_id" db:"opal_correlation_id"`
	OverallStatus       VerdictColor `json:"overall_status" db:"overall_status"`
	Summary             string       `json:"summary" db:"summary"`
	ValidatedAt         time.Time    `json:"validated_at" db:"validated_at"`
	Layer1Status        LayerStatus  `json:"layer1_status" db:"layer1_status"`
	Layer2Status        LayerStatus  `json:"layer2_status" db:"layer2_status"`
	Layer3Status        LayerStatus  `json:"layer3_status" db:"layer3_status"`
	Layer4Status        LayerStatus  `json:"layer4_status" db:"layer4_status"`
	OSAReceptionRate    float64      `json:"osa_reception_rate" db:"osa_reception_rate"`
	HealthScore         float64      `json:"health_score" db:"health_score"`
	HealthAgentsMissing []string     `json:"health_agents_missing,omitempty" db:"health_agents_missing"`
	Errors              []string     `json:"errors,omitempty" db:"errors"`
}

// BatchItemResult is the per-workflow outcome of a reconciliation batch.
// Success means a verdict was produced and persisted, independent of color.
type BatchItemResult struct {
	WorkflowID    string       `json:"workflow_id"`
	Success       bool         `json:"success"`
	OverallStatus VerdictColor `json:"overall_status,omitempty"`
	Layer1Status  LayerStatus  `json:"layer1_status,omitempty"`
	Layer2Status  LayerStatus  `json:"layer2_status,omitempty"`
	Layer3Status  LayerStatus  `json:"layer3_status,omitempty"`
	Layer4Status  LayerStatus  `json:"layer4_status,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// BatchResult is what a reconciliation run returns to its caller, typically
// the cron handler.
type BatchResult struct {
	Processed int               `json:"processed"`
	DryRun    bool              `json:"dry_run,omitempty"`
	Results   []BatchItemResult `json:"results"`
}
