package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("monitor-metrics")

// MonitorMetrics provides metrics collection for webhook ingestion,
// workflow lifecycle and validation runs.
type MonitorMetrics struct {
	eventsReceivedCounter     metric.Int64Counter
	eventsQuarantinedCounter  metric.Int64Counter
	workflowsCompletedCounter metric.Int64Counter
	workflowsFailedCounter    metric.Int64Counter
	workflowDurationHistogram metric.Float64Histogram
	workflowsActiveGauge      metric.Int64UpDownCounter
	validationsRunCounter     metric.Int64Counter
}

// NewMonitorMetrics creates a new monitor metrics collector
func NewMonitorMetrics() (*MonitorMetrics, error) {
	eventsReceivedCounter, err := meter.Int64Counter(
		"opal_monitor.events.received",
		metric.WithDescription("Total number of webhook events received"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	eventsQuarantinedCounter, err := meter.Int64Counter(
		"opal_monitor.events.quarantined",
		metric.WithDescription("Total number of webhook events quarantined for unknown event types"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	workflowsCompletedCounter, err := meter.Int64Counter(
		"opal_monitor.workflows.completed",
		metric.WithDescription("Total number of workflow executions that completed successfully"),
		metric.WithUnit("{workflow}"),
	)
	if err != nil {
		return nil, err
	}

	workflowsFailedCounter, err := meter.Int64Counter(
		"opal_monitor.workflows.failed",
		metric.WithDescription("Total number of workflow executions that failed"),
		metric.WithUnit("{workflow}"),
	)
	if err != nil {
		return nil, err
	}

	workflowDurationHistogram, err := meter.Float64Histogram(
		"opal_monitor.workflow.duration",
		metric.WithDescription("End-to-end workflow execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	workflowsActiveGauge, err := meter.Int64UpDownCounter(
		"opal_monitor.workflows.active",
		metric.WithDescription("Number of currently active workflow executions"),
		metric.WithUnit("{workflow}"),
	)
	if err != nil {
		return nil, err
	}

	validationsRunCounter, err := meter.Int64Counter(
		"opal_monitor.validations.run",
		metric.WithDescription("Total number of validation reconciliations run"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return nil, err
	}

	return &MonitorMetrics{
		eventsReceivedCounter:     eventsReceivedCounter,
		eventsQuarantinedCounter:  eventsQuarantinedCounter,
		workflowsCompletedCounter: workflowsCompletedCounter,
		workflowsFailedCounter:    workflowsFailedCounter,
		workflowDurationHistogram: workflowDurationHistogram,
		workflowsActiveGauge:      workflowsActiveGauge,
		validationsRunCounter:     validationsRunCounter,
	}, nil
}

// RecordEventReceived records an accepted webhook event
func (mm *MonitorMetrics) RecordEventReceived(ctx context.Context, eventType string) {
	mm.eventsReceivedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event.type", eventType),
		),
	)
}

// RecordEventQuarantined records a webhook event held back for an unknown
// event type
func (mm *MonitorMetrics) RecordEventQuarantined(ctx context.Context, eventType string) {
	mm.eventsQuarantinedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("event.type", eventType),
		),
	)
}

// RecordWorkflowStarted records a workflow entering the active set
func (mm *MonitorMetrics) RecordWorkflowStarted(ctx context.Context, workflowName string) {
	mm.workflowsActiveGauge.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
		),
	)
}

// RecordWorkflowCompleted records a successful workflow completion
func (mm *MonitorMetrics) RecordWorkflowCompleted(ctx context.Context, workflowName string, duration time.Duration) {
	mm.workflowsCompletedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("status", "completed"),
		),
	)
	mm.workflowDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("status", "completed"),
		),
	)
	mm.workflowsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
		),
	)
}

// RecordWorkflowFailed records a failed workflow execution
func (mm *MonitorMetrics) RecordWorkflowFailed(ctx context.Context, workflowName, errorType string, duration time.Duration) {
	mm.workflowsFailedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("status", "failed"),
			attribute.String("error.type", errorType),
		),
	)
	mm.workflowDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("status", "failed"),
		),
	)
	mm.workflowsActiveGauge.Add(ctx, -1,
		metric.WithAttributes(
			attribute.String("workflow.name", workflowName),
		),
	)
}

// RecordValidationRun records a validation batch run with its verdict
// distribution
func (mm *MonitorMetrics) RecordValidationRun(ctx context.Context, verdict string) {
	mm.validationsRunCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("verdict", verdict),
		),
	)
}
