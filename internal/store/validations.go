package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// InsertValidation persists one reconciliation verdict. Records are
// immutable; a repeated pass for the same workflow inserts a new row.
func (s *Postgres) InsertValidation(ctx context.Context, rec *models.IntegrationValidationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.ValidatedAt.IsZero() {
		rec.ValidatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO integration_validations
			(id, force_sync_workflow_id, opal_correlation_id, overall_status,
			 summary, validated_at, layer1_status, layer2_status, layer3_status,
			 layer4_status, osa_reception_rate, health_score,
			 health_agents_missing, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, rec.ID, rec.ForceSyncWorkflowID, rec.OPALCorrelationID, rec.OverallStatus,
		rec.Summary, rec.ValidatedAt, rec.Layer1Status, rec.Layer2Status,
		rec.Layer3Status, rec.Layer4Status, rec.OSAReceptionRate, rec.HealthScore,
		rec.HealthAgentsMissing, rec.Errors)

	if err != nil {
		return fmt.Errorf("insert validation record for %s: %w", rec.ForceSyncWorkflowID, err)
	}
	return nil
}

// ListRecentValidations returns the newest validation records, bounded by
// limit. Used by the health aggregator and the records endpoint.
func (s *Postgres) ListRecentValidations(ctx context.Context, limit int) ([]models.IntegrationValidationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, force_sync_workflow_id, opal_correlation_id, overall_status,
		       summary, validated_at, layer1_status, layer2_status, layer3_status,
		       layer4_status, osa_reception_rate, health_score,
		       health_agents_missing, errors
		FROM integration_validations
		ORDER BY validated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent validations: %w", err)
	}
	defer rows.Close()

	var records []models.IntegrationValidationRecord
	for rows.Next() {
		var rec models.IntegrationValidationRecord
		if err := rows.Scan(
			&rec.ID, &rec.ForceSyncWorkflowID, &rec.OPALCorrelationID, &rec.OverallStatus,
			&rec.Summary, &rec.ValidatedAt, &rec.Layer1Status, &rec.Layer2Status,
			&rec.Layer3Status, &rec.Layer4Status, &rec.OSAReceptionRate, &rec.HealthScore,
			&rec.HealthAgentsMissing, &rec.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan validation record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation records: %w", err)
	}

	return records, nil
}
