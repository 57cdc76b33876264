package validation

import (
	"fmt"
	"strings"

	"github.com/freshreach/opal-sync-monitor/internal/models"
)

// ComputeVerdict maps the four layer statuses onto a traffic-light color.
// Pure and deterministic: the same inputs always yield the same color.
//
//   - red: the trigger layer or the agent-execution layer failed
//   - yellow: nothing failed hard, but at least one layer is degraded or
//     could not be verified (absence of proof is not proof of failure)
//   - green: all four layers passed
func ComputeVerdict(l1, l2, l3, l4 models.LayerStatus) models.VerdictColor {
	if l1 == models.LayerFail || l2 == models.LayerFail {
		return models.VerdictRed
	}
	for _, l := range []models.LayerStatus{l1, l2, l3, l4} {
		if l != models.LayerPass {
			return models.VerdictYellow
		}
	}
	return models.VerdictGreen
}

var layerNames = [4]string{
	"force-sync orchestration",
	"agent execution",
	"downstream ingestion",
	"results availability",
}

// verdictSummary renders the one-line human explanation stored with each
// validation record.
func verdictSummary(color models.VerdictColor, layers [4]models.LayerStatus, receptionRate float64) string {
	if color == models.VerdictGreen {
		return "all validation layers passed"
	}

	var problems []string
	for i, status := range layers {
		if status != models.LayerPass {
			problems = append(problems, fmt.Sprintf("%s: %s", layerNames[i], status))
		}
	}

	summary := fmt.Sprintf("%s (agent reception %.0f%%)", strings.Join(problems, "; "), receptionRate*100)
	return summary
}

// healthScore is the fraction of layers that fully passed.
func healthScore(layers [4]models.LayerStatus) float64 {
	passed := 0
	for _, status := range layers {
		if status == models.LayerPass {
			passed++
		}
	}
	return float64(passed) / float64(len(layers))
}
