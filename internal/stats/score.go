package stats

import "github.com/fluent-loop/feed-engine/internal/models"

// ScoreSubmission derives a quality score in [0,1] from a raw
// submission payload, or nil when no meaningful score applies for the
// challenge type.
//
// Binary-correct types yield 1 or 0; the taste type yields 1 for an
// expert-aligned top pick and 0.5 otherwise; graded types carry an
// explicit numeric score; criteria types yield the fraction of criteria
// matched.
func ScoreSubmission(challengeType models.ChallengeType, payload map[string]interface{}) *float64 {
	switch challengeType {
	case models.TypeReverseEngineer, models.TypeFirstPrinciples, models.TypeTrustCall:
		if boolField(payload, "isCorrect") {
			return ptr(1)
		}
		return ptr(0)

	case models.TypeTasteCurator:
		if boolField(payload, "matchesExpert") {
			return ptr(1)
		}
		return ptr(0.5)

	case models.TypeDebugDetective, models.TypeToolChain, models.TypeAgentArchitect:
		if score, ok := numberField(payload, "score"); ok {
			return ptr(score)
		}
		return nil

	case models.TypePromptForge, models.TypeContextSurgeon:
		matched, okMatched := numberField(payload, "criteriaMatched")
		total, okTotal := numberField(payload, "totalCriteria")
		if okMatched && okTotal && total > 0 {
			return ptr(matched / total)
		}
		return nil

	default:
		return nil
	}
}

func boolField(payload map[string]interface{}, key string) bool {
	v, ok := payload[key].(bool)
	return ok && v
}

// numberField tolerates the numeric types JSON and YAML decoding produce.
func numberField(payload map[string]interface{}, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func ptr(f float64) *float64 {
	return &f
}
