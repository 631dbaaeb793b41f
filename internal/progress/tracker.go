// Package progress maintains per-session completion state.
package progress

import (
	"time"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// RecordCompletion folds a completed challenge into the session's
// progress record and returns the updated copy, plus whether anything
// changed. A nil existing record starts a fresh one.
//
// The operation is idempotent: re-submitting an already-completed id
// returns the record unchanged and never double-counts.
func RecordCompletion(existing *models.SessionProgress, sessionID, challengeID string, area models.ConceptArea) (*models.SessionProgress, bool) {
	if existing == nil {
		p := models.NewSessionProgress(sessionID)
		p.CompletedIDs = []string{challengeID}
		p.AreaCounts[area] = 1
		p.TotalCompleted = 1
		p.UpdatedAt = time.Now().UTC()
		return p, true
	}

	if existing.Completed(challengeID) {
		return existing, false
	}

	updated := &models.SessionProgress{
		SessionID:      existing.SessionID,
		CompletedIDs:   make([]string, 0, len(existing.CompletedIDs)+1),
		AreaCounts:     make(map[models.ConceptArea]int, len(existing.AreaCounts)),
		TotalCompleted: existing.TotalCompleted + 1,
		UpdatedAt:      time.Now().UTC(),
	}
	updated.CompletedIDs = append(updated.CompletedIDs, existing.CompletedIDs...)
	updated.CompletedIDs = append(updated.CompletedIDs, challengeID)
	for a, n := range existing.AreaCounts {
		updated.AreaCounts[a] = n
	}
	updated.AreaCounts[area]++

	return updated, true
}
