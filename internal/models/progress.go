package models

import "time"

// SessionProgress records which challenges a session has completed and
// how many fall in each concept area. A challenge moves NotStarted →
// Completed exactly once; abandoned attempts are never recorded.
//
// Invariant: len(CompletedIDs) equals the sum of AreaCounts values.
type SessionProgress struct {
	SessionID      string              `json:"session_id"`
	CompletedIDs   []string            `json:"completed_ids"`
	AreaCounts     map[ConceptArea]int `json:"concept_area_counts"`
	TotalCompleted int                 `json:"total_completed"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// NewSessionProgress returns an all-zero progress record with every
// concept area present, which is also the response for sessions that
// have no history yet.
func NewSessionProgress(sessionID string) *SessionProgress {
	counts := make(map[ConceptArea]int, len(ConceptAreas))
	for _, area := range ConceptAreas {
		counts[area] = 0
	}
	return &SessionProgress{
		SessionID:    sessionID,
		CompletedIDs: []string{},
		AreaCounts:   counts,
	}
}

// Completed reports whether the challenge id is already recorded.
func (p *SessionProgress) Completed(challengeID string) bool {
	for _, id := range p.CompletedIDs {
		if id == challengeID {
			return true
		}
	}
	return false
}
