package models

import "time"

// Submission is one user answer to one challenge. Created exactly once
// per user action and persisted append-only.
type Submission struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"session_id"`
	ChallengeID   string                 `json:"challenge_id"`
	ChallengeType ChallengeType          `json:"challenge_type"`
	ConceptArea   ConceptArea            `json:"concept_area"`
	Payload       map[string]interface{} `json:"payload"`
	ElapsedMs     *int64                 `json:"elapsed_ms,omitempty"`
	UsedAssist    bool                   `json:"used_assist"`
	QualityScore  *float64               `json:"quality_score,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// SubmitRequest is the body of POST /api/v1/feed/submit.
type SubmitRequest struct {
	SessionID     string                 `json:"sessionId"`
	ChallengeID   string                 `json:"challengeId"`
	ChallengeType ChallengeType          `json:"challengeType"`
	ConceptArea   ConceptArea            `json:"conceptArea"`
	Submission    map[string]interface{} `json:"submission"`
	TimeMs        *int64                 `json:"timeMs,omitempty"`
	UsedAssist    bool                   `json:"usedAi,omitempty"`
}

// ComparisonResult is returned by both submit and compare: how the
// submitter stacks up against everyone else on the same challenge.
type ComparisonResult struct {
	Percentile       int             `json:"percentile"`
	TotalSubmissions int64           `json:"totalSubmissions"`
	Distribution     map[int64]int64 `json:"distribution"`
	Insight          string          `json:"insight"`
}

// QueueRequest is the body of POST /api/v1/feed/queue.
type QueueRequest struct {
	SessionID   string   `json:"sessionId,omitempty"`
	ExcludedIDs []string `json:"excludedIds,omitempty"`
	BatchSize   int      `json:"batchSize,omitempty"`
}

// QueueResponse carries an ordered batch of challenges.
type QueueResponse struct {
	Challenges []*Challenge `json:"challenges"`
	Total      int          `json:"total"`
}
