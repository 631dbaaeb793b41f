package models

// ChallengeType identifies one of the nine challenge interaction kinds.
type ChallengeType string

const (
	TypePromptForge     ChallengeType = "prompt-forge"
	TypeReverseEngineer ChallengeType = "reverse-engineer"
	TypeTasteCurator    ChallengeType = "taste-curator"
	TypeTrustCall       ChallengeType = "trust-call"
	TypeFirstPrinciples ChallengeType = "first-principles"
	TypeContextSurgeon  ChallengeType = "context-surgeon"
	TypeDebugDetective  ChallengeType = "debug-detective"
	TypeToolChain       ChallengeType = "tool-chain"
	TypeAgentArchitect  ChallengeType = "agent-architect"
)

// ChallengeTypes lists all known challenge types.
var ChallengeTypes = []ChallengeType{
	TypePromptForge,
	TypeReverseEngineer,
	TypeTasteCurator,
	TypeTrustCall,
	TypeFirstPrinciples,
	TypeContextSurgeon,
	TypeDebugDetective,
	TypeToolChain,
	TypeAgentArchitect,
}

// IsValid returns true if the type is one of the nine known kinds.
func (t ChallengeType) IsValid() bool {
	for _, known := range ChallengeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ExternallyAssisted returns true for challenge types whose interaction
// invokes an outside generative capability while the user works.
func (t ChallengeType) ExternallyAssisted() bool {
	return t == TypePromptForge || t == TypeContextSurgeon
}

// ConceptArea is one of the eight skill tags used to diversify the feed
// and to report coverage.
type ConceptArea string

const (
	AreaPromptCraft        ConceptArea = "prompt-craft"
	AreaContextEngineering ConceptArea = "context-engineering"
	AreaToolLandscape      ConceptArea = "tool-landscape"
	AreaToolUse            ConceptArea = "tool-use"
	AreaAgentDesign        ConceptArea = "agent-design"
	AreaCodingWithAI       ConceptArea = "coding-with-ai"
	AreaCriticalThinking   ConceptArea = "critical-thinking"
	AreaHumanJudgment      ConceptArea = "human-judgment"
)

// ConceptAreas lists all known concept areas.
var ConceptAreas = []ConceptArea{
	AreaPromptCraft,
	AreaContextEngineering,
	AreaToolLandscape,
	AreaToolUse,
	AreaAgentDesign,
	AreaCodingWithAI,
	AreaCriticalThinking,
	AreaHumanJudgment,
}

// IsValid returns true if the area is one of the eight known tags.
func (a ConceptArea) IsValid() bool {
	for _, known := range ConceptAreas {
		if a == known {
			return true
		}
	}
	return false
}

// Challenge is a single practice exercise. Definitions are immutable:
// built once at catalog load time and shared read-only across sessions.
type Challenge struct {
	ID          string                 `yaml:"id" json:"id"`
	Type        ChallengeType          `yaml:"type" json:"type"`
	ConceptArea ConceptArea            `yaml:"concept_area" json:"concept_area"`
	Title       string                 `yaml:"title" json:"title"`
	Brief       string                 `yaml:"brief" json:"brief"`
	Difficulty  int                    `yaml:"difficulty" json:"difficulty"`
	Payload     map[string]interface{} `yaml:"payload" json:"payload"`
}

// ChallengeSummary is the payload-free view served by the catalog listing.
type ChallengeSummary struct {
	ID          string        `json:"id"`
	Type        ChallengeType `json:"type"`
	ConceptArea ConceptArea   `json:"concept_area"`
	Title       string        `json:"title"`
	Difficulty  int           `json:"difficulty"`
}

// Summary returns the payload-free view of the challenge.
func (c *Challenge) Summary() ChallengeSummary {
	return ChallengeSummary{
		ID:          c.ID,
		Type:        c.Type,
		ConceptArea: c.ConceptArea,
		Title:       c.Title,
		Difficulty:  c.Difficulty,
	}
}
