package stats

import "github.com/fluent-loop/feed-engine/internal/models"

// FirstSubmitterInsight is returned when no aggregate exists yet.
const FirstSubmitterInsight = "Be the first to complete this challenge!"

// Insight returns the human-readable comparison line for a challenge
// type and percentile. Three tiers: >=70, >=40, below.
func Insight(challengeType models.ChallengeType, percentile int) string {
	high := percentile >= 70
	mid := percentile >= 40

	switch challengeType {
	case models.TypeTasteCurator:
		if high {
			return "Your taste aligns strongly with the expert panel. You've got a sharp eye for quality."
		}
		if mid {
			return "Your picks were reasonable, though the experts saw something different. Taste develops with exposure."
		}
		return "You and the experts went different directions. That's not wrong — but understanding why they chose differently is the skill."

	case models.TypeTrustCall, models.TypeFirstPrinciples:
		if high {
			return "Strong critical thinking. You caught what most people miss."
		}
		if mid {
			return "Decent instincts, but there's room to sharpen your reasoning."
		}
		return "This one trips up a lot of people. The key is slowing down and reasoning from first principles."

	case models.TypePromptForge, models.TypeContextSurgeon:
		if high {
			return "You completed this faster and more thoroughly than most. Your prompting instincts are strong."
		}
		if mid {
			return "Solid approach. With practice, you'll develop the muscle memory for great prompts."
		}
		return "This is a skill that improves dramatically with practice. Try the hint next time for a boost."

	case models.TypeReverseEngineer:
		if high {
			return "You can read AI output like a fingerprint. That's a genuinely valuable skill."
		}
		if mid {
			return "Good eye. Reverse-engineering prompts gets easier as you write more of them."
		}
		return "Prompt-to-output mapping is tricky. The more you practice writing prompts, the better you'll read them."

	case models.TypeDebugDetective:
		if high {
			return "Sharp debugging instincts. You spotted the issues that most people overlook."
		}
		if mid {
			return "You caught some bugs but missed others. The subtle ones are where the real skill is."
		}
		return "Prompt debugging is one of the hardest skills. Each miss teaches you what to look for next time."

	case models.TypeToolChain:
		if high {
			return "Your workflow design is efficient and logical. You understand how AI tools fit together."
		}
		if mid {
			return "Good pipeline thinking. Consider the data flow between tools — that's where optimization happens."
		}
		return "Orchestrating tools is complex. Think about what each tool needs as input and what it produces."

	case models.TypeAgentArchitect:
		if high {
			return "Your agent design shows strong systems thinking. You understand decomposition and tool assignment."
		}
		if mid {
			return "Good architecture. Think about failure modes and what guardrails each step needs."
		}
		return "Agent design has a lot of moving parts. Focus on clear handoffs between steps — that's where agents break."

	default:
		if high {
			return "Impressive performance! You're building strong AI skills."
		}
		if mid {
			return "Solid work. Keep practicing to sharpen these skills."
		}
		return "Every challenge you complete builds the skill. Keep going."
	}
}
