package coach

import (
	"fmt"
	"strings"

	"github.com/okian/commskill/internal/domain/scoring"
)

const basePrompt = `You are a public speaking coach. You help the user improve eye contact, ` +
	`posture, gestures, voice clarity, speaking pace and overall engagement. ` +
	`Keep answers short and practical. Scores range from 0 to 100.`

const insightsPrompt = `You review communication-skill scores from 0 to 100 and reply with a JSON ` +
	`object with exactly three string-array fields: "strengths", "improvements" and ` +
	`"recommendations". Each array holds at most three short sentences.`

const greeting = "Hi! I'm your communication coach. Ask me about any of your skills."

// skillKeywords maps words a user might type to the dimension they mean.
var skillKeywords = map[string]scoring.Dimension{ //nolint:gochecknoglobals // lookup table
	"eye":        scoring.DimEyeContact,
	"gaze":       scoring.DimEyeContact,
	"posture":    scoring.DimPosture,
	"stand":      scoring.DimPosture,
	"gesture":    scoring.DimGestures,
	"hands":      scoring.DimGestures,
	"voice":      scoring.DimVoiceClarity,
	"clarity":    scoring.DimVoiceClarity,
	"pace":       scoring.DimPace,
	"speed":      scoring.DimPace,
	"fast":       scoring.DimPace,
	"slow":       scoring.DimPace,
	"engagement": scoring.DimEngagement,
	"engaging":   scoring.DimEngagement,
}

// detectSkill returns the first dimension mentioned in msg.
func detectSkill(msg string) scoring.Dimension {
	lower := strings.ToLower(msg)
	best, bestAt := scoring.Dimension(""), len(lower)+1
	for kw, d := range skillKeywords {
		if i := strings.Index(lower, kw); i >= 0 && i < bestAt {
			best, bestAt = d, i
		}
	}
	return best
}

func formatScores(scores scoring.Scores) string {
	var b strings.Builder
	for _, s := range scores.List() {
		fmt.Fprintf(&b, "- %s: %.0f\n", s.Dimension, s.Value)
	}
	return b.String()
}

func systemPrompt(scores scoring.Scores) string {
	if len(scores) == 0 {
		return basePrompt + " The user has no analysed videos yet; encourage them to record one."
	}
	return basePrompt + "\nThe user's latest scores:\n" + formatScores(scores)
}
