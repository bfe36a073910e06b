// Package confidence labels generated answers with a cheap extractive heuristic.
//
// The label is not calibrated and is not derived from model likelihoods: it only
// checks answer length and whether the answer appears verbatim in the passage.
package confidence

import "strings"

// Level is an ordinal confidence label.
type Level string

const (
	Low    Level = "Low"
	Medium Level = "Medium"
	High   Level = "High"
)

// minTokens is the smallest whitespace token count that can score above Low.
const minTokens = 2

// Score rates answer against the passage it was generated from.
// Answers shorter than two tokens are Low; answers found case-insensitively in
// context are High; anything else is Medium.
func Score(answer, context string) Level {
	if len(strings.Fields(answer)) < minTokens {
		return Low
	}
	if strings.Contains(strings.ToLower(context), strings.ToLower(answer)) {
		return High
	}
	return Medium
}
