// Package moderation evaluates viewer text against the channel's content policy.
// Evaluation is pure: no I/O, same input always yields the same verdict.
package moderation

import (
	"strings"
	"unicode"
)

// Reasons reported to the submitter.
const (
	ReasonInappropriateLanguage = "Contains inappropriate language"
	ReasonExcessiveViolence     = "Contains excessive violent content"
	ReasonExcessiveCaps         = "Excessive use of capital letters"
	ReasonSpam                  = "Appears to be spam or repetitive content"
)

const (
	maxViolenceHits      = 2
	minLettersForShout   = 50
	maxUppercaseRatio    = 0.5
	minWordsForSpamCheck = 20
	minDistinctWordRatio = 0.3
)

// bannedTerms are matched as case-insensitive substrings.
var bannedTerms = []string{
	"fuck", "shit", "damn", "hell", "ass", "bitch", "cock", "dick",
	"pussy", "cunt", "bastard", "whore", "slut", "nigger", "fag",
	"rape", "molest", "porn", "sex", "xxx",
}

// violenceKeywords are counted once per distinct keyword present.
var violenceKeywords = []string{
	"kill", "murder", "blood", "gore", "torture", "suicide", "death",
	"weapon", "gun", "knife", "violence",
}

// Verdict is the outcome of Evaluate.
type Verdict struct {
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// Evaluate checks text (and an optional title) against the policy rules in
// order; the first failing rule decides the verdict. The title only takes part
// in the banned-term check.
func Evaluate(text string, title ...string) Verdict {
	combined := text
	if len(title) > 0 && title[0] != "" {
		combined = text + " " + title[0]
	}
	lowerCombined := strings.ToLower(combined)
	for _, term := range bannedTerms {
		if strings.Contains(lowerCombined, term) {
			return Verdict{Reason: ReasonInappropriateLanguage}
		}
	}

	lowerText := strings.ToLower(text)
	if violenceHits(lowerText) > maxViolenceHits {
		return Verdict{Reason: ReasonExcessiveViolence}
	}

	if isShouting(text) {
		return Verdict{Reason: ReasonExcessiveCaps}
	}

	words := strings.Fields(lowerText)
	if len(words) > minWordsForSpamCheck {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[w] = struct{}{}
		}
		if float64(len(distinct))/float64(len(words)) < minDistinctWordRatio {
			return Verdict{Reason: ReasonSpam}
		}
	}

	return Verdict{Passed: true}
}

func violenceHits(lowerText string) int {
	hits := 0
	for _, kw := range violenceKeywords {
		if strings.Contains(lowerText, kw) {
			hits++
		}
	}
	return hits
}

// isShouting counts ASCII letters only, matching what the overlay counts client side.
func isShouting(text string) bool {
	letters, upper := 0, 0
	for _, r := range text {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters <= minLettersForShout {
		return false
	}
	return float64(upper)/float64(letters) > maxUppercaseRatio
}

// CountWords returns the number of whitespace separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
