package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_BannedTerms(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text  string
		title string
		pass  bool
	}{
		{text: "A quiet walk in the park", pass: true},
		{text: "What the HELL was that", pass: false},
		{text: "a perfectly fine story", title: "Damn Good Title", pass: false},
		{text: "the classic assassin trope", pass: false}, // substring match is intentional
		{text: "", title: "", pass: true},
	}

	for _, fix := range fixtures {
		v := Evaluate(fix.text, fix.title)
		assert.Equal(fix.pass, v.Passed, "text=%q title=%q", fix.text, fix.title)
		if !fix.pass {
			assert.Equal(ReasonInappropriateLanguage, v.Reason)
		}
	}
}

func TestEvaluate_AnyBannedTermFails(t *testing.T) {
	for _, term := range bannedTerms {
		for _, variant := range []string{term, strings.ToUpper(term), "pre" + term + "post"} {
			v := Evaluate("once upon a time "+variant+" and then", "")
			assert.False(t, v.Passed, variant)
			v = Evaluate("once upon a time", variant)
			assert.False(t, v.Passed, "title "+variant)
		}
	}
}

func TestEvaluate_ViolenceCountsDistinctKeywords(t *testing.T) {
	// one keyword repeated many times is a single hit
	v := Evaluate(strings.Repeat("blood on the floor of the old mill. ", 2))
	assert.True(t, v.Passed)

	v = Evaluate("the knife and the gun lay next to each other")
	assert.True(t, v.Passed)

	v = Evaluate("the knife, the gun and the blood told the story")
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonExcessiveViolence, v.Reason)
}

func TestEvaluate_ViolenceIgnoresTitle(t *testing.T) {
	v := Evaluate("a calm morning by the lake", "knife gun blood")
	assert.True(t, v.Passed)
}

func TestEvaluate_ShoutingNeedsSampleSize(t *testing.T) {
	// 50 letters, all caps: below the sample threshold
	short := strings.Repeat("ABCDE ", 10)
	assert.True(t, Evaluate(short).Passed)

	long := strings.Repeat("ABCDE ", 11)
	v := Evaluate(long)
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonExcessiveCaps, v.Reason)
}

func TestEvaluate_ShoutingNeverFailsShortText(t *testing.T) {
	for n := 1; n <= minLettersForShout; n++ {
		assert.True(t, Evaluate(strings.Repeat("Q", n)).Passed, "letters=%d", n)
	}
}

func TestEvaluate_ShoutingRatio(t *testing.T) {
	// exactly half upper case is allowed
	half := strings.Repeat("AbAbAbAbAb", 6)
	assert.True(t, Evaluate(half).Passed)

	mostly := strings.Repeat("ABc ", 20)
	assert.False(t, Evaluate(mostly).Passed)
}

func TestEvaluate_Spam(t *testing.T) {
	// 20 words never triggers the check
	assert.True(t, Evaluate(strings.Repeat("buy ", 20)).Passed)

	v := Evaluate(strings.Repeat("buy now ", 11))
	assert.False(t, v.Passed)
	assert.Equal(t, ReasonSpam, v.Reason)

	varied := "the lighthouse keeper counted ships every night until one evening a small boat " +
		"arrived carrying a letter from her sister who had sailed away years before"
	assert.True(t, Evaluate(varied).Passed)
}

func TestEvaluate_RuleOrder(t *testing.T) {
	// banned language wins over every other rule
	text := strings.Repeat("KILL GUN BLOOD DAMN ", 10)
	assert.Equal(t, ReasonInappropriateLanguage, Evaluate(text).Reason)

	// violence wins over caps
	text = strings.Repeat("KILL GUN BLOOD ", 10)
	assert.Equal(t, ReasonExcessiveViolence, Evaluate(text).Reason)
}

func TestEvaluate_Deterministic(t *testing.T) {
	text := "It was a dark and stormy night and the old clock struck twelve."
	assert.Equal(t, Evaluate(text, "Night"), Evaluate(text, "Night"))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("   "))
	assert.Equal(t, 3, CountWords(" one\ttwo\nthree "))
}
