package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateFlagsBelowThreshold(t *testing.T) {
	pr := PageResult{
		PageNumber: 1,
		Succeeded:  true,
		RawText:    "some text",
		Words: []Span{
			{Text: "crisp", Confidence: pct(95)},
			{Text: "smudged", Confidence: pct(42.5)},
			{Text: "borderline", Confidence: pct(80)},
			{Text: "justunder", Confidence: pct(79.999)},
			{Text: "unscored"},
		},
	}

	gated := Gate(pr, 80)
	require.NoError(t, gated.Validate())

	// Flagged iff confidence is present and strictly below the threshold.
	require.Len(t, gated.FlaggedWords, 2)
	assert.Equal(t, "smudged", gated.FlaggedWords[0].Text)
	assert.Equal(t, "justunder", gated.FlaggedWords[1].Text)

	// The word list itself is untouched.
	assert.Len(t, gated.Words, 5)
}

func TestGateIsPure(t *testing.T) {
	pr := PageResult{
		PageNumber: 1,
		Succeeded:  true,
		Words:      []Span{{Text: "blurry", Confidence: pct(10)}},
	}

	gated := Gate(pr, 80)
	require.Len(t, gated.FlaggedWords, 1)

	// Input is unchanged and the copy does not alias it.
	assert.Empty(t, pr.FlaggedWords)
	*gated.Words[0].Confidence = 99
	assert.Equal(t, 10.0, *pr.Words[0].Confidence)

	// Deterministic: gating again gives the same flags.
	again := Gate(pr, 80)
	assert.Equal(t, gated.FlaggedWords, again.FlaggedWords)
}

func TestGateWithoutConfidenceIsNoOp(t *testing.T) {
	pr := PageResult{
		PageNumber: 1,
		Succeeded:  true,
		RawText:    "local engine output",
		Words:      []Span{{Text: "unscored"}, {Text: "also"}},
	}

	gated := Gate(pr, 80)
	assert.Empty(t, gated.FlaggedWords, "no confidence data means an empty flag set, not an error")
}

func TestGateFailedPageUnchanged(t *testing.T) {
	pr := Failed(2, "ref", "engine crashed")
	gated := Gate(pr, 80)
	require.NoError(t, gated.Validate())
	assert.Empty(t, gated.FlaggedWords)
	assert.Equal(t, pr.ErrorDetail, gated.ErrorDetail)
}

func TestGateStaleFlagsAreRecomputed(t *testing.T) {
	pr := PageResult{
		PageNumber:   1,
		Succeeded:    true,
		Words:        []Span{{Text: "fine", Confidence: pct(90)}},
		FlaggedWords: []Span{{Text: "stale", Confidence: pct(10)}},
	}
	gated := Gate(pr, 80)
	assert.Empty(t, gated.FlaggedWords, "gating replaces any previous flag set")
}
