package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanreview/internal/engine"
)

func TestNormalizeCloudResponse(t *testing.T) {
	raw := &engine.RawResponse{
		Kind: engine.Cloud,
		Text: "ignored when line data exists",
		Lines: []engine.RawSpan{
			{Text: "Grandma's Pound Cake", Confidence: engine.Pct(96.5)},
			{Text: "1 cup butter, softened", Confidence: engine.Pct(83.5)},
		},
		Words: []engine.RawSpan{
			{Text: "Grandma's", Confidence: engine.Pct(97)},
			{Text: "Pound", Confidence: engine.Pct(96)},
			{Text: "Cake", Confidence: engine.Pct(96.5)},
			{Text: "butter,", Confidence: engine.Pct(71.2)},
		},
	}

	pr := Normalize(raw, 1, "images/page_0001.png")
	require.NoError(t, pr.Validate())

	assert.True(t, pr.Succeeded)
	assert.Equal(t, 1, pr.PageNumber)
	assert.Equal(t, "images/page_0001.png", pr.SourceImageRef)
	assert.Equal(t, "Grandma's Pound Cake\n1 cup butter, softened", pr.RawText,
		"text is the lines joined by newline in engine order")

	require.Len(t, pr.Lines, 2)
	require.Len(t, pr.Words, 4)

	// Confidences are copied verbatim, no rescaling.
	require.NotNil(t, pr.Words[3].Confidence)
	assert.Equal(t, 71.2, *pr.Words[3].Confidence)

	require.NotNil(t, pr.OverallConf)
	assert.InDelta(t, 90.0, *pr.OverallConf, 1e-9, "overall is the mean of line confidences")
}

func TestNormalizeLocalResponse(t *testing.T) {
	raw := &engine.RawResponse{
		Kind: engine.Local,
		Text: "Mix dry ingredients.\nFold in egg whites.",
	}

	pr := Normalize(raw, 4, "images/page_0004.png")
	require.NoError(t, pr.Validate())

	assert.True(t, pr.Succeeded)
	assert.Equal(t, "Mix dry ingredients.\nFold in egg whites.", pr.RawText)
	assert.Empty(t, pr.Lines)
	assert.Empty(t, pr.Words)

	// Absence of scoring stays absent: no defaulting to 0 or 100.
	assert.Nil(t, pr.OverallConf)
	assert.False(t, pr.HasConfidence())
}

func TestNormalizeEmptyPage(t *testing.T) {
	pr := Normalize(&engine.RawResponse{Kind: engine.Cloud}, 2, "ref")
	require.NoError(t, pr.Validate())
	assert.True(t, pr.Succeeded, "a blank page is a success with empty text")
	assert.Empty(t, pr.RawText)
	assert.Nil(t, pr.OverallConf)
}

func TestNormalizeNilResponse(t *testing.T) {
	pr := Normalize(nil, 7, "images/page_0007.png")
	require.NoError(t, pr.Validate())
	assert.False(t, pr.Succeeded)
	assert.NotEmpty(t, pr.ErrorDetail)
	assert.Equal(t, 7, pr.PageNumber)
	assert.Equal(t, "images/page_0007.png", pr.SourceImageRef)
}

func TestNormalizeUnscoredLines(t *testing.T) {
	raw := &engine.RawResponse{
		Kind: engine.Cloud,
		Lines: []engine.RawSpan{
			{Text: "scored", Confidence: engine.Pct(50)},
			{Text: "unscored"},
		},
	}
	pr := Normalize(raw, 1, "ref")
	require.NotNil(t, pr.OverallConf)
	assert.Equal(t, 50.0, *pr.OverallConf, "only scored lines enter the mean")
}
