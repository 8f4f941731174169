package engine

import (
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func word(text string, conf float32) *visionpb.Word {
	w := &visionpb.Word{Confidence: conf}
	for _, r := range text {
		w.Symbols = append(w.Symbols, &visionpb.Symbol{Text: string(r)})
	}
	return w
}

func TestMapAnnotation(t *testing.T) {
	annotation := &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{
			Text: "Pound Cake\n1 cup butter\n",
			Pages: []*visionpb.Page{{
				Blocks: []*visionpb.Block{{
					Paragraphs: []*visionpb.Paragraph{
						{
							Confidence: 0.965,
							Words:      []*visionpb.Word{word("Pound", 0.97), word("Cake", 0.96)},
						},
						{
							Confidence: 0.712,
							Words:      []*visionpb.Word{word("1", 0.99), word("cup", 0.95), word("butter", 0.42)},
						},
					},
				}},
			}},
		},
	}

	raw := mapAnnotation(annotation)

	assert.Equal(t, Cloud, raw.Kind)
	assert.Equal(t, "Pound Cake\n1 cup butter", raw.Text, "trailing newline stripped")

	require.Len(t, raw.Lines, 2)
	assert.Equal(t, "Pound Cake", raw.Lines[0].Text)
	assert.Equal(t, "1 cup butter", raw.Lines[1].Text)

	// Vision reports fractions; the adapter emits 0-100 percentages.
	require.NotNil(t, raw.Lines[1].Confidence)
	assert.InDelta(t, 71.2, *raw.Lines[1].Confidence, 1e-4)

	require.Len(t, raw.Words, 5)
	assert.Equal(t, "butter", raw.Words[4].Text)
	require.NotNil(t, raw.Words[4].Confidence)
	assert.InDelta(t, 42.0, *raw.Words[4].Confidence, 1e-4)
}

func TestMapAnnotationBlankPage(t *testing.T) {
	raw := mapAnnotation(&visionpb.AnnotateImageResponse{})
	assert.Equal(t, Cloud, raw.Kind)
	assert.Empty(t, raw.Text)
	assert.Empty(t, raw.Lines)
	assert.Empty(t, raw.Words)
}

func TestClassifyVisionError(t *testing.T) {
	tests := []struct {
		name      string
		code      codes.Code
		fatal     bool
		throttled bool
	}{
		{"rate limited", codes.ResourceExhausted, false, true},
		{"service unavailable", codes.Unavailable, false, true},
		{"bad credentials", codes.Unauthenticated, true, false},
		{"permission denied", codes.PermissionDenied, true, false},
		{"anything else is a page failure", codes.Internal, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyVisionError("Invoke", status.Error(tt.code, "boom"))
			require.Error(t, err)
			assert.Equal(t, tt.fatal, IsFatal(err))
			assert.Equal(t, tt.throttled, IsThrottled(err))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("local")
	require.NoError(t, err)
	assert.Equal(t, Local, k)

	k, err = ParseKind("cloud")
	require.NoError(t, err)
	assert.Equal(t, Cloud, k)

	_, err = ParseKind("hybrid")
	require.Error(t, err)
}

func TestErrorTaxonomy(t *testing.T) {
	wrapped := NewEngineError("Invoke", ErrThrottled, "quota exceeded")
	assert.True(t, IsThrottled(wrapped))
	assert.False(t, IsFatal(wrapped))
	assert.ErrorIs(t, wrapped, ErrThrottled)

	for _, sentinel := range []error{ErrEngineUnavailable, ErrMissingCredentials, ErrAuthFailed} {
		assert.True(t, IsFatal(NewEngineError("CheckReady", sentinel, "")), sentinel)
	}
	assert.False(t, IsFatal(NewEngineError("Invoke", ErrPageFailed, "")))

	// Wrapping an already wrapped error keeps the original.
	again := WrapEngineError("Outer", wrapped, "ignored")
	assert.Same(t, wrapped, again.(*EngineError))
}
