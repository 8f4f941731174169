package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func succeededPage(n int, conf *float64) PageResult {
	return PageResult{
		PageNumber:     n,
		SourceImageRef: "ref",
		RawText:        "text",
		Succeeded:      true,
		OverallConf:    conf,
	}
}

func TestBatchAppendOrdering(t *testing.T) {
	b := NewBatchResult("run-1", "recipes.pdf", "local", 3)

	require.NoError(t, b.Append(succeededPage(1, nil)))

	t.Run("duplicate page number rejected", func(t *testing.T) {
		require.Error(t, b.Append(succeededPage(1, nil)))
	})

	t.Run("gap rejected", func(t *testing.T) {
		require.Error(t, b.Append(succeededPage(3, nil)))
	})

	require.NoError(t, b.Append(succeededPage(2, nil)))
	require.NoError(t, b.Append(succeededPage(3, nil)))

	t.Run("page count is a hard ceiling", func(t *testing.T) {
		require.Error(t, b.Append(succeededPage(4, nil)))
	})

	require.NoError(t, b.Validate())
}

func TestBatchAppendAfterTerminalState(t *testing.T) {
	b := NewBatchResult("run-1", "doc.pdf", "local", 2)
	require.NoError(t, b.Append(succeededPage(1, nil)))
	b.Finish(true)

	assert.Equal(t, Aborted, b.State)
	require.Error(t, b.Append(succeededPage(2, nil)), "terminal batches are frozen")
}

func TestBatchDerivedCounts(t *testing.T) {
	b := NewBatchResult("run-1", "doc.pdf", "cloud", 4)
	require.NoError(t, b.Append(succeededPage(1, pct(95))))
	require.NoError(t, b.Append(Failed(2, "ref", "boom")))
	require.NoError(t, b.Append(succeededPage(3, pct(71))))
	require.NoError(t, b.Append(Failed(4, "ref", "boom again")))

	assert.Equal(t, 2, b.SucceededCount())
	assert.Equal(t, 2, b.FailedCount())
	assert.Equal(t, len(b.Results), b.SucceededCount()+b.FailedCount())
}

func TestBatchAverageConfidence(t *testing.T) {
	t.Run("mean over pages that report confidence", func(t *testing.T) {
		b := NewBatchResult("run-1", "doc.pdf", "cloud", 3)
		require.NoError(t, b.Append(succeededPage(1, pct(90))))
		require.NoError(t, b.Append(succeededPage(2, nil)))
		require.NoError(t, b.Append(succeededPage(3, pct(70))))

		avg := b.AverageConfidence()
		require.NotNil(t, avg)
		assert.InDelta(t, 80.0, *avg, 1e-9)
	})

	t.Run("undefined when no page reports confidence", func(t *testing.T) {
		b := NewBatchResult("run-1", "doc.pdf", "local", 2)
		require.NoError(t, b.Append(succeededPage(1, nil)))
		require.NoError(t, b.Append(succeededPage(2, nil)))

		assert.Nil(t, b.AverageConfidence(), "no data is not zero")
	})
}

func TestBatchFinishStates(t *testing.T) {
	t.Run("all succeeded", func(t *testing.T) {
		b := NewBatchResult("r", "d", "local", 1)
		require.NoError(t, b.Append(succeededPage(1, nil)))
		b.Finish(false)
		assert.Equal(t, Completed, b.State)
		assert.NotNil(t, b.FinishedAt)
	})

	t.Run("some failed", func(t *testing.T) {
		b := NewBatchResult("r", "d", "local", 2)
		require.NoError(t, b.Append(succeededPage(1, nil)))
		require.NoError(t, b.Append(Failed(2, "ref", "boom")))
		b.Finish(false)
		assert.Equal(t, CompletedWithFailures, b.State)
	})

	t.Run("aborted wins regardless of outcomes", func(t *testing.T) {
		b := NewBatchResult("r", "d", "local", 2)
		require.NoError(t, b.Append(succeededPage(1, nil)))
		b.Finish(true)
		assert.Equal(t, Aborted, b.State)
	})

	for _, s := range []State{Completed, CompletedWithFailures, Aborted} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []State{NotStarted, Running} {
		assert.False(t, s.Terminal(), s)
	}
}
