package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTracker_StartUpdateGet(t *testing.T) {
	t.Parallel()
	tr := NewStatusTracker(time.Hour)
	defer tr.Close()

	tr.Start(1)
	record, ok := tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, PhaseQueued, record.Phase)

	tr.Update(1, func(r *ProgressRecord) {
		r.Phase = PhaseEmbedding
		r.EmbeddingsTotal = 10
		r.EmbeddingsProcessed = 3
	})
	record, ok = tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, PhaseEmbedding, record.Phase)
	assert.Equal(t, 10, record.EmbeddingsTotal)
	assert.Equal(t, 3, record.EmbeddingsProcessed)
}

func TestStatusTracker_GetMissingReturnsFalse(t *testing.T) {
	t.Parallel()
	tr := NewStatusTracker(time.Hour)
	defer tr.Close()

	_, ok := tr.Get(999)
	assert.False(t, ok)
}

func TestStatusTracker_UpdateOnMissingRecordIsNoop(t *testing.T) {
	t.Parallel()
	tr := NewStatusTracker(time.Hour)
	defer tr.Close()

	assert.NotPanics(t, func() {
		tr.Update(42, func(r *ProgressRecord) { r.Phase = PhaseFailed })
	})
	_, ok := tr.Get(42)
	assert.False(t, ok)
}

func TestStatusTracker_SweepRemovesExpiredCompletedEntries(t *testing.T) {
	t.Parallel()
	tr := NewStatusTracker(time.Hour)
	defer tr.Close()

	tr.Start(1)
	tr.Update(1, func(r *ProgressRecord) {
		r.Phase = PhaseCompleted
		r.CompletedAt = time.Now().Add(-2 * time.Hour)
	})
	tr.sweep()
	_, ok := tr.Get(1)
	assert.False(t, ok, "entries completed longer than ttl ago should be swept")
}

func TestStatusTracker_SweepKeepsRecentCompletedEntries(t *testing.T) {
	t.Parallel()
	tr := NewStatusTracker(time.Hour)
	defer tr.Close()

	tr.Start(1)
	tr.Update(1, func(r *ProgressRecord) {
		r.Phase = PhaseCompleted
		r.CompletedAt = time.Now()
	})
	tr.sweep()
	_, ok := tr.Get(1)
	assert.True(t, ok, "recently completed entries should survive a sweep")
}
