package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

func TestFuseRRF_BoostsHitsAppearingInBothLists(t *testing.T) {
	t.Parallel()
	semantic := []postgres.ScoredEmbedding{
		{ID: 1, Text: "a"},
		{ID: 2, Text: "b"},
	}
	textual := []postgres.ScoredEmbedding{
		{ID: 2, Text: "b"},
		{ID: 3, Text: "c"},
	}

	out := FuseRRF(semantic, textual, 0.6, 0.4, 60)
	require.Len(t, out, 3)
	assert.Equal(t, int64(2), out[0].EmbeddingID, "id present in both lists should rank first")
}

func TestFuseRRF_SemanticOnlyWhenTextualEmpty(t *testing.T) {
	t.Parallel()
	semantic := []postgres.ScoredEmbedding{{ID: 1}, {ID: 2}}
	out := FuseRRF(semantic, nil, 1, 0, 60)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].EmbeddingID)
	assert.Equal(t, 1, out[0].SemanticRank)
	assert.Equal(t, 0, out[0].TextualRank)
}

func TestFuseRRF_DefaultsKWhenNonPositive(t *testing.T) {
	t.Parallel()
	semantic := []postgres.ScoredEmbedding{{ID: 1}}
	out := FuseRRF(semantic, nil, 1, 0, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0/61.0, out[0].Score, 1e-9)
}

func TestFuseRRF_EmptyInputsYieldsEmptyResult(t *testing.T) {
	t.Parallel()
	out := FuseRRF(nil, nil, 0.6, 0.4, 60)
	assert.Empty(t, out)
}
