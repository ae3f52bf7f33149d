package retrieval

import (
	"math"
	"sort"

	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// Result is one fused, ranked hit returned to the retrieval caller.
type Result struct {
	EmbeddingID int64
	ChapterID   int64
	DocumentoID int64
	Text        string
	Score       float64
	SemanticRank int
	TextualRank  int
}

// FuseRRF combines semantic and textual result sets with Reciprocal Rank
// Fusion: score(id) = semanticWeight/(k+rankSem) + textualWeight/(k+rankText),
// summed over whichever lists contain the id. k defaults to 60.
func FuseRRF(semantic, textual []postgres.ScoredEmbedding, semanticWeight, textualWeight float64, k int) []Result {
	if k <= 0 {
		k = 60
	}

	semRank := make(map[int64]int, len(semantic))
	for i, r := range semantic {
		semRank[r.ID] = i + 1
	}
	textRank := make(map[int64]int, len(textual))
	for i, r := range textual {
		textRank[r.ID] = i + 1
	}

	byID := make(map[int64]postgres.ScoredEmbedding, len(semantic)+len(textual))
	var order []int64
	seen := map[int64]bool{}
	for _, r := range semantic {
		if !seen[r.ID] {
			seen[r.ID] = true
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}
	for _, r := range textual {
		if !seen[r.ID] {
			seen[r.ID] = true
			order = append(order, r.ID)
		}
		if _, ok := byID[r.ID]; !ok {
			byID[r.ID] = r
		}
	}

	out := make([]Result, 0, len(order))
	for _, id := range order {
		sr := semRank[id]
		tr := textRank[id]
		var score float64
		if sr > 0 {
			score += semanticWeight / float64(k+sr)
		}
		if tr > 0 {
			score += textualWeight / float64(k+tr)
		}
		e := byID[id]
		out = append(out, Result{
			EmbeddingID:  id,
			ChapterID:    e.ChapterID,
			DocumentoID:  e.DocumentoID,
			Text:         e.Text,
			Score:        score,
			SemanticRank: sr,
			TextualRank:  tr,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return rankSum(out[i]) < rankSum(out[j]) || (rankSum(out[i]) == rankSum(out[j]) && out[i].EmbeddingID < out[j].EmbeddingID)
	})
	return out
}

func rankSum(r Result) int {
	sr, tr := r.SemanticRank, r.TextualRank
	if sr == 0 {
		sr = math.MaxInt32
	}
	if tr == 0 {
		tr = math.MaxInt32
	}
	return sr + tr
}
