package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

func TestSearchRepo_StemTerms_PortugueseStemmingAndStopwords(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewSearchRepo(pool)

	got, err := repo.StemTerms(ctx, []string{"café", "com", "leite"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "'cafe'", got[0])
	assert.Equal(t, "", got[1], "stopword terms come back empty")
	assert.Equal(t, "'leit'", got[2])
}

func TestSearchRepo_TextualSearch_MatchesAgainstPortugueseTsvector(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	libs := NewLibraryRepo(pool)
	docs := NewDocumentoRepo(pool)
	chapters := NewChapterRepo(pool)
	embeddings := NewEmbeddingRepo(pool)
	search := NewSearchRepo(pool)

	lib := model.NewLibrary("textual-search-ptbr-library", "")
	require.NoError(t, libs.Create(ctx, lib))
	doc := model.NewDocumento(lib.ID, "Title", "", model.ContentTypeGeneric)
	require.NoError(t, docs.Create(ctx, doc))
	ch := &model.Chapter{DocumentoID: doc.ID, Ordinal: 1, Title: "Ch1", Content: "Um café com leite quente pela manhã."}
	require.NoError(t, chapters.CreateBatch(ctx, []*model.Chapter{ch}))

	emb := &model.DocEmbedding{
		ChapterID: ch.ID, DocumentoID: doc.ID, LibraryID: lib.ID,
		Tipo: model.TipoEmbeddingChunk, Ordinal: 0, Text: ch.Content,
	}
	require.NoError(t, embeddings.CreateBatchPending(ctx, []*model.DocEmbedding{emb}))

	stemmed, err := search.StemTerms(ctx, []string{"café", "com", "leite"})
	require.NoError(t, err)

	var tsquery string
	for _, lexeme := range stemmed {
		if lexeme == "" {
			continue
		}
		if tsquery != "" {
			tsquery += " | "
		}
		tsquery += lexeme
	}

	results, err := search.TextualSearch(ctx, lib.ID, tsquery, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "café")
}
