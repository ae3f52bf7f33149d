package splitters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
)

func TestSplitterFactory(t *testing.T) {
	t.Parallel()
	cases := []struct {
		ct   model.ContentType
		want any
	}{
		{model.ContentTypeNormative, NormativeSplitter{}},
		{model.ContentTypeWiki, WikiSplitter{}},
		{model.ContentTypeGeneric, GenericSplitter{}},
		{"", GenericSplitter{}},
	}
	for _, c := range cases {
		got, err := SplitterFactory(c.ct)
		require.NoError(t, err)
		assert.IsType(t, c.want, got)
	}

	_, err := SplitterFactory("unknown")
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	t.Parallel()
	normative := "Preamble text.\n\nArt. 1º Everyone has rights.\n\nArt. 2º Everyone has duties.\n"
	assert.Equal(t, model.ContentTypeNormative, DetectContentType(normative))

	wiki := "# Intro\n\nSome text.\n\n## Section A\n\nMore text.\n"
	assert.Equal(t, model.ContentTypeWiki, DetectContentType(wiki))

	generic := "Just a paragraph of plain text with no structural markers at all."
	assert.Equal(t, model.ContentTypeGeneric, DetectContentType(generic))
}

func TestNormativeSplitter_SplitChapters(t *testing.T) {
	t.Parallel()
	text := "Preamble text here.\n\nArt. 1º First rule.\n\nArt. 2º Second rule.\n"
	out, err := NormativeSplitter{}.SplitChapters(text)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "Preâmbulo", out[0].Title)
	assert.Contains(t, out[1].Content, "First rule")
	assert.Contains(t, out[2].Content, "Second rule")
}

func TestNormativeSplitter_FallsBackToGenericWithoutMarkers(t *testing.T) {
	t.Parallel()
	out, err := NormativeSplitter{}.SplitChapters("no markers here at all")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestWikiSplitter_SplitChapters(t *testing.T) {
	t.Parallel()
	text := "# Title\n\nIntro paragraph.\n\n## Subsection\n\nDetails here.\n"
	out, err := WikiSplitter{}.SplitChapters(text)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Title", out[0].Title)
	assert.Equal(t, "Subsection", out[1].Title)
}

func TestGenericSplitter_GroupsParagraphsIntoOneChapterBelowTarget(t *testing.T) {
	t.Parallel()
	text := "Para one.\n\nPara two.\n\nPara three."
	out, err := GenericSplitter{}.SplitChapters(text)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Para one.", out[0].Title)
}

func TestGenericSplitter_EmptyTextStillProducesOneChapter(t *testing.T) {
	t.Parallel()
	out, err := GenericSplitter{}.SplitChapters("")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestChunkSplitter_SplitRespectsChunkSize(t *testing.T) {
	t.Parallel()
	cs, err := NewChunkSplitter(50, 10)
	require.NoError(t, err)
	content := "This is a reasonably long piece of chapter content that should be broken into more than one chunk once it exceeds the configured chunk size threshold."
	chunks := cs.Split(content)
	assert.Greater(t, len(chunks), 1)
}
