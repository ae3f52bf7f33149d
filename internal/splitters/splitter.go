// Package splitters implements chapter-level document splitting: the
// NormativeSplitter/WikiSplitter/GenericSplitter family selected by
// model.ContentType via SplitterFactory, plus the chunk-level
// ChunkSplitter that turns a Chapter into DocEmbedding-sized pieces by
// delegating to the generic textsplitters engine.
package splitters

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/textsplitters"
)

// ChapterSplit is one chapter produced from a Documento's full text.
type ChapterSplit struct {
	Ordinal int
	Title   string
	Content string
}

// ChapterSplitter divides a document's raw text into chapters.
type ChapterSplitter interface {
	SplitChapters(text string) ([]ChapterSplit, error)
}

// SplitterFactory returns the ChapterSplitter appropriate for a content type.
func SplitterFactory(ct model.ContentType) (ChapterSplitter, error) {
	switch ct {
	case model.ContentTypeNormative:
		return NormativeSplitter{}, nil
	case model.ContentTypeWiki:
		return WikiSplitter{}, nil
	case model.ContentTypeGeneric, "":
		return GenericSplitter{}, nil
	default:
		return nil, fmt.Errorf("splitters: unknown content type %q", ct)
	}
}

var normativeHeadingRe = regexp.MustCompile(`(?m)^\s*(Art(?:igo)?\.?\s*\d+[º°o]?|CAPÍTULO\s+[IVXLCDM\d]+|TÍTULO\s+[IVXLCDM\d]+|Section\s+\d+|SECTION\s+\d+)\b.*$`)

// DetectContentType routes a document to a content type by the structural
// markers its splitters key on: normative heading markers win over plain
// markdown headings, which win over generic prose.
func DetectContentType(text string) model.ContentType {
	if len(normativeHeadingRe.FindAllStringIndex(text, 2)) >= 2 {
		return model.ContentTypeNormative
	}
	if len(markdownHeadingRe.FindAllStringIndex(text, 2)) >= 2 {
		return model.ContentTypeWiki
	}
	return model.ContentTypeGeneric
}

// NormativeSplitter splits legal/regulatory text on article, chapter, and
// section markers, grouping any preamble before the first marker as a
// chapter of its own.
type NormativeSplitter struct{}

func (NormativeSplitter) SplitChapters(text string) ([]ChapterSplit, error) {
	locs := normativeHeadingRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return GenericSplitter{}.SplitChapters(text)
	}

	var chapters []ChapterSplit
	if locs[0][0] > 0 {
		if preamble := strings.TrimSpace(text[:locs[0][0]]); preamble != "" {
			chapters = append(chapters, ChapterSplit{Ordinal: 0, Title: "Preâmbulo", Content: preamble})
		}
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		segment := strings.TrimSpace(text[loc[0]:end])
		if segment == "" {
			continue
		}
		title := strings.TrimSpace(text[loc[0]:loc[1]])
		chapters = append(chapters, ChapterSplit{Ordinal: len(chapters), Title: title, Content: segment})
	}
	return chapters, nil
}

var markdownHeadingRe = regexp.MustCompile(`(?m)^(#{1,3})\s+(.+?)\s*$`)

// WikiSplitter splits wiki-style Markdown on top-level (H1-H3) headings,
// mirroring the heading boundaries a reader would navigate by.
type WikiSplitter struct{}

func (WikiSplitter) SplitChapters(text string) ([]ChapterSplit, error) {
	locs := markdownHeadingRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return GenericSplitter{}.SplitChapters(text)
	}

	var chapters []ChapterSplit
	if locs[0][0] > 0 {
		if preamble := strings.TrimSpace(text[:locs[0][0]]); preamble != "" {
			chapters = append(chapters, ChapterSplit{Ordinal: 0, Title: "Introduction", Content: preamble})
		}
	}
	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		title := text[loc[4]:loc[5]]
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			continue
		}
		chapters = append(chapters, ChapterSplit{Ordinal: len(chapters), Title: title, Content: content})
	}
	return chapters, nil
}

// GenericSplitter is the fallback: it groups paragraphs into chapters of
// genericSplitterTargetParagraphs paragraphs each when no structural
// markers are present.
type GenericSplitter struct{}

const genericSplitterTargetParagraphs = 12

func (GenericSplitter) SplitChapters(text string) ([]ChapterSplit, error) {
	paragraphs := strings.Split(strings.TrimSpace(text), "\n\n")
	var chapters []ChapterSplit
	var buf []string
	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(buf, "\n\n"))
		if content == "" {
			buf = nil
			return
		}
		title := firstLine(content)
		chapters = append(chapters, ChapterSplit{Ordinal: len(chapters), Title: title, Content: content})
		buf = nil
	}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		buf = append(buf, p)
		if len(buf) >= genericSplitterTargetParagraphs {
			flush()
		}
	}
	flush()
	if len(chapters) == 0 {
		chapters = append(chapters, ChapterSplit{Ordinal: 0, Title: firstLine(text), Content: strings.TrimSpace(text)})
	}
	return chapters, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// ChunkSplitter turns a Chapter's content into chunk-sized pieces for
// embedding, delegating the actual boundary logic to the generic
// textsplitters engine so chunk size/overlap tuning lives in one place.
type ChunkSplitter struct {
	engine textsplitters.Splitter
}

// NewChunkSplitter builds a ChunkSplitter using a recursive (heading ->
// paragraph -> sentence -> fixed) strategy sized to chunkSize runes.
func NewChunkSplitter(chunkSize, chunkOverlap int) (*ChunkSplitter, error) {
	engine, err := textsplitters.NewFromConfig(textsplitters.Config{
		Kind: textsplitters.KindRecursive,
		Recursive: textsplitters.RecursiveConfig{
			Paragraphs: textsplitters.BoundaryConfig{Unit: textsplitters.UnitChars, Size: chunkSize, Overlap: chunkOverlap},
			Sentences:  textsplitters.BoundaryConfig{Unit: textsplitters.UnitChars, Size: chunkSize, Overlap: chunkOverlap},
			Fallback: textsplitters.FixedConfig{
				Size:    chunkSize,
				Overlap: chunkOverlap,
				Unit:    textsplitters.UnitChars,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("splitters: building chunk engine: %w", err)
	}
	return &ChunkSplitter{engine: engine}, nil
}

// Split divides chapter content into ordered chunk texts.
func (s *ChunkSplitter) Split(content string) []string {
	return s.engine.Split(content)
}
