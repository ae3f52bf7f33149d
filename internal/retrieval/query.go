// Package retrieval implements the hybrid (vector + full-text) search
// engine: query preprocessing with OR-expansion, per-library weighted
// semantic/textual search, and Reciprocal Rank Fusion of the two result
// sets, grounded on the teacher's RRF implementation.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var wordSplitRe = regexp.MustCompile(`\s+`)

// Stemmer reduces a batch of raw query terms to their Portuguese stemmed
// tsquery lexemes, in the same order, dropping stopwords as empty strings.
// postgres.SearchRepo implements this by delegating to plainto_tsquery so
// the same text search configuration stems both the query and the indexed
// column.
type Stemmer interface {
	StemTerms(ctx context.Context, terms []string) ([]string, error)
}

type queryToken struct {
	word    string
	negated bool
}

// PreprocessQuery normalizes free text into a tsquery expression where
// terms are ANDed by default but OR-expanded: plain-text tokenization would
// AND every term via to_tsquery's implicit "&", which is too strict for a
// recall-oriented hybrid search, so every " & " produced from adjacent
// terms is rewritten to " | " except immediately before a negation "!" — a
// negated term must stay required, not become optional. Stemming and
// stopword removal are delegated to stemmer so the query side matches the
// same Portuguese text search configuration the indexed column uses.
func PreprocessQuery(ctx context.Context, stemmer Stemmer, raw string) (string, error) {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return "", nil
	}

	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.word
	}
	stemmed, err := stemmer.StemTerms(ctx, words)
	if err != nil {
		return "", fmt.Errorf("retrieval: stem query terms: %w", err)
	}
	if len(stemmed) != len(tokens) {
		return "", fmt.Errorf("retrieval: stemmer returned %d lexemes for %d terms", len(stemmed), len(tokens))
	}

	parts := make([]string, 0, len(tokens))
	for i, t := range tokens {
		lexeme := strings.TrimSpace(stemmed[i])
		if lexeme == "" {
			// Stopword or otherwise unindexable term; drop it rather than
			// ANDing/ORing an empty operand into the expression.
			continue
		}
		if t.negated {
			lexeme = "!" + lexeme
		}
		parts = append(parts, lexeme)
	}
	if len(parts) == 0 {
		return "", nil
	}

	return orExpand(strings.Join(parts, " & ")), nil
}

func tokenize(raw string) []queryToken {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := wordSplitRe.Split(raw, -1)
	out := make([]queryToken, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !(r == '!' || r == '-' || isWordRune(r))
		})
		if f == "" {
			continue
		}
		negated := false
		switch {
		case strings.HasPrefix(f, "!"):
			negated = true
			f = strings.TrimPrefix(f, "!")
		case strings.HasPrefix(f, "-"):
			negated = true
			f = strings.TrimPrefix(f, "-")
		}
		if f == "" {
			continue
		}
		out = append(out, queryToken{word: f, negated: negated})
	}
	return out
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' ||
		r > 0x7F // permit accented letters (café, ação) through to the DB stemmer
}

// orExpand replaces every " & " with " | " except where the right-hand
// side starts with "!", preserving negated terms as required.
func orExpand(expr string) string {
	parts := strings.Split(expr, " & ")
	if len(parts) <= 1 {
		return expr
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if strings.HasPrefix(p, "!") {
			b.WriteString(" & ")
		} else {
			b.WriteString(" | ")
		}
		b.WriteString(p)
	}
	return b.String()
}
