package search

import (
	"regexp"
	"strings"

	"github.com/marfleetn/chatCAT/internal/models"
)

// Field weights for relevance scoring. Tag and note hits outrank message-body
// hits because the user put them there deliberately.
const (
	weightUserText     = 1
	weightResponseText = 1
	weightNotes        = 2
	weightTags         = 3
)

// Scorer counts whole-word, case-insensitive occurrences of a fixed term set
// and combines per-field counts with the field weights. Patterns are compiled
// once per query, not per record.
type Scorer struct {
	patterns []*regexp.Regexp
}

// NewScorer compiles one word-boundary pattern per term.
func NewScorer(terms []string) *Scorer {
	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(t)+`\b`))
	}
	return &Scorer{patterns: patterns}
}

// CountOccurrences returns the total whole-word occurrences of all terms in
// text. Each term counts independently, so repeated terms accumulate.
func (s *Scorer) CountOccurrences(text string) int {
	if text == "" {
		return 0
	}
	n := 0
	for _, p := range s.patterns {
		n += len(p.FindAllStringIndex(text, -1))
	}
	return n
}

// Score computes the weighted relevance of a record across its four
// text-bearing fields.
func (s *Scorer) Score(r *models.Record) int {
	return s.CountOccurrences(r.UserText)*weightUserText +
		s.CountOccurrences(r.ResponseText)*weightResponseText +
		s.CountOccurrences(r.Notes)*weightNotes +
		s.CountOccurrences(strings.Join(r.Tags, ","))*weightTags
}
