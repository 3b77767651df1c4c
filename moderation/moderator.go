// Package moderation censors forbidden words in user messages before they
// are stored or broadcast. Matching runs on a normalized view of the text
// (lowercased, leet-speak folded, punctuation stripped) while replacement
// happens on the original runes, so spacing and layout survive.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// textMapping links each normalized rune back to its original index.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. An empty word list yields a moderator that never censors.
func NewModerator(words []string, replacement rune, log *slog.Logger) (Moderator, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if normalized := normalizeRunes([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}

	matcher := new(goahocorasick.Machine)
	if len(patterns) > 0 {
		if err := matcher.Build(patterns); err != nil {
			return Moderator{}, err
		}
	} else {
		matcher = nil
	}
	return Moderator{matcher: matcher, replacement: replacement, log: log}, nil
}

// Censor replaces every matched span with the replacement rune and returns
// the censored text along with the normalized words that were hit.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}
	mapping := m.normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	hits := make([]string, 0, len(spans))
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}
		hits = append(hits, string(span.Word))

		// The span covers everything between the first and last original
		// rune, including the noise characters skipped by normalization.
		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes), hits
}

// normalize lowercases, folds leet speak and drops noise runes while
// keeping the original position of every surviving rune.
func (m *Moderator) normalize(input string) textMapping {
	origRunes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(folded))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		folded := foldRune(r)
		if isNoise(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
	}
	return out
}

// foldRune maps common leet-speak substitutions back to letters.
func foldRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
