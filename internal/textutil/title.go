package textutil

import (
	"strings"
)

// Stopwords are short Romanian function words that never end a strong title
// and never contribute to topic keys.
var Stopwords = map[string]struct{}{
	"si": {}, "sau": {}, "cu": {}, "de": {}, "din": {}, "la": {}, "in": {},
	"pe": {}, "pentru": {}, "ca": {}, "iar": {}, "dar": {}, "ori": {},
	"al": {}, "ale": {}, "a": {}, "un": {}, "o": {}, "ce": {}, "care": {},
	"cand": {}, "cum": {}, "despre": {}, "dupa": {}, "pana": {}, "prin": {},
	"sa": {}, "nu": {}, "mai": {}, "se": {}, "le": {}, "lui": {},
}

// connectorSequences are clause openers that leave a title dangling when the
// clause they introduce was cut off. Longest sequences first.
var connectorSequences = [][]string{
	{"in", "timp", "ce"},
	{"dupa", "ce"},
	{"inainte", "ca"},
	{"pentru", "ca"},
	{"astfel", "incat"},
	{"in", "urma"},
	{"desi"},
	{"daca"},
	{"fiindca"},
	{"deoarece"},
	{"intrucat"},
	{"precum"},
	{"while"},
	{"after"},
	{"because"},
}

// publisherHints mark trailing " - X" suffixes as media-outlet attributions.
var publisherHints = []string{
	"protv", "digi24", "observator", "antena", "romania tv", "realitatea",
	"hotnews", "g4media", "libertatea", "adevarul", "euronews", "mediafax",
	"agerpres", "ziare", "gandul", "stirile",
}

// attributionCues introduce a trailing source-attribution clause
// ("..., potrivit Digi24").
var attributionCues = map[string]struct{}{
	"potrivit": {}, "conform": {}, "transmite": {}, "scrie": {},
	"anunta": {}, "informeaza": {}, "relateaza": {},
}

func looksLikePublisher(fragment string) bool {
	normalized := Normalize(fragment)
	if normalized == "" {
		return false
	}
	if strings.Contains(fragment, ".") {
		return true
	}
	if strings.Contains(normalized, "news") || strings.Contains(normalized, "tv") {
		return true
	}
	for _, hint := range publisherHints {
		if strings.Contains(normalized, hint) {
			return true
		}
	}
	return false
}

// stripPublisherSuffix removes a trailing " - Publisher" style fragment when
// the fragment looks like a media outlet name.
func stripPublisherSuffix(title string) string {
	for _, sep := range []string{" - ", " – ", " — ", " | "} {
		idx := strings.LastIndex(title, sep)
		if idx <= 0 {
			continue
		}
		suffix := strings.TrimSpace(title[idx+len(sep):])
		if suffix == "" || len(strings.Fields(suffix)) > 6 {
			continue
		}
		if looksLikePublisher(suffix) {
			return strings.TrimSpace(title[:idx])
		}
	}
	return title
}

// stripAttributionClause drops a trailing ", potrivit X" style clause when
// the cue word appears near the end and is followed by a source-like
// fragment.
func stripAttributionClause(title string) string {
	words := strings.Fields(title)
	if len(words) < 4 {
		return title
	}
	// Only look in the final stretch so mid-sentence cues survive.
	start := len(words) - 6
	if start < 2 {
		start = 2
	}
	for i := start; i < len(words)-1; i++ {
		cue := Normalize(words[i])
		if _, ok := attributionCues[cue]; !ok {
			continue
		}
		rest := strings.Join(words[i+1:], " ")
		if looksLikePublisher(rest) || startsUppercase(words[i+1]) {
			return strings.TrimRight(strings.Join(words[:i], " "), " ,.;:-–")
		}
	}
	return title
}

func startsUppercase(word string) bool {
	for _, r := range word {
		return r >= 'A' && r <= 'Z' || r == 'Ă' || r == 'Â' || r == 'Î' || r == 'Ș' || r == 'Ț'
	}
	return false
}

func matchesConnectorAt(tokens []string, start int, seq []string) bool {
	if start < 0 || start+len(seq) > len(tokens) {
		return false
	}
	for i, part := range seq {
		if tokens[start+i] != part {
			return false
		}
	}
	return true
}

// HasDanglingConnector reports whether the title ends in (or just after) a
// clause connector, i.e. the connector introduces a clause of at most two
// words.
func HasDanglingConnector(title string) bool {
	tokens := strings.Fields(Normalize(title))
	if len(tokens) == 0 {
		return false
	}
	for _, seq := range connectorSequences {
		// The connector may start anywhere in the final seq+2 tokens.
		for start := len(tokens) - len(seq) - 2; start <= len(tokens)-len(seq); start++ {
			if matchesConnectorAt(tokens, start, seq) {
				return true
			}
		}
		// A title may also break off inside the connector itself
		// ("... in timp").
		for plen := 1; plen < len(seq); plen++ {
			if matchesConnectorAt(tokens, len(tokens)-plen, seq[:plen]) {
				return true
			}
		}
	}
	return false
}

const minTitleWords = 5

// CleanTitle canonicalizes a headline: markup and publisher/attribution
// suffixes removed, truncated at a word boundary to maxChars, dangling
// connector endings and trailing stopwords stripped. It is idempotent.
func CleanTitle(title string, maxChars int) string {
	cleaned := strings.Join(strings.Fields(StripHTML(title)), " ")
	if cleaned == "" {
		return ""
	}
	cleaned = stripPublisherSuffix(cleaned)
	cleaned = stripAttributionClause(cleaned)
	cleaned = TruncateAtWord(cleaned, maxChars)
	cleaned = strings.TrimRight(cleaned, " ,;:-–—")

	words := strings.Fields(cleaned)

	// Peel dangling connector endings word by word, bounded by two connector
	// sequence lengths and never below the minimum word count.
	maxPeels := 2 * longestConnectorLen()
	for peel := 0; peel < maxPeels && len(words) > minTitleWords; peel++ {
		if !HasDanglingConnector(strings.Join(words, " ")) {
			break
		}
		words = words[:len(words)-1]
	}

	// A trailing stopword reads like a cut-off sentence; drop up to three.
	for drop := 0; drop < 3 && len(words) > 1; drop++ {
		last := Normalize(words[len(words)-1])
		if _, ok := Stopwords[last]; !ok {
			break
		}
		words = words[:len(words)-1]
	}

	return strings.TrimRight(strings.Join(words, " "), " ,;:-–—")
}

func longestConnectorLen() int {
	longest := 0
	for _, seq := range connectorSequences {
		if len(seq) > longest {
			longest = len(seq)
		}
	}
	return longest
}

// IsStrongTitle reports whether a title reads complete: at least minWords
// tokens after cleaning, no punishable trailing punctuation, no trailing
// stopword and no dangling connector ending.
func IsStrongTitle(title string, minWords int) bool {
	if minWords <= 0 {
		minWords = minTitleWords
	}
	trimmed := strings.TrimSpace(StripHTML(title))
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ":") ||
		strings.HasSuffix(trimmed, ";") || strings.HasSuffix(trimmed, "-") ||
		strings.HasSuffix(trimmed, "–") || strings.HasSuffix(trimmed, "…") ||
		strings.HasSuffix(trimmed, "...") {
		return false
	}
	tokens := strings.Fields(Normalize(trimmed))
	if len(tokens) < minWords {
		return false
	}
	if _, ok := Stopwords[tokens[len(tokens)-1]]; ok {
		return false
	}
	return !HasDanglingConnector(trimmed)
}
