package textutil

import "strings"

// GenericTokens are news-domain filler words excluded from topic keys and
// anchor candidates.
var GenericTokens = map[string]struct{}{
	"romania": {}, "roman": {}, "stiri": {}, "ultima": {}, "ora": {},
	"azi": {}, "video": {}, "foto": {}, "news": {}, "update": {},
	"live": {}, "exclusiv": {}, "breaking": {},
}

// DefaultTopicTokens is how many tokens a topic key keeps.
const DefaultTopicTokens = 8

func isNumeric(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(token) > 0
}

// MeaningfulTokens normalizes text and drops tokens shorter than three
// characters, stopwords, generic news fillers and numerals-only tokens.
func MeaningfulTokens(text string) []string {
	fields := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if len(token) < 3 || isNumeric(token) {
			continue
		}
		if _, ok := Stopwords[token]; ok {
			continue
		}
		if _, ok := GenericTokens[token]; ok {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// TopicTokens returns the first maxTokens meaningful tokens of text in
// order. A maxTokens of zero or less uses DefaultTopicTokens.
func TopicTokens(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		maxTokens = DefaultTopicTokens
	}
	tokens := MeaningfulTokens(text)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	return tokens
}

// BuildTopicKey reduces text to an ordered, de-noised token key used for
// fuzzy topic matching. Empty when nothing survives de-noising.
func BuildTopicKey(text string, maxTokens int) string {
	return strings.Join(TopicTokens(text, maxTokens), " ")
}

// TopicOverlapRatio computes |A∩B| / min(|A|,|B|) over the token sets, 0
// when either side is empty. It is symmetric in its arguments.
func TopicOverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := TopicOverlapCount(a, b)
	min := len(uniqueSet(a))
	if n := len(uniqueSet(b)); n < min {
		min = n
	}
	if min == 0 {
		return 0
	}
	return float64(shared) / float64(min)
}

// TopicOverlapCount counts distinct tokens present in both sets.
func TopicOverlapCount(a, b []string) int {
	setB := uniqueSet(b)
	shared := 0
	for token := range uniqueSet(a) {
		if _, ok := setB[token]; ok {
			shared++
		}
	}
	return shared
}

func uniqueSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if token != "" {
			set[token] = struct{}{}
		}
	}
	return set
}
