package candidates

import (
	"regexp"
	"strings"

	"autopress/internal/core"
	"autopress/internal/textutil"
)

// Keyword tables for the media-outlet self-promotion heuristic. They operate
// on normalized (diacritic-free, lowercase) text, so entries are listed in
// normalized form. The tables are data: extend them, not the detection logic.
var (
	mediaOutletTerms = []string{
		"stirile protv", "protv", "news ro", "digi24", "observator",
		"antena 1", "antena 3", "romania tv", "realitatea", "hotnews",
		"g4media", "libertatea", "adevarul", "euronews",
	}

	mediaPromoVerbs = []string{
		"publica", "lanseaza", "prezinta", "difuzeaza", "transmite",
		"anunta", "promoveaza",
	}

	mediaPromoTargets = []string{
		"stiri video", "stiri online", "actualizari", "pagina", "page",
		"site", "canal", "emisiune", "aplicatie", "cont oficial",
		"youtube", "facebook", "tiktok", "serie",
	}

	mediaPromoPhrases = []string{
		"cele mai recente stiri online", "in format de stiri online",
		"format de stiri online", "serie de stiri video",
		"fluxului de stiri", "de ultima ora pagina",
	}

	genericMediaPromoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:publica|publicate|publicat|lanseaza|prezinta|difuzeaza|transmite|anunta)\b[\s\S]{0,60}\b(?:stiri|news)\b[\s\S]{0,30}\b(?:online|video)\b`),
		regexp.MustCompile(`\bin\s+format\s+de\s+(?:stiri|news)\s+(?:online|video)\b`),
		regexp.MustCompile(`\b(?:stiri|news)\s+de\s+ultima\s+ora\s+pagina\s+\d{2,}\b`),
		regexp.MustCompile(`\b(?:pagina|page)\s+\d{3,}\b`),
		regexp.MustCompile(`\bpublicate?\s+de\s+[a-z0-9][a-z0-9 .-]{1,40}\b`),
	}

	numericPagePattern     = regexp.MustCompile(`\b(?:pagina|page)\s+\d{3,}\b`)
	programSignalPattern   = regexp.MustCompile(`\b(?:stiri|news)\s+(?:video|online)\b`)
	broadcastSignalPattern = regexp.MustCompile(`\b(?:editie|sezon|episod)\b`)
)

func containsAnyTerm(normalized string, terms []string) bool {
	if normalized == "" {
		return false
	}
	for _, term := range terms {
		if term != "" && strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// IsMediaPromotionText reports whether text reads like a media outlet
// promoting its own channels rather than reporting news. The hard block
// needs an outlet name (or a known promo phrase/pattern) co-occurring with a
// promo verb or promo target.
func IsMediaPromotionText(text string) bool {
	normalized := textutil.Normalize(text)
	if normalized == "" {
		return false
	}
	hasOutlet := containsAnyTerm(normalized, mediaOutletTerms)
	hasPhrase := containsAnyTerm(normalized, mediaPromoPhrases)
	matchesGeneric := false
	for _, pattern := range genericMediaPromoPatterns {
		if pattern.MatchString(normalized) {
			matchesGeneric = true
			break
		}
	}
	if !hasOutlet && !matchesGeneric && !hasPhrase {
		return false
	}

	hasPromoVerb := containsAnyTerm(normalized, mediaPromoVerbs)
	hasPromoTarget := containsAnyTerm(normalized, mediaPromoTargets)
	mentionsNumericPage := numericPagePattern.MatchString(normalized)
	mentionsProgram := programSignalPattern.MatchString(normalized) ||
		broadcastSignalPattern.MatchString(normalized)

	switch {
	case mentionsNumericPage:
		return true
	case hasPhrase && (hasOutlet || hasPromoVerb || hasPromoTarget):
		return true
	case matchesGeneric && (hasOutlet || hasPromoVerb || hasPromoTarget):
		return true
	case matchesGeneric && !hasOutlet:
		return true
	case hasPromoVerb && hasPromoTarget:
		return true
	case hasPromoVerb && mentionsProgram:
		return true
	}
	return false
}

// isMediaPromotionItem applies the heuristic to the item's combined title,
// content and source name.
func isMediaPromotionItem(item core.CandidateItem) bool {
	combined := item.Title + " " + item.Content + " " + item.Source
	return IsMediaPromotionText(combined)
}
