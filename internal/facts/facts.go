// Package facts extracts person/role claims from source text so the
// rewrite step can be checked for silently promoted or demoted
// officials.
package facts

import (
	"fmt"
	"regexp"
	"strings"

	"autopress/internal/textutil"
)

const rolePattern = `(?:prim[-\s]?ministr(?:ul|ului)?|premier(?:ul|ului)?|primar(?:ul|ului)?|pre(?:ș|s)edinte(?:le|lui)?|ministr(?:ul|ului|u)?|senator(?:ul|ului)?|deputat(?:ul|ului)?|judec[aă]tor(?:ul|ului)?|guvernator(?:ul|ului)?|procuror(?:ul|ului)?|avocat(?:ul|ului|a)?|director(?:ul|ului)?)`

const namePattern = `[A-ZĂÂÎȘȚ][\p{L}'’\-]+(?:\s+[A-ZĂÂÎȘȚ][\p{L}'’\-]+){1,2}`

var (
	roleThenName = regexp.MustCompile(`(?i)\b(` + rolePattern + `)\s+(` + namePattern + `)`)
	nameThenRole = regexp.MustCompile(`(?i)(` + namePattern + `)\s*,\s*(` + rolePattern + `)`)

	nameNoise      = regexp.MustCompile(`[,:;.!?]+$`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	upperInitial   = regexp.MustCompile(`^[A-ZĂÂÎȘȚ]`)
)

// DefaultMaxClaims bounds how many distinct people are tracked.
const DefaultMaxClaims = 8

// Claim records the roles a person carries in the source text.
type Claim struct {
	Name  string
	Roles []string
}

func (c *Claim) hasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Claims is an insertion-ordered set of per-person claims keyed by the
// normalized name.
type Claims struct {
	order []string
	items map[string]*Claim
}

// Len reports the number of distinct people.
func (c *Claims) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Get looks a person up by normalized name key.
func (c *Claims) Get(key string) *Claim {
	if c == nil {
		return nil
	}
	return c.items[key]
}

// Each visits claims in extraction order.
func (c *Claims) Each(visit func(key string, claim *Claim)) {
	if c == nil {
		return
	}
	for _, key := range c.order {
		visit(key, c.items[key])
	}
}

func (c *Claims) add(rawName, rawRole string, maxClaims int) {
	name := cleanName(rawName)
	if !looksLikePersonName(name) {
		return
	}
	role := CanonicalRole(rawRole)
	if role == "" {
		return
	}
	key := textutil.Normalize(name)
	if key == "" {
		return
	}
	claim, exists := c.items[key]
	if !exists {
		if len(c.order) >= maxClaims {
			return
		}
		claim = &Claim{Name: name}
		c.items[key] = claim
		c.order = append(c.order, key)
	}
	if !claim.hasRole(role) {
		claim.Roles = append(claim.Roles, role)
	}
}

// CanonicalRole maps an inflected role mention to its canonical form,
// or empty when the role is not tracked.
func CanonicalRole(roleText string) string {
	role := textutil.Normalize(roleText)
	if role == "" {
		return ""
	}
	switch {
	case strings.Contains(role, "prim ministr") || strings.Contains(role, "premier"):
		return "premier"
	case strings.Contains(role, "primar"):
		return "primar"
	case strings.Contains(role, "presedinte"):
		return "presedinte"
	case strings.Contains(role, "ministr"):
		return "ministru"
	case strings.Contains(role, "senator"):
		return "senator"
	case strings.Contains(role, "deputat"):
		return "deputat"
	case strings.Contains(role, "judecator"):
		return "judecator"
	case strings.Contains(role, "guvernator"):
		return "guvernator"
	case strings.Contains(role, "procuror"):
		return "procuror"
	case strings.Contains(role, "avocat"):
		return "avocat"
	case strings.Contains(role, "director"):
		return "director"
	}
	return ""
}

func cleanName(name string) string {
	cleaned := whitespaceRuns.ReplaceAllString(name, " ")
	cleaned = nameNoise.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func looksLikePersonName(name string) bool {
	cleaned := cleanName(name)
	if cleaned == "" {
		return false
	}
	tokens := strings.Fields(cleaned)
	if len(tokens) < 2 || len(tokens) > 3 {
		return false
	}
	for _, token := range tokens {
		if !upperInitial.MatchString(token) {
			return false
		}
	}
	return true
}

// ExtractPersonRoleClaims scans text for "role Name" and "Name, role"
// constructions and returns at most maxClaims distinct people.
func ExtractPersonRoleClaims(text string, maxClaims int) *Claims {
	if maxClaims < 1 {
		maxClaims = DefaultMaxClaims
	}
	claims := &Claims{items: make(map[string]*Claim)}

	source := strings.TrimSpace(whitespaceRuns.ReplaceAllString(textutil.StripHTML(text), " "))
	if source == "" {
		return claims
	}
	for _, match := range roleThenName.FindAllStringSubmatch(source, -1) {
		claims.add(match[2], match[1], maxClaims)
	}
	for _, match := range nameThenRole.FindAllStringSubmatch(source, -1) {
		claims.add(match[1], match[2], maxClaims)
	}
	return claims
}

// BuildRoleConstraints renders the claims as prompt instructions.
func BuildRoleConstraints(claims *Claims) string {
	fallback := "- Pastreaza functiile oficiale exact asa cum apar in sursa."
	if claims.Len() == 0 {
		return fallback
	}
	var lines []string
	claims.Each(func(_ string, claim *Claim) {
		if len(claim.Roles) == 0 {
			return
		}
		if len(claim.Roles) == 1 {
			lines = append(lines, fmt.Sprintf("- Pentru %s, foloseste functia «%s».", claim.Name, claim.Roles[0]))
			return
		}
		lines = append(lines, fmt.Sprintf("- Pentru %s, functiile valide sunt: %s.", claim.Name, strings.Join(claim.Roles, ", ")))
	})
	if len(lines) == 0 {
		return fallback
	}
	return strings.Join(lines, "\n")
}

// Mismatch reports a person whose generated role contradicts the source.
type Mismatch struct {
	Name     string
	Expected []string
	Found    string
}

// FindRoleMismatches compares source claims against roles extracted
// from the generated text. People absent from the generated text are
// not mismatches.
func FindRoleMismatches(sourceClaims *Claims, generatedText string) []Mismatch {
	if sourceClaims.Len() == 0 {
		return nil
	}
	generated := ExtractPersonRoleClaims(generatedText, 20)

	var mismatches []Mismatch
	sourceClaims.Each(func(key string, sourceClaim *Claim) {
		generatedClaim := generated.Get(key)
		if generatedClaim == nil {
			return
		}
		for _, role := range generatedClaim.Roles {
			if !sourceClaim.hasRole(role) {
				mismatches = append(mismatches, Mismatch{
					Name:     sourceClaim.Name,
					Expected: append([]string{}, sourceClaim.Roles...),
					Found:    role,
				})
				return
			}
		}
	})
	return mismatches
}

// FormatRoleMismatchSummary renders at most four mismatches for logs
// and corrective prompts.
func FormatRoleMismatchSummary(mismatches []Mismatch) string {
	if len(mismatches) == 0 {
		return ""
	}
	if len(mismatches) > 4 {
		mismatches = mismatches[:4]
	}
	parts := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		parts = append(parts, fmt.Sprintf("%s: %s (expected %s)", m.Name, m.Found, strings.Join(m.Expected, "/")))
	}
	return strings.Join(parts, "; ")
}
