package seo

import (
	"strings"
	"testing"
	"unicode/utf8"

	"autopress/internal/core"
)

func TestSanitizeContent(t *testing.T) {
	long := "<h1>Titlu repetat</h1><p>" + strings.Repeat("cuvânt ", 30) + "</p>"
	if got := SanitizeContent(long); strings.Contains(got, "<h1") {
		t.Errorf("h1 survived sanitization: %s", got)
	}
	short := "<h1>Titlu</h1><p>Doar câteva cuvinte.</p>"
	if got := SanitizeContent(short); !strings.Contains(got, "<h1") {
		t.Error("h1 removal should be skipped when too little body remains")
	}
	if got := SanitizeContent(""); got != "" {
		t.Errorf("SanitizeContent(\"\") = %q", got)
	}
}

func TestEnsureSEOFields_Backfill(t *testing.T) {
	lead := "Guvernul a aprobat miercuri o serie de măsuri fiscale care vor intra în vigoare anul viitor, cu efecte directe asupra firmelor mici și a angajaților."
	article := &core.Article{
		Title:       "Guvernul aprobă noi măsuri fiscale pentru anul viitor",
		ContentHTML: "<p>" + lead + "</p><p>Restul articolului detaliază calendarul de aplicare al noilor reguli.</p>",
	}
	opts := DefaultOptions()
	EnsureSEOFields(article, "", opts)

	if article.FocusKeyword == "" {
		t.Error("focus keyword not backfilled")
	}
	if article.SEOTitle == "" || utf8.RuneCountInString(article.SEOTitle) > opts.SEOTitleMaxChars {
		t.Errorf("seo title = %q", article.SEOTitle)
	}
	if len(article.Tags) == 0 || len(article.Tags) > opts.MaxTags {
		t.Errorf("tags = %v", article.Tags)
	}
	metaLen := utf8.RuneCountInString(article.MetaDescription)
	if metaLen < opts.MetaDescriptionMin || metaLen > opts.MetaDescriptionMax {
		t.Errorf("meta description length = %d (%q)", metaLen, article.MetaDescription)
	}
	if !strings.Contains(article.ContentHTML, "<h2>") {
		t.Error("missing h2 was not inserted")
	}
}

func TestEnsureSEOFields_KeepsExistingMeta(t *testing.T) {
	meta := "Guvernul a aprobat noi măsuri fiscale care intră în vigoare de anul viitor, cu efecte directe asupra firmelor mici și asupra angajaților din mediul privat."
	article := &core.Article{
		Title:           "Guvernul aprobă noi măsuri fiscale pentru anul viitor",
		MetaDescription: meta,
		ContentHTML:     "<p>Lead.</p><h2>Există deja</h2>",
	}
	EnsureSEOFields(article, "", DefaultOptions())
	if article.MetaDescription != meta {
		t.Errorf("valid meta description rewritten: %q", article.MetaDescription)
	}
	if strings.Count(article.ContentHTML, "<h2>") != 1 {
		t.Error("h2 inserted even though one existed")
	}
}

func TestEnsureH2WithKeyword_InsertsAfterLead(t *testing.T) {
	article := &core.Article{
		Title:        "Guvernul aprobă noi măsuri fiscale pentru anul viitor",
		FocusKeyword: "măsuri fiscale",
		ContentHTML:  "<p>Lead paragraf.</p><p>Al doilea paragraf.</p>",
	}
	EnsureH2WithKeyword(article)
	leadEnd := strings.Index(article.ContentHTML, "</p>") + len("</p>")
	rest := article.ContentHTML[leadEnd:]
	if !strings.HasPrefix(strings.TrimSpace(rest), "<h2>") {
		t.Errorf("h2 not inserted after the lead: %s", article.ContentHTML)
	}
}

func TestRemoveExternalLinks(t *testing.T) {
	content := `<p>Vezi <a href="https://extern.com/x">analiza externă</a> și ` +
		`<a href="/intern">pagina internă</a> și ` +
		`<a href="https://www.exemplu.ro/stire">știrea noastră</a>.</p>`
	got := RemoveExternalLinks(content, "exemplu.ro")
	if strings.Contains(got, "extern.com") {
		t.Errorf("external link survived: %s", got)
	}
	if !strings.Contains(got, "analiza externă") {
		t.Error("anchor text of the removed link was lost")
	}
	if !strings.Contains(got, `href="/intern"`) || !strings.Contains(got, "exemplu.ro/stire") {
		t.Errorf("internal links were stripped: %s", got)
	}
}

func TestRemoveExternalLinksKeepsAllWhenHostUnknown(t *testing.T) {
	content := `<p>Vezi <a href="https://oriunde.com/x">linkul</a>.</p>`
	got := RemoveExternalLinks(content, "")
	if got != content {
		t.Errorf("links stripped with no host configured: %s", got)
	}
}

func TestReduceContextRepetition(t *testing.T) {
	content := "<p>În contextul actual, piața crește. Apoi, in contextul discuțiilor, scade. Din nou in contextul verii.</p>"
	got := ReduceContextRepetition(content, 1)
	if strings.Count(strings.ToLower(got), "contextul") != 1 {
		t.Errorf("repetitions not reduced: %s", got)
	}
	if !strings.Contains(got, "in acest cadru") {
		t.Errorf("replacement phrase missing: %s", got)
	}
	if got := ReduceContextRepetition("", 1); got != "" {
		t.Errorf("empty input produced %q", got)
	}
}

func TestKeywordFromText(t *testing.T) {
	if got := KeywordFromText("unu doi trei patru cinci", 3); got != "unu doi trei" {
		t.Errorf("KeywordFromText() = %q", got)
	}
	if got := KeywordFromText("", 4); got != "" {
		t.Errorf("KeywordFromText(\"\") = %q", got)
	}
}
