package categorize

import (
	"reflect"
	"testing"

	"autopress/internal/core"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultOptions(), nil, nil, nil)
}

func politicsItem() core.CandidateItem {
	return core.CandidateItem{
		Title:      "Parlamentul a votat motiunea, guvernul si premierul reactioneaza dupa alegeri",
		Content:    "Partidele din coalitie si opozitie au negociat in senat. Presedintele a comentat votul.",
		Source:     "Testsursa",
		CategoryID: CategoryPolitica,
	}
}

func TestComputeScores_Deterministic(t *testing.T) {
	c := newTestClassifier()
	item := politicsItem()
	article := &core.Article{
		Title:       "Motiunea de cenzura a trecut de parlament",
		ContentHTML: "<p>Guvernul a pierdut votul in parlament.</p>",
		Tags:        []string{"politica", "guvern"},
	}
	first := c.ComputeScores(item, article)
	second := c.ComputeScores(item, article)
	if !reflect.DeepEqual(first.Total, second.Total) {
		t.Errorf("scores not deterministic: %v vs %v", first.Total, second.Total)
	}
	if first.Total[CategoryPolitica] <= first.Total[CategoryEconomie] {
		t.Errorf("politics text should score politics highest: %v", first.Total)
	}
	if first.Details[CategoryPolitica].SourceSignal <= 0 {
		t.Error("expected a positive source signal for politics")
	}
}

func TestComputeScores_TitleWeighsMoreThanBody(t *testing.T) {
	c := newTestClassifier()
	inTitle := core.CandidateItem{Title: "guvern parlament", Content: "text fara semnale"}
	inBody := core.CandidateItem{Title: "text fara semnale", Content: "guvern parlament"}
	titleSignal := c.ComputeScores(inTitle, nil).Details[CategoryPolitica].SourceSignal
	bodySignal := c.ComputeScores(inBody, nil).Details[CategoryPolitica].SourceSignal
	if titleSignal <= bodySignal {
		t.Errorf("title matches should outweigh body matches: %d vs %d", titleSignal, bodySignal)
	}
}

func TestResolve_SameAsSource(t *testing.T) {
	c := newTestClassifier()
	decision := c.Resolve(politicsItem(), nil)
	if decision.Changed {
		t.Error("category should not change when the best score matches the hint")
	}
	if decision.CategoryID != CategoryPolitica || decision.Reason != "same_as_source" {
		t.Errorf("decision = %+v", decision)
	}
}

func TestResolve_OverrideDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.OverrideEnabled = false
	c := NewClassifier(opts, nil, nil, nil)
	item := politicsItem()
	item.CategoryID = CategoryEconomie
	decision := c.Resolve(item, nil)
	if decision.CategoryID != CategoryEconomie || decision.Reason != "override_disabled" {
		t.Errorf("decision = %+v", decision)
	}
}

func TestResolve_ForcedCategory(t *testing.T) {
	opts := DefaultOptions()
	opts.ForceCategoryID = CategoryExterne
	c := NewClassifier(opts, nil, nil, nil)
	decision := c.Resolve(politicsItem(), nil)
	if decision.CategoryID != CategoryExterne || !decision.Changed || decision.Reason != "forced_category" {
		t.Errorf("decision = %+v", decision)
	}
}

func TestResolve_OverridesWeakHint(t *testing.T) {
	c := newTestClassifier()
	item := politicsItem()
	// The hint says economie but every signal is political.
	item.CategoryID = CategoryEconomie
	decision := c.Resolve(item, nil)
	if !decision.Changed || decision.CategoryID != CategoryPolitica {
		t.Errorf("expected override to politica, got %+v", decision)
	}
	if decision.Reason != "keyword_override" {
		t.Errorf("reason = %q", decision.Reason)
	}
}

func TestResolve_GuardVetoesSocialToPolitics(t *testing.T) {
	c := newTestClassifier()
	item := core.CandidateItem{
		// One political term only: not decisive enough to leave social.
		Title:      "Primarul deschide o noua scoala cu sprijinul comunitatii locale",
		Content:    "Elevii si profesorii au participat la deschidere alaturi de primar. O lege noua a fost mentionata in treacat.",
		CategoryID: CategorySocial,
	}
	decision := c.Resolve(item, nil)
	if decision.Changed {
		t.Errorf("guard should keep social, got %+v", decision)
	}
}

func TestResolve_GuardAllowsDecisiveOverride(t *testing.T) {
	c := newTestClassifier()
	item := core.CandidateItem{
		Title:      "Guvernul si parlamentul decid soarta coalitiei dupa motiunea de cenzura",
		Content:    "Premierul si presedintele partidului au negociat cu opozitia inainte de alegeri.",
		CategoryID: CategorySocial,
	}
	decision := c.Resolve(item, nil)
	if !decision.Changed || decision.CategoryID != CategoryPolitica {
		t.Errorf("decisive political coverage should override social: %+v", decision)
	}
}

func TestResolve_UnknownHintNeedsConfidence(t *testing.T) {
	c := newTestClassifier()
	weak := core.CandidateItem{
		Title:      "O zi obisnuita in oras fara evenimente deosebite",
		Content:    "Nimic notabil nu s-a intamplat astazi.",
		CategoryID: CategoryUltimele,
	}
	decision := c.Resolve(weak, nil)
	if decision.CategoryID != CategoryUltimele {
		t.Errorf("weak signals should keep the uncertain fallback: %+v", decision)
	}

	strong := politicsItem()
	strong.CategoryID = CategoryUltimele
	decision = c.Resolve(strong, nil)
	if decision.CategoryID != CategoryPolitica || decision.Reason != "unknown_source_inferred" {
		t.Errorf("strong political signals should infer politica: %+v", decision)
	}
}
