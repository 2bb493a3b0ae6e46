// Package categorize scores configured categories against source and
// generated text and decides whether to override the feed-assigned category.
package categorize

// Category is one configured publishing category.
type Category struct {
	ID   int
	Name string
}

// Keywords holds the strong and normal match lists for one category, in
// normalized (diacritic-free, lowercase) form.
type Keywords struct {
	Strong []string
	Normal []string
}

// Guard vetoes an override between two easily confused categories unless
// enough decisive terms appear in the raw source text.
type Guard struct {
	FromID        int
	ToID          int
	DecisiveTerms []string
	MinMatches    int
}

// Well-known category ids, matching the publishing target's taxonomy.
const (
	CategoryPolitica = 4058
	CategoryExterne  = 4060
	CategorySocial   = 4063
	CategoryEconomie = 4064
	CategoryUltimele = 7
)

// DefaultCategories returns the configured category set.
func DefaultCategories() []Category {
	return []Category{
		{ID: CategoryPolitica, Name: "politica"},
		{ID: CategorySocial, Name: "social"},
		{ID: CategoryEconomie, Name: "economie"},
		{ID: CategoryExterne, Name: "externe"},
	}
}

// DefaultKeywords returns the hand-tuned keyword tables per category.
func DefaultKeywords() map[int]Keywords {
	return map[int]Keywords{
		CategoryPolitica: {
			Strong: []string{
				"presedinte", "premier", "prim ministru", "prim ministrul",
				"guvern", "parlament", "senat", "camera deputatilor",
				"partid", "alegeri", "coalitie", "opozitie",
				"motiune de cenzura", "cabinet",
			},
			Normal: []string{
				"politica", "deputat", "senator", "ministru", "minister",
				"primar", "consiliu local", "lege", "ordonanta", "vot",
				"candidat", "campanie", "mandat",
			},
		},
		CategorySocial: {
			Strong: []string{
				"educatie", "scoala", "elev", "profesor", "sanatate",
				"spital", "pacient", "ghid", "comunitate", "accident",
				"incendiu", "cutremur",
			},
			Normal: []string{
				"social", "copii", "familie", "universitate", "liceu",
				"gradinita", "trafic", "meteo", "vremea", "transport public",
				"consumator", "sport", "turism", "cultura", "societate",
				"ajutor social",
			},
		},
		CategoryEconomie: {
			Strong: []string{
				"economie", "economic", "business", "afaceri", "companie",
				"investitie", "profit", "cifra de afaceri", "bursa",
				"fiscal", "taxe", "inflatie",
			},
			Normal: []string{
				"banca", "credit", "impozit", "piata", "energie",
				"industrie", "financiar", "salariu", "cariera",
				"antreprenor", "startup", "export", "import",
			},
		},
		CategoryExterne: {
			Strong: []string{
				"international", "extern", "sua", "statele unite", "rusia",
				"ucraina", "nato", "ue", "uniunea europeana", "macron",
				"trump", "putin", "zelenski",
			},
			Normal: []string{
				"franta", "germania", "italia", "spania", "china", "turcia",
				"moldova", "belgia", "polonia", "israel", "iran", "razboi",
				"diplomatic",
			},
		},
	}
}

// DefaultGuards returns the override vetoes between commonly confused
// category pairs. The decisive-term lists are hand-tuned data, not logic.
func DefaultGuards() []Guard {
	politicsDecisive := []string{
		"presedinte", "premier", "prim ministru", "guvern", "parlament",
		"senat", "camera deputatilor", "partid", "alegeri", "coalitie",
		"opozitie", "motiune de cenzura",
	}
	socialDecisive := []string{
		"educatie", "scoala", "elev", "profesor", "sanatate", "spital",
		"pacient", "comunitate", "familie", "accident", "incendiu",
		"cutremur", "ghid",
	}
	return []Guard{
		{FromID: CategorySocial, ToID: CategoryPolitica, DecisiveTerms: politicsDecisive, MinMatches: 2},
		{FromID: CategoryPolitica, ToID: CategorySocial, DecisiveTerms: socialDecisive, MinMatches: 2},
	}
}
