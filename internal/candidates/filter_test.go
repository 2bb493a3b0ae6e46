package candidates

import (
	"strings"
	"testing"
	"time"

	"autopress/internal/core"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func testFilter() *Filter {
	opts := DefaultOptions(time.UTC)
	opts.Now = func() time.Time { return testNow }
	return NewFilter(opts)
}

func recentItem(title, content string, age time.Duration) core.CandidateItem {
	published := testNow.Add(-age)
	return core.CandidateItem{
		Title:       title,
		Content:     content,
		Link:        "https://example.com/articol",
		Source:      "Testsursa",
		PublishedAt: &published,
	}
}

func TestRejectionReason_PriorityOrder(t *testing.T) {
	f := testFilter()
	tests := []struct {
		name string
		item core.CandidateItem
		want string
	}{
		{"missing title", core.CandidateItem{}, ReasonMissingTitle},
		{
			"press release",
			recentItem("Comunicat de presa: lansare produs", strings.Repeat("text ", 60), time.Hour),
			ReasonLowEditorialValue,
		},
		{
			"horoscope",
			recentItem("Horoscop zilnic pentru toate zodiile de azi", strings.Repeat("text ", 60), time.Hour),
			ReasonLowEditorialValue,
		},
		{
			"outlet promo",
			recentItem(
				"Stirile ProTV lanseaza cele mai recente stiri online pe canal de YouTube",
				strings.Repeat("text ", 60), time.Hour,
			),
			ReasonMediaOutletPromo,
		},
		{
			"stale",
			recentItem("Guvernul a adoptat noi masuri fiscale importante", strings.Repeat("text ", 60), 40*time.Hour),
			ReasonNotRecent,
		},
		{
			"no timestamp",
			core.CandidateItem{Title: "Guvernul a adoptat noi masuri fiscale importante", Content: strings.Repeat("text ", 60)},
			ReasonMissingPublishedAt,
		},
		{
			"thin content short title",
			recentItem("Titlu mic", "prea putin", time.Hour),
			ReasonTooLittleContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.RejectionReason(tt.item); got != tt.want {
				t.Errorf("RejectionReason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRejectionReason_OldYearsWithoutDate(t *testing.T) {
	opts := DefaultOptions(time.UTC)
	opts.Now = func() time.Time { return testNow }
	opts.StrictRecent = false
	opts.SameDayOnly = false
	f := NewFilter(opts)

	item := core.CandidateItem{
		Title:   "Retrospectiva completa a alegerilor din 2020 si 2021",
		Content: strings.Repeat("text ", 60),
	}
	if got := f.RejectionReason(item); got != ReasonOnlyOldYears {
		t.Errorf("RejectionReason = %q, want %q", got, ReasonOnlyOldYears)
	}

	item.Title = "Bugetul pe 2026 aduce schimbari majore pentru companii"
	if got := f.RejectionReason(item); got != "" {
		t.Errorf("current-year item rejected: %q", got)
	}
}

func TestFilter_AcceptsFreshGovernmentNews(t *testing.T) {
	f := testFilter()
	item := recentItem(
		"Guvernul anunță o nouă taxă, ministrul de Finanțe declară...",
		strings.Repeat("Detalii despre noua taxa si reactiile mediului de afaceri. ", 5),
		2*time.Hour,
	)
	if reason := f.RejectionReason(item); reason != "" {
		t.Fatalf("fresh item rejected: %q", reason)
	}
	if score := Score(item, testNow); score <= 0 {
		t.Errorf("fresh item score = %d, want > 0", score)
	}
}

func TestScore_Buckets(t *testing.T) {
	long := strings.Repeat("continut ", 30)
	fresh := recentItem("Guvernul pregateste o noua lege a pensiilor", long, time.Hour)
	older := recentItem("Guvernul pregateste o noua lege a pensiilor", long, 20*time.Hour)
	if Score(fresh, testNow) <= Score(older, testNow) {
		t.Error("fresher item should outscore an older one")
	}

	breaking := recentItem("Ultima ora: cutremur puternic resimtit in Bucuresti", long, time.Hour)
	if Score(breaking, testNow)-Score(fresh, testNow) < 4 {
		t.Error("breaking title should add at least 4 points")
	}
}

func TestPrepare_SortsAndCounts(t *testing.T) {
	f := testFilter()
	long := strings.Repeat("continut ", 30)
	items := []core.CandidateItem{
		recentItem("Guvernul pregateste o noua lege a pensiilor", long, 20*time.Hour),
		recentItem("Ultima ora: explozie puternica la o uzina din Ploiesti", long, time.Hour),
		{Title: "", Content: long},
		recentItem("Horoscop special de weekend pentru toate zodiile", long, time.Hour),
	}
	accepted, stats := f.Prepare(items)
	if len(accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(accepted))
	}
	if !IsBreakingTitle(accepted[0].Title) {
		t.Errorf("highest scored candidate should come first, got %q", accepted[0].Title)
	}
	if stats[ReasonMissingTitle] != 1 || stats[ReasonLowEditorialValue] != 1 {
		t.Errorf("unexpected rejection stats: %v", stats)
	}
}

func TestIsMediaPromotionText(t *testing.T) {
	promo := "Observator prezinta actualizari in format de stiri online pe site"
	if !IsMediaPromotionText(promo) {
		t.Error("outlet promo text should be detected")
	}
	news := "Guvernul a aprobat bugetul pe anul viitor dupa negocieri lungi"
	if IsMediaPromotionText(news) {
		t.Error("plain news text flagged as promo")
	}
	if IsMediaPromotionText("Articol despre stiri de ultima ora pagina 1234") == false {
		t.Error("numeric page promo should be detected")
	}
}
