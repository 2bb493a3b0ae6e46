package history

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndRecent(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fresh := NewEntry("Alegeri locale la București: un primar nou a fost ales", "https://example.ro/a", now.Add(-2*time.Hour))
	stale := NewEntry("Inundații în vestul țării după ploile torențiale", "https://example.ro/b", now.Add(-80*time.Hour))
	if err := store.Append(fresh); err != nil {
		t.Fatalf("Append(fresh) error = %v", err)
	}
	if err := store.Append(stale); err != nil {
		t.Fatalf("Append(stale) error = %v", err)
	}

	recent, err := store.Recent(72*time.Hour, now)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("Recent() returned %d entries, want 1", len(recent))
	}
	got := recent[0]
	if got.ID != fresh.ID {
		t.Errorf("Recent() kept %q, want the fresh entry", got.ID)
	}
	if got.TitleKey != fresh.TitleKey || got.TopicKey != fresh.TopicKey {
		t.Errorf("round-trip lost keys: %+v", got)
	}
	if len(got.TopicTokens) == 0 {
		t.Error("topic tokens were not persisted")
	}
}

func TestRecentCacheInvalidatedOnWrite(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	if err := store.Append(NewEntry("Prima știre publicată astăzi de redacție", "https://example.ro/1", now)); err != nil {
		t.Fatal(err)
	}
	first, err := store.Recent(24*time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Append(NewEntry("A doua știre publicată astăzi de redacție", "https://example.ro/2", now)); err != nil {
		t.Fatal(err)
	}
	second, err := store.Recent(24*time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != len(first)+1 {
		t.Errorf("Recent() after write = %d entries, want %d", len(second), len(first)+1)
	}
}

func TestAppendAgesOutOldEntries(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	if err := store.Append(NewEntry("Știre de anul trecut despre pensii", "https://example.ro/vechi", now.Add(-365*24*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(NewEntry("Știre proaspătă despre pensii", "https://example.ro/nou", now)); err != nil {
		t.Fatal(err)
	}

	entries, err := store.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("All() after write = %d entries, want the year-old one aged out", len(entries))
	}
	if entries[0].SourceURL != "https://example.ro/nou" {
		t.Errorf("wrong entry survived: %+v", entries[0])
	}
}

func TestSetRetentionDisablesAgePrune(t *testing.T) {
	store := newTestStore(t)
	store.SetRetention(0)
	now := time.Now().UTC()

	if err := store.Append(NewEntry("Știre de anul trecut despre buget", "https://example.ro/vechi", now.Add(-365*24*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(NewEntry("Știre proaspătă despre buget", "https://example.ro/nou", now)); err != nil {
		t.Fatal(err)
	}

	entries, err := store.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("All() = %d entries, want both kept with retention disabled", len(entries))
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	if err := store.Append(NewEntry("Știre veche despre buget", "https://example.ro/old", now.Add(-10*24*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(NewEntry("Știre nouă despre buget", "https://example.ro/new", now.Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(7*24*time.Hour, now)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Stats().Total = %d, want 1", stats.Total)
	}
	if stats.Oldest.IsZero() || stats.Newest.IsZero() {
		t.Errorf("Stats() bounds not populated: %+v", stats)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := newTestStore(t)
	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 0 || !stats.Oldest.IsZero() || !stats.Newest.IsZero() {
		t.Errorf("empty store stats = %+v", stats)
	}
}
