package facts

import (
	"strings"
	"testing"
)

func TestExtractPersonRoleClaims(t *testing.T) {
	text := "Premierul Ion Popescu a anunțat bugetul. Maria Ionescu, ministrul Sănătății, a confirmat. " +
		"Președintele Andrei Vasile Georgescu a semnat decretul."
	claims := ExtractPersonRoleClaims(text, DefaultMaxClaims)

	if claims.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", claims.Len())
	}
	popescu := claims.Get("ion popescu")
	if popescu == nil || len(popescu.Roles) != 1 || popescu.Roles[0] != "premier" {
		t.Errorf("Ion Popescu claim = %+v", popescu)
	}
	ionescu := claims.Get("maria ionescu")
	if ionescu == nil || len(ionescu.Roles) != 1 || ionescu.Roles[0] != "ministru" {
		t.Errorf("Maria Ionescu claim = %+v", ionescu)
	}
	if claims.Get("andrei vasile georgescu") == nil {
		t.Error("three-token name not extracted")
	}
}

func TestExtractPersonRoleClaims_FiltersNonNames(t *testing.T) {
	claims := ExtractPersonRoleClaims("ministrul finanțelor publice a anunțat măsuri noi", DefaultMaxClaims)
	if claims.Len() != 0 {
		t.Errorf("lowercase fragments should not become names, got %d claims", claims.Len())
	}
}

func TestExtractPersonRoleClaims_CapsClaims(t *testing.T) {
	text := "Premierul Aa Bb a vorbit. Primarul Cc Dd a vorbit. Senatorul Ee Ff a vorbit."
	claims := ExtractPersonRoleClaims(text, 2)
	if claims.Len() != 2 {
		t.Errorf("Len() = %d, want cap of 2", claims.Len())
	}
}

func TestCanonicalRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Prim-ministrul", "premier"},
		{"premierului", "premier"},
		{"Președintele", "presedinte"},
		{"ministrului", "ministru"},
		{"judecătorul", "judecator"},
		{"cetățeanul", ""},
	}
	for _, tc := range tests {
		if got := CanonicalRole(tc.in); got != tc.want {
			t.Errorf("CanonicalRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildRoleConstraints(t *testing.T) {
	if got := BuildRoleConstraints(nil); !strings.Contains(got, "Pastreaza functiile") {
		t.Errorf("nil claims constraint = %q", got)
	}
	claims := ExtractPersonRoleClaims("Premierul Ion Popescu a anunțat bugetul.", DefaultMaxClaims)
	got := BuildRoleConstraints(claims)
	if !strings.Contains(got, "Ion Popescu") || !strings.Contains(got, "premier") {
		t.Errorf("constraints = %q", got)
	}
}

func TestFindRoleMismatches(t *testing.T) {
	source := ExtractPersonRoleClaims("Premierul Ion Popescu a anunțat bugetul.", DefaultMaxClaims)

	mismatches := FindRoleMismatches(source, "Ministrul Ion Popescu a anunțat bugetul pentru anul viitor.")
	if len(mismatches) != 1 {
		t.Fatalf("mismatches = %v, want 1", mismatches)
	}
	if mismatches[0].Name != "Ion Popescu" || mismatches[0].Found != "ministru" {
		t.Errorf("mismatch = %+v", mismatches[0])
	}

	if got := FindRoleMismatches(source, "Premierul Ion Popescu a prezentat cifrele."); len(got) != 0 {
		t.Errorf("consistent text flagged: %v", got)
	}
	if got := FindRoleMismatches(source, "Un text care nu îl menționează deloc."); len(got) != 0 {
		t.Errorf("absent person flagged: %v", got)
	}
}

func TestFormatRoleMismatchSummary(t *testing.T) {
	if got := FormatRoleMismatchSummary(nil); got != "" {
		t.Errorf("empty summary = %q", got)
	}
	summary := FormatRoleMismatchSummary([]Mismatch{
		{Name: "Ion Popescu", Expected: []string{"premier"}, Found: "ministru"},
	})
	if summary != "Ion Popescu: ministru (expected premier)" {
		t.Errorf("summary = %q", summary)
	}
}
