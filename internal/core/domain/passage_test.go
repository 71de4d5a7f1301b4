package domain

import "testing"

func TestIdentityKeySeparatesContentAndProvenance(t *testing.T) {
	base := Passage{
		Content:  "Supply chain risk increased.",
		Metadata: PassageMetadata{Entity: "ACME", Year: "2023", Section: "Item 1A.", SourceLocator: "10k.txt#3"},
	}

	same := base
	if base.IdentityKey() != same.IdentityKey() {
		t.Fatalf("identical passages must share an identity key")
	}

	reworded := base
	reworded.Content = "Supply chain risk decreased."
	if base.IdentityKey() == reworded.IdentityKey() {
		t.Fatalf("different content must change the identity key")
	}

	otherYear := base
	otherYear.Metadata.Year = "2022"
	if base.IdentityKey() == otherYear.IdentityKey() {
		t.Fatalf("different provenance must change the identity key")
	}
}

func TestPassageFilterMatches(t *testing.T) {
	meta := PassageMetadata{Entity: "ACME", Year: "2023"}

	cases := []struct {
		name   string
		filter PassageFilter
		want   bool
	}{
		{"zero filter matches all", PassageFilter{}, true},
		{"entity is case-insensitive", PassageFilter{Entity: "acme"}, true},
		{"wrong entity", PassageFilter{Entity: "GLOBEX"}, false},
		{"year must match exactly", PassageFilter{Year: "2023"}, true},
		{"wrong year", PassageFilter{Year: "2022"}, false},
		{"both constraints", PassageFilter{Entity: "ACME", Year: "2023"}, true},
	}
	for _, tc := range cases {
		if got := tc.filter.Matches(meta); got != tc.want {
			t.Fatalf("%s: Matches() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
