package photos

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCSV = `merge_name,team,db_season,espn_id,sleeper_id
Jaxon Smith-Njigba,SEA,2024,4430878,9997
Amon-Ra St. Brown,DET,2024,4374302,7547
Kyle Pitts,ATL,2024,4360248,7553
Marquise Brown,KCC,2024,4241372,5848
Travis Etienne,JAC,2024,4239996,7594
Aaron Jones,MIN,2024,3042519,4199
Josh Palmer,LAC,2024,4242338,7670
Jaxon Smith-Njigba,SEA,2019,1111,
Sleeper Only,BUF,2024,nan,12345
`

func loadTestBook(t *testing.T) *Book {
	t.Helper()
	b, err := read(strings.NewReader(testCSV))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return b
}

func TestLookupHandlesHyphensAndPunctuation(t *testing.T) {
	b := loadTestBook(t)

	url, ok := b.Lookup("Jaxon Smith-Njigba", "SEA")
	if !ok {
		t.Fatal("expected match for hyphenated name")
	}
	if url != "https://a.espncdn.com/i/headshots/nfl/players/full/4430878.png" {
		t.Errorf("url = %q", url)
	}

	url, ok = b.Lookup("Amon-Ra St. Brown", "DET")
	if !ok || url != "https://a.espncdn.com/i/headshots/nfl/players/full/4374302.png" {
		t.Errorf("url = %q, ok = %v", url, ok)
	}
}

func TestLookupSuffixesStripped(t *testing.T) {
	b := loadTestBook(t)

	tests := []struct {
		name string
		team string
	}{
		{"Travis Etienne Jr.", "JAX"},
		{"Aaron Jones Sr.", "MIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := b.Lookup(tt.name, tt.team); !ok {
				t.Errorf("no match for %s (%s)", tt.name, tt.team)
			}
		})
	}
}

func TestLookupTeamAliases(t *testing.T) {
	b := loadTestBook(t)
	// KC in the app, KCC in the CSV.
	if _, ok := b.Lookup("Marquise Brown", "KC"); !ok {
		t.Error("expected team alias KC -> KCC to match")
	}
}

func TestLookupNicknameFallsBackToLastName(t *testing.T) {
	b := loadTestBook(t)
	url, ok := b.Lookup("Hollywood Brown", "KC")
	if !ok {
		t.Fatal("expected team-scoped last-name fallback to match")
	}
	if !strings.Contains(url, "4241372") {
		t.Errorf("url = %q, want Marquise Brown's espn id", url)
	}
}

func TestLookupUnknownReturnsFalse(t *testing.T) {
	b := loadTestBook(t)
	if _, ok := b.Lookup("Definitely Not A Real Player", "XXX"); ok {
		t.Error("expected no match")
	}
}

func TestLookupPrefersNewestSeason(t *testing.T) {
	b := loadTestBook(t)
	url, ok := b.Lookup("Jaxon Smith-Njigba", "SEA")
	if !ok {
		t.Fatal("expected match")
	}
	if strings.Contains(url, "1111") {
		t.Error("matched the stale 2019 row instead of the newest one")
	}
}

func TestLookupSleeperFallback(t *testing.T) {
	b := loadTestBook(t)
	url, ok := b.Lookup("Sleeper Only", "BUF")
	if !ok {
		t.Fatal("expected match")
	}
	if url != "https://sleepercdn.com/content/nfl/players/12345.jpg" {
		t.Errorf("url = %q, want sleeper CDN url", url)
	}
}

func TestURLJoinsFirstAndLast(t *testing.T) {
	b := loadTestBook(t)
	url, ok := b.URL("Kyle", "Pitts", "ATL")
	if !ok || !strings.Contains(url, "4360248") {
		t.Errorf("url = %q, ok = %v", url, ok)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_playerids.csv")
	if err := os.WriteFile(path, []byte(testCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := b.Lookup("Kyle Pitts", "ATL"); !ok {
		t.Error("expected match after loading from file")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
