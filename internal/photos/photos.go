// Package photos resolves player headshot URLs from the dynastyprocess
// player-ID CSV (merge_name, team, db_season, espn_id, sleeper_id columns).
// ESPN headshots are preferred, Sleeper is the fallback.
package photos

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var suffixTokens = map[string]bool{
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true,
}

// The CSV uses nflfastR-style team codes; callers pass ESPN-style ones.
var teamAliases = map[string]string{
	"KC":  "KCC",
	"NE":  "NEP",
	"NO":  "NOS",
	"LV":  "LVR",
	"SF":  "SFO",
	"TB":  "TBB",
	"GB":  "GNB",
	"JAX": "JAC",
	"WSH": "WAS",
}

type ids struct {
	espn    string
	sleeper string
}

type nameTeamKey struct {
	name string
	team string
}

// Book is the in-memory lookup built from the CSV. Keys are normalized
// names; per key the row with the highest db_season wins.
type Book struct {
	byNameTeam map[nameTeamKey]ids
	byName     map[string]ids
	byLastTeam map[nameTeamKey]ids
	byLast     map[string]ids
}

// Load reads the player-ID CSV at path and builds the lookup maps.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening player id csv: %w", err)
	}
	defer f.Close()
	return read(f)
}

type scored struct {
	season int
	ids    ids
}

func read(r io.Reader) (*Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	byNameTeam := map[nameTeamKey]scored{}
	byName := map[string]scored{}
	byLastTeam := map[nameTeamKey]scored{}
	byLast := map[string]scored{}

	upsert := func(m map[nameTeamKey]scored, key nameTeamKey, s scored) {
		if cur, ok := m[key]; !ok || s.season > cur.season {
			m[key] = s
		}
	}
	upsertName := func(m map[string]scored, key string, s scored) {
		if cur, ok := m[key]; !ok || s.season > cur.season {
			m[key] = s
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		name := normalizeName(field(rec, "merge_name"))
		if name == "" {
			continue
		}
		team := strings.ToUpper(field(rec, "team"))
		season := -1
		if n, err := strconv.Atoi(field(rec, "db_season")); err == nil {
			season = n
		}
		s := scored{season: season, ids: ids{
			espn:    cleanID(field(rec, "espn_id")),
			sleeper: cleanID(field(rec, "sleeper_id")),
		}}

		upsert(byNameTeam, nameTeamKey{name, team}, s)
		upsertName(byName, name, s)
		if last := lastToken(name); last != "" {
			upsert(byLastTeam, nameTeamKey{last, team}, s)
			upsertName(byLast, last, s)
		}
	}

	b := &Book{
		byNameTeam: make(map[nameTeamKey]ids, len(byNameTeam)),
		byName:     make(map[string]ids, len(byName)),
		byLastTeam: make(map[nameTeamKey]ids, len(byLastTeam)),
		byLast:     make(map[string]ids, len(byLast)),
	}
	for k, v := range byNameTeam {
		b.byNameTeam[k] = v.ids
	}
	for k, v := range byName {
		b.byName[k] = v.ids
	}
	for k, v := range byLastTeam {
		b.byLastTeam[k] = v.ids
	}
	for k, v := range byLast {
		b.byLast[k] = v.ids
	}
	return b, nil
}

// URL resolves a headshot URL for a player name and team abbreviation.
// Implements the ingest.PhotoSource interface.
func (b *Book) URL(firstName, lastName, teamAbbr string) (string, bool) {
	return b.Lookup(strings.TrimSpace(firstName+" "+lastName), teamAbbr)
}

// Lookup resolves a headshot URL from a full display name. Candidates are
// tried in order: exact name+team, exact name, then team-scoped and global
// last-name fallbacks, each with suffix and nickname variants.
func (b *Book) Lookup(name, teamAbbr string) (string, bool) {
	team := normalizeTeam(teamAbbr)
	for _, cand := range nameCandidates(name) {
		var got ids
		var ok bool
		if team != "" {
			got, ok = b.byNameTeam[nameTeamKey{cand, team}]
		}
		if !ok {
			got, ok = b.byName[cand]
		}
		if !ok {
			if last := lastToken(cand); last != "" {
				if team != "" {
					got, ok = b.byLastTeam[nameTeamKey{last, team}]
				}
				if !ok {
					got, ok = b.byLast[last]
				}
			}
		}
		if !ok {
			continue
		}
		if got.espn != "" {
			return "https://a.espncdn.com/i/headshots/nfl/players/full/" + got.espn + ".png", true
		}
		if got.sleeper != "" {
			return "https://sleepercdn.com/content/nfl/players/" + got.sleeper + ".jpg", true
		}
		return "", false
	}
	return "", false
}

// normalizeName lowercases, strips punctuation, and collapses whitespace.
func normalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// nameCandidates generates normalized variants: as-is, suffix stripped
// (Jr/Sr/III), and first+last for names with middle tokens.
func nameCandidates(name string) []string {
	base := normalizeName(name)
	if base == "" {
		return nil
	}
	out := []string{base}
	parts := strings.Fields(base)

	if len(parts) > 1 && suffixTokens[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
		out = append(out, strings.Join(parts, " "))
	}
	if len(parts) >= 3 {
		firstLast := parts[0] + " " + parts[len(parts)-1]
		out = append(out, firstLast)
	}

	seen := make(map[string]bool, len(out))
	dedup := out[:0]
	for _, c := range out {
		if seen[c] {
			continue
		}
		seen[c] = true
		dedup = append(dedup, c)
	}
	return dedup
}

func normalizeTeam(team string) string {
	t := strings.ToUpper(strings.TrimSpace(team))
	if alias, ok := teamAliases[t]; ok {
		return alias
	}
	return t
}

func lastToken(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

func cleanID(v string) string {
	s := strings.TrimSpace(v)
	switch strings.ToLower(s) {
	case "", "nan", "na":
		return ""
	}
	return s
}
