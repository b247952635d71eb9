// Package profile extracts a best-effort roster of player names and
// ages from free-text utterances. Extraction is advisory: a failed or
// partial match never blocks game progression.
package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Keyword matching is case-insensitive; names keep their original
// spelling for display.
var (
	rosterRe = regexp.MustCompile(`(?i)jogador\s*(\d+)\s*:\s*([\p{L}][\p{L} ]*?)\s*,\s*(\d{1,3})\s*anos`)
	countRe  = regexp.MustCompile(`(?i)(\d{1,2})\s*jogador(?:es|as)?`)
	nameRe   = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:me chamo|meu nome [ée]|sou)\s+(?:o\s+|a\s+)?(\p{L}+)`)
	ageRe    = regexp.MustCompile(`(?i)(\d{1,3})\s*anos`)
)

// Player is one (name, age) roster entry.
type Player struct {
	Name string
	Age  int
}

// Candidate is the result of extracting a single utterance.
type Candidate struct {
	Players []Player // roster entries, in order of appearance
	Count   int      // declared player count, 0 if absent
	Name    string   // singular self-introduction, "" if absent
	Age     int      // singular age, 0 if absent
}

// Completed reports whether the candidate carries enough information to
// be merged into the running session profile.
func (c Candidate) Completed() bool {
	hasIdentity := len(c.Players) > 0 || (c.Name != "" && c.Age > 0)
	hasCount := c.Count > 0 || len(c.Players) > 0
	return hasIdentity && hasCount
}

// Extract applies every pattern independently; absence of a pattern
// leaves the corresponding field unset. It never fails.
func Extract(text string) Candidate {
	var c Candidate

	for _, m := range rosterRe.FindAllStringSubmatch(text, -1) {
		age, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		c.Players = append(c.Players, Player{
			Name: strings.TrimSpace(m[2]),
			Age:  age,
		})
	}

	if m := countRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.Count = n
		}
	}

	if m := nameRe.FindStringSubmatch(text); m != nil {
		c.Name = m[1]
	}

	if m := ageRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			c.Age = n
		}
	}

	return c
}

// Profile is the running, session-scoped player profile. The most
// recent completed extraction wins outright.
type Profile struct {
	Players []Player
	Count   int
	merged  bool
}

// Merge folds a candidate into the profile. Incomplete candidates are
// ignored.
func (p *Profile) Merge(c Candidate) {
	if !c.Completed() {
		return
	}
	if len(c.Players) > 0 {
		p.Players = c.Players
	} else {
		p.Players = []Player{{Name: c.Name, Age: c.Age}}
	}
	if c.Count > 0 {
		p.Count = c.Count
	} else {
		p.Count = len(p.Players)
	}
	p.merged = true
}

// Completed reports whether any completed extraction has been merged.
func (p *Profile) Completed() bool {
	return p.merged
}

// Lines serializes the profile for prompt context, one roster line per
// player plus the declared count.
func (p *Profile) Lines() []string {
	if !p.merged {
		return nil
	}
	lines := make([]string, 0, len(p.Players)+1)
	for i, pl := range p.Players {
		lines = append(lines, fmt.Sprintf("Jogador %d: %s, %d anos", i+1, pl.Name, pl.Age))
	}
	lines = append(lines, fmt.Sprintf("Total de jogadores: %d", p.Count))
	return lines
}

// Reset discards all merged state, for session switches.
func (p *Profile) Reset() {
	p.Players = nil
	p.Count = 0
	p.merged = false
}
