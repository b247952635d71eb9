package scenario

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/forjaquest/forja-engine/pkg/textnorm"
)

// Elements the intro scene branches on, in detection priority order.
// When an utterance names more than one element, the first of this list
// found in the text wins.
var Elements = []string{"agua", "fogo", "terra", "ar"}

// Phrases that mark a scene as finished and advance the graph.
var completionKeywords = []string{
	"finalizei", "finalizar", "conclui", "concluir",
	"terminei", "terminar", "pronto",
}

var chapterRe = regexp.MustCompile(`^cena (\d{2})`)

// Graph is the scenario list compiled into an explicit transition
// table: the intro node, one portal target per element, and one
// completion successor per node. Resolution at turn time is table
// lookup plus keyword detection; a missing edge is always a self-loop.
type Graph struct {
	list         []Scenario
	byID         map[int]*Scenario
	intro        *Scenario
	portals      map[string]*Scenario
	onCompletion map[int]*Scenario
}

// Compile builds the transition table from a scenario list. The list is
// defensively re-sorted by (phase, order); the input slice is not
// modified.
func Compile(scenarios []Scenario) *Graph {
	list := make([]Scenario, len(scenarios))
	copy(list, scenarios)
	SortByOrder(list)

	g := &Graph{
		list:         list,
		byID:         make(map[int]*Scenario, len(list)),
		portals:      make(map[string]*Scenario, len(Elements)),
		onCompletion: make(map[int]*Scenario, len(list)),
	}
	for i := range g.list {
		g.byID[g.list[i].ID] = &g.list[i]
	}

	g.intro = g.resolveIntro()

	for _, element := range Elements {
		target := g.findContains("portal da " + element)
		if target == nil {
			target = g.findContains("portal do " + element)
		}
		if target == nil {
			target = g.findPrefix("cena 0a")
		}
		if target != nil {
			g.portals[element] = target
		}
	}

	for i := range g.list {
		s := &g.list[i]
		if next := g.completionSuccessor(s); next != nil {
			g.onCompletion[s.ID] = next
		}
	}

	return g
}

// resolveIntro locates the canonical introduction scenario: exact
// normalized name, then name contains, then source-document keyword,
// then the first element of the ordered list.
func (g *Graph) resolveIntro() *Scenario {
	for i := range g.list {
		if textnorm.Normalize(g.list[i].Name) == "introducao" {
			return &g.list[i]
		}
	}
	if s := g.findContains("introducao"); s != nil {
		return s
	}
	for i := range g.list {
		if textnorm.Contains(g.list[i].SourceURL, "introducao") {
			return &g.list[i]
		}
	}
	if len(g.list) > 0 {
		return &g.list[0]
	}
	return nil
}

func (g *Graph) completionSuccessor(s *Scenario) *Scenario {
	name := textnorm.Normalize(s.Name)
	switch {
	case strings.HasPrefix(name, "cena 0a"):
		return g.findPrefix("cena 0b")
	case strings.HasPrefix(name, "cena 0b"):
		if next := g.findPrefix("cena 01 - temperanca"); next != nil {
			return next
		}
		return g.findPrefix("cena 01")
	default:
		m := chapterRe.FindStringSubmatch(name)
		if m == nil {
			return nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return g.findPrefix(fmt.Sprintf("cena %02d", n+1))
	}
}

func (g *Graph) findPrefix(prefix string) *Scenario {
	for i := range g.list {
		if strings.HasPrefix(textnorm.Normalize(g.list[i].Name), prefix) {
			return &g.list[i]
		}
	}
	return nil
}

func (g *Graph) findContains(sub string) *Scenario {
	for i := range g.list {
		if strings.Contains(textnorm.Normalize(g.list[i].Name), sub) {
			return &g.list[i]
		}
	}
	return nil
}

// Intro returns the canonical introduction scenario, or nil when the
// scenario list is empty.
func (g *Graph) Intro() *Scenario {
	return g.intro
}

// ByID returns the scenario with the given ID, or nil.
func (g *Graph) ByID(id int) *Scenario {
	return g.byID[id]
}

// Scenarios returns the compiled, ordered scenario list.
func (g *Graph) Scenarios() []Scenario {
	return g.list
}

// Next determines the active scenario after a player turn. It is a
// best-effort local prediction: the backend's current_scenario_id stays
// authoritative once it arrives. For a non-nil current scenario the
// result is never nil; a missing edge is a self-loop.
func (g *Graph) Next(current *Scenario, input string) *Scenario {
	if current == nil {
		return g.intro
	}

	if g.intro != nil && current.ID == g.intro.ID {
		element, ok := DetectElement(input)
		if !ok {
			return current
		}
		if target := g.portals[element]; target != nil {
			return target
		}
		return current
	}

	if !ContainsCompletion(input) {
		return current
	}
	if next := g.onCompletion[current.ID]; next != nil {
		return next
	}
	return current
}

// DetectElement finds the first element keyword present in the input,
// honoring the fixed priority order of Elements.
func DetectElement(input string) (string, bool) {
	normalized := textnorm.Normalize(input)
	for _, element := range Elements {
		if strings.Contains(normalized, element) {
			return element, true
		}
	}
	return "", false
}

// ContainsCompletion reports whether the input carries any of the scene
// completion phrases.
func ContainsCompletion(input string) bool {
	normalized := textnorm.Normalize(input)
	for _, kw := range completionKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
