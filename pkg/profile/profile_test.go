package profile

import "testing"

func TestExtractRosterWithCount(t *testing.T) {
	c := Extract("Jogador 1: Ana, 9 anos. Jogador 2: Leo, 12 anos. Somos 2 jogadores")

	if !c.Completed() {
		t.Error("expected completed extraction")
	}
	if len(c.Players) != 2 {
		t.Fatalf("roster length = %d, want 2", len(c.Players))
	}
	if c.Players[0].Name != "Ana" || c.Players[0].Age != 9 {
		t.Errorf("player 1 = %+v", c.Players[0])
	}
	if c.Players[1].Name != "Leo" || c.Players[1].Age != 12 {
		t.Errorf("player 2 = %+v", c.Players[1])
	}
	if c.Count != 2 {
		t.Errorf("count = %d, want 2", c.Count)
	}
}

func TestExtractRosterCaseInsensitive(t *testing.T) {
	c := Extract("JOGADOR 1: Maria Clara, 10 ANOS")
	if len(c.Players) != 1 {
		t.Fatalf("roster length = %d, want 1", len(c.Players))
	}
	if c.Players[0].Name != "Maria Clara" {
		t.Errorf("name = %q, want %q", c.Players[0].Name, "Maria Clara")
	}
	// Roster alone completes: the roster doubles as the count.
	if !c.Completed() {
		t.Error("expected roster-only extraction to complete")
	}
}

func TestExtractSelfIntroduction(t *testing.T) {
	tests := []struct {
		text string
		name string
		age  int
	}{
		{"Oi, me chamo Pedro e tenho 11 anos", "Pedro", 11},
		{"meu nome é Júlia, 8 anos", "Júlia", 8},
		{"sou a Bia e tenho 9 anos", "Bia", 9},
	}
	for _, tt := range tests {
		c := Extract(tt.text)
		if c.Name != tt.name || c.Age != tt.age {
			t.Errorf("Extract(%q) name/age = %q/%d, want %q/%d", tt.text, c.Name, c.Age, tt.name, tt.age)
		}
		// Name and age alone are not enough without a count.
		if c.Completed() {
			t.Errorf("Extract(%q) unexpectedly completed without count", tt.text)
		}
	}
}

func TestExtractNameNeedsWordBoundary(t *testing.T) {
	// Words that merely end in "sou" are not self-introductions.
	c := Extract("pensou Maria em voz alta, por 9 anos ela esperou")
	if c.Name != "" {
		t.Errorf("name = %q, want none", c.Name)
	}

	// A real introduction at the start of the utterance still matches.
	c = Extract("Sou Maria")
	if c.Name != "Maria" {
		t.Errorf("name = %q, want %q", c.Name, "Maria")
	}
}

func TestExtractSingularWithCount(t *testing.T) {
	c := Extract("me chamo Rafael, tenho 12 anos e somos 1 jogador")
	if !c.Completed() {
		t.Error("expected completed extraction")
	}
	if c.Name != "Rafael" || c.Age != 12 || c.Count != 1 {
		t.Errorf("candidate = %+v", c)
	}
}

func TestExtractNothing(t *testing.T) {
	c := Extract("quero abrir o portal da água")
	if c.Completed() {
		t.Error("unexpected completion")
	}
	if len(c.Players) != 0 || c.Count != 0 || c.Name != "" || c.Age != 0 {
		t.Errorf("expected empty candidate, got %+v", c)
	}
}

func TestProfileMerge(t *testing.T) {
	var p Profile
	if p.Completed() {
		t.Error("new profile must not be completed")
	}

	// Incomplete candidates never touch the profile.
	p.Merge(Extract("me chamo Ana"))
	if p.Completed() {
		t.Error("incomplete candidate merged")
	}

	p.Merge(Extract("Jogador 1: Ana, 9 anos. Somos 1 jogador"))
	if !p.Completed() {
		t.Fatal("expected merged profile")
	}

	lines := p.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %#v", lines)
	}
	if lines[0] != "Jogador 1: Ana, 9 anos" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "Total de jogadores: 1" {
		t.Errorf("line 1 = %q", lines[1])
	}

	// Most recent completed extraction wins.
	p.Merge(Extract("Jogador 1: Leo, 12 anos. Jogador 2: Bia, 10 anos. Somos 2 jogadores"))
	if len(p.Players) != 2 || p.Count != 2 {
		t.Errorf("profile after re-merge = %+v", p)
	}

	p.Reset()
	if p.Completed() || p.Lines() != nil {
		t.Error("Reset did not clear profile")
	}
}

func TestMergeSingularBuildsRoster(t *testing.T) {
	var p Profile
	p.Merge(Extract("meu nome é Caio, 7 anos, 1 jogador"))
	if !p.Completed() {
		t.Fatal("expected completed profile")
	}
	if len(p.Players) != 1 || p.Players[0].Name != "Caio" || p.Players[0].Age != 7 {
		t.Errorf("players = %+v", p.Players)
	}
}
