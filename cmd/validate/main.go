package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/textnorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenarios.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &ExportValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Scenario export is valid!")
}

type ExportValidator struct {
	errors []string
}

func (v *ExportValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario export must have .json extension: %s", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var scenarios []scenario.Scenario
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&scenarios); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	v.validateExport(scenarios)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

var chapterNameRegex = regexp.MustCompile(`^cena (\d{2})\b`)

func (v *ExportValidator) validateExport(scenarios []scenario.Scenario) {
	if len(scenarios) == 0 {
		v.addError("export contains no scenarios")
		return
	}

	seen := make(map[int]bool, len(scenarios))
	for i := range scenarios {
		s := &scenarios[i]
		if s.ID == 0 {
			v.addError(fmt.Sprintf("scenario %q has no id", s.Name))
		}
		if seen[s.ID] {
			v.addError(fmt.Sprintf("duplicate scenario id %d", s.ID))
		}
		seen[s.ID] = true

		if strings.TrimSpace(s.Name) == "" {
			v.addError(fmt.Sprintf("scenario %d has an empty name", s.ID))
		}
		v.validateMediaURL(s, "image_url", s.ImageURL)
		v.validateMediaURL(s, "video_url", s.VideoURL)
	}

	graph := scenario.Compile(scenarios)

	if graph.Intro() == nil {
		v.addError("no introduction scenario could be resolved")
		return
	}

	// Every element choice at the intro must lead somewhere.
	for _, element := range scenario.Elements {
		next := graph.Next(graph.Intro(), "portal da "+element)
		if next == nil || next.ID == graph.Intro().ID {
			v.addError(fmt.Sprintf("element %q has no portal target", element))
		}
	}

	// Chapter scenes must form a contiguous advance chain: every
	// numbered scene except the last needs a completion successor.
	chapters := 0
	for _, s := range graph.Scenarios() {
		if chapterNameRegex.MatchString(textnorm.Normalize(s.Name)) {
			chapters++
		}
	}
	advanced := 0
	for i := range graph.Scenarios() {
		s := &graph.Scenarios()[i]
		if !chapterNameRegex.MatchString(textnorm.Normalize(s.Name)) {
			continue
		}
		if next := graph.Next(s, "finalizei"); next != nil && next.ID != s.ID {
			advanced++
		}
	}
	if chapters > 0 && advanced < chapters-1 {
		v.addError(fmt.Sprintf("chapter chain is broken: %d of %d numbered scenes advance on completion", advanced, chapters))
	}

	// Order must be unique within a phase, or sorting is unstable
	// across exports.
	type slot struct{ phase, order int }
	slots := make(map[slot]string)
	for _, s := range scenarios {
		k := slot{s.Phase, s.Order}
		if other, ok := slots[k]; ok {
			v.addError(fmt.Sprintf("scenarios %q and %q share phase %d order %d", other, s.Name, s.Phase, s.Order))
		}
		slots[k] = s.Name
	}
}

func (v *ExportValidator) validateMediaURL(s *scenario.Scenario, field, raw string) {
	if raw == "" {
		return
	}
	if _, err := url.Parse(raw); err != nil {
		v.addError(fmt.Sprintf("scenario %d has malformed %s %q", s.ID, field, raw))
	}
}

func (v *ExportValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
