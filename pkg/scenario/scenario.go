// Package scenario models authored narrative nodes and the transition
// rules between them. Scenario names carry routing semantics (element
// portals, numbered chapters); the Graph compiles those names into an
// explicit transition table at load time.
package scenario

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Scenario is one authored node in the narrative graph. Nodes are
// read-only to the engine and totally ordered by (phase, order).
type Scenario struct {
	ID          int       `json:"id"`
	GameID      int       `json:"game_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	SourceURL   string    `json:"file_url,omitempty"`     // authored source document
	FileContent string    `json:"file_content,omitempty"` // extracted full-text script
	Phase       int       `json:"phase"`
	Order       int       `json:"order"`
	IsActive    bool      `json:"is_active,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// HasMedia reports whether the scenario has an image or video to show.
func (s *Scenario) HasMedia() bool {
	return s != nil && (s.ImageURL != "" || s.VideoURL != "")
}

// SortByOrder sorts scenarios ascending by (phase, order). The backend
// returns them pre-sorted; this is the defensive re-sort.
func SortByOrder(list []Scenario) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Phase != list[j].Phase {
			return list[i].Phase < list[j].Phase
		}
		return list[i].Order < list[j].Order
	})
}

// ResolveMediaURL resolves a scenario or audio URL against the backend
// base URL. Absolute URLs (http, https, blob, data) pass through;
// server-relative paths are prefixed; malformed or missing URLs resolve
// to "" and are treated as no media.
func ResolveMediaURL(baseURL, raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, prefix := range []string{"http://", "https://", "blob:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return raw
		}
	}
	if _, err := url.Parse(raw); err != nil {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
}
