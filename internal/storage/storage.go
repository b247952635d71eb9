// Package storage persists the local backend's sessions and
// interactions in Redis, with the scenario catalog loaded from a JSON
// export on the filesystem.
package storage

import (
	"context"

	"github.com/forjaquest/forja-engine/pkg/scenario"
	"github.com/forjaquest/forja-engine/pkg/session"
)

// Store is the persistence surface of the local backend. Sessions and
// interactions live in Redis; the scenario catalog is a read-only
// filesystem export.
type Store interface {
	// Ping tests the storage connection
	Ping(ctx context.Context) error

	// Close closes the storage connection
	Close() error

	// CreateSession stores a new session, assigning its ID.
	CreateSession(ctx context.Context, s *session.Session) error

	// GetSession returns a session, or nil when it does not exist.
	GetSession(ctx context.Context, id int) (*session.Session, error)

	// SaveSession overwrites an existing session record.
	SaveSession(ctx context.Context, s *session.Session) error

	// ListSessions returns every stored session.
	ListSessions(ctx context.Context) ([]session.Session, error)

	// AppendInteraction stores a confirmed interaction, assigning its ID.
	AppendInteraction(ctx context.Context, in *session.Interaction) error

	// ListInteractions returns a session's interactions, newest first.
	ListInteractions(ctx context.Context, sessionID int) ([]session.Interaction, error)

	// LoadScenarios reads the scenario catalog export.
	LoadScenarios(ctx context.Context) ([]scenario.Scenario, error)
}
