package session

import (
	"context"
	"errors"

	"github.com/agora-dev/agora/internal/sim"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// StorageBackend journals simulation state and round results. The in-memory
// state is authoritative; journaling is write-behind, and a journaling error
// never fails the operation that triggered it. Implementations must be safe
// for concurrent use.
type StorageBackend interface {
	// SaveState stores the latest state snapshot for a session.
	SaveState(ctx context.Context, sessionID string, state *sim.State) error

	// LoadState retrieves the last stored snapshot.
	// Returns ErrSessionNotFound if nothing was stored.
	LoadState(ctx context.Context, sessionID string) (*sim.State, error)

	// AppendRound appends an immutable round result to the session journal.
	AppendRound(ctx context.Context, sessionID string, result *sim.RoundResult) error

	// LoadRounds retrieves all journaled round results in order.
	LoadRounds(ctx context.Context, sessionID string) ([]*sim.RoundResult, error)

	// ListSessions returns the ids of all journaled sessions.
	ListSessions(ctx context.Context) ([]string, error)

	// DeleteSession removes a session's journal.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close releases any resources held by the backend.
	Close() error
}

// nopBackend discards everything. Used when journaling is disabled.
type nopBackend struct{}

// NewNopBackend returns a backend that journals nothing.
func NewNopBackend() StorageBackend { return nopBackend{} }

func (nopBackend) SaveState(context.Context, string, *sim.State) error { return nil }
func (nopBackend) LoadState(context.Context, string) (*sim.State, error) {
	return nil, ErrSessionNotFound
}
func (nopBackend) AppendRound(context.Context, string, *sim.RoundResult) error { return nil }
func (nopBackend) LoadRounds(context.Context, string) ([]*sim.RoundResult, error) {
	return nil, nil
}
func (nopBackend) ListSessions(context.Context) ([]string, error) { return nil, nil }
func (nopBackend) DeleteSession(context.Context, string) error    { return nil }
func (nopBackend) Close() error                                   { return nil }
