package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agora-dev/agora/internal/sim"
)

// ErrInvalidSessionID is returned when a session id is unsafe to use as a
// path component.
var ErrInvalidSessionID = errors.New("invalid session id: contains path separator or traversal sequence")

func validateSessionID(id string) error {
	if id == "" {
		return errors.New("session id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return ErrInvalidSessionID
	}
	return nil
}

// FileBackend journals sessions as JSON files. Storage layout:
//
//	<baseDir>/
//	  └── <session-id>/
//	      ├── state.json       # latest state snapshot
//	      └── rounds.jsonl     # append-only round results
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileBackend creates a file-based journal rooted at baseDir. An empty
// baseDir defaults to ~/.agora/sessions.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".agora", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	return &FileBackend{baseDir: baseDir}, nil
}

func (f *FileBackend) sessionDir(sessionID string) (string, error) {
	if err := validateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(f.baseDir, sessionID), nil
}

// SaveState stores the latest state snapshot for a session.
func (f *FileBackend) SaveState(_ context.Context, sessionID string, state *sim.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStorageClosed
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), data, 0600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// LoadState retrieves the last stored snapshot.
func (f *FileBackend) LoadState(_ context.Context, sessionID string) (*sim.State, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrStorageClosed
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "state.json")) // #nosec G304 - session id validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var state sim.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &state, nil
}

// AppendRound appends a round result to the session journal.
func (f *FileBackend) AppendRound(_ context.Context, sessionID string, result *sim.RoundResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStorageClosed
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}

	path := filepath.Join(dir, "rounds.jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 - session id validated
	if err != nil {
		return fmt.Errorf("open rounds journal: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append round: %w", err)
	}
	return nil
}

// LoadRounds retrieves all journaled round results in order.
func (f *FileBackend) LoadRounds(_ context.Context, sessionID string) ([]*sim.RoundResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrStorageClosed
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, "rounds.jsonl")) // #nosec G304 - session id validated
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open rounds journal: %w", err)
	}
	defer file.Close()

	var rounds []*sim.RoundResult
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var result sim.RoundResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, fmt.Errorf("parse round journal line: %w", err)
		}
		rounds = append(rounds, &result)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan rounds journal: %w", err)
	}
	return rounds, nil
}

// ListSessions returns the ids of all journaled sessions.
func (f *FileBackend) ListSessions(context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrStorageClosed
	}

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read base directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteSession removes a session's journal.
func (f *FileBackend) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrStorageClosed
	}

	dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// Close marks the backend closed; further operations fail with
// ErrStorageClosed.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
