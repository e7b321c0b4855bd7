package session

import (
	"context"
	"testing"

	"github.com/agora-dev/agora/internal/sim"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	mgr := NewManager(backend)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestManagerGetOrCreate(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	sess := mgr.GetOrCreate(ctx, "alpha", "first topic")
	if sess == nil {
		t.Fatal("GetOrCreate() returned nil")
	}
	if sess.Topic() != "first topic" {
		t.Errorf("topic = %q, want %q", sess.Topic(), "first topic")
	}

	// Second call returns the same session; the topic argument is ignored.
	same := mgr.GetOrCreate(ctx, "alpha", "other topic")
	if same != sess {
		t.Error("GetOrCreate() created a second session for the same id")
	}
	if same.Topic() != "first topic" {
		t.Errorf("topic changed to %q on repeat GetOrCreate", same.Topic())
	}
}

func TestManagerDefaultSessionID(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	sess := mgr.GetOrCreate(ctx, "", "")
	if sess.ID() != DefaultSessionID {
		t.Errorf("session id = %q, want %q", sess.ID(), DefaultSessionID)
	}
	if sess.Topic() != sim.DefaultTopic {
		t.Errorf("topic = %q, want default", sess.Topic())
	}
	if got := mgr.Get(""); got != sess {
		t.Error("Get(\"\") did not resolve the default session")
	}
}

func TestManagerGetMissing(t *testing.T) {
	mgr := newTestManager(t)
	if got := mgr.Get("nope"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
}

func TestManagerList(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	mgr.GetOrCreate(ctx, "beta", "")
	mgr.GetOrCreate(ctx, "alpha", "")

	ids := mgr.List()
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("List() = %v, want [alpha beta]", ids)
	}
}

func TestManagerDelete(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	mgr.GetOrCreate(ctx, "alpha", "")
	if err := mgr.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mgr.Get("alpha") != nil {
		t.Error("session still resolvable after Delete")
	}
}
