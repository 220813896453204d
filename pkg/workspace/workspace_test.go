package workspace

import (
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func TestOpenCreatesNewState(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	state, err := ws.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Kind != model.StateNew {
		t.Errorf("State().Kind = %v, want StateNew", state.Kind)
	}
}

func TestSetStateRoundTrip(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.SetState(model.StableState("42")); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	state, err := ws.State()
	if err != nil {
		t.Fatal(err)
	}
	if state.Kind != model.StateStable || state.StableVersion != "42" {
		t.Errorf("State() = %+v, want Stable{42}", state)
	}
}

func TestLockExcludesSecondAcquire(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	lock, err := ws.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer func() { _ = lock.Unlock() }()

	if _, err := ws.Lock(); err == nil {
		t.Fatal("expected second Lock() to fail while first is held")
	} else if model.KindOf(err) != model.KindBusy {
		t.Errorf("second Lock() error kind = %v, want KindBusy", model.KindOf(err))
	}
}

func TestLockReleasedAfterUnlock(t *testing.T) {
	ws, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	lock, err := ws.Lock()
	if err != nil {
		t.Fatal(err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	second, err := ws.Lock()
	if err != nil {
		t.Fatalf("Lock after Unlock: %v", err)
	}
	_ = second.Unlock()
}
