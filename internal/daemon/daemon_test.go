package daemon

import (
	"context"
	"testing"

	"bsie/internal/statecontrol"
	"bsie/internal/testsupport"
	"bsie/internal/workflow"
)

func TestDaemonLifecycleAndSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	controller := statecontrol.New(store, nil, nil)
	wf := workflow.NewManager(cfg, store, controller, nil)

	d, err := New(cfg, store, controller, wf, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()
	if !d.Running() {
		t.Fatal("not running after Start")
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected error on second Start")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("still running after Stop")
	}

	// The lock is released; a fresh start succeeds.
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	d.Stop()
}

func TestDaemonRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := New(cfg, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
