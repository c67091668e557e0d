package statement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bsie/internal/pipeline"
	"bsie/internal/statement"
	"bsie/internal/testsupport"
)

func TestCreatePersistsRecordAndCreationEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewStatement(t, store, "create")

	if record.CurrentState != pipeline.StateUploaded {
		t.Fatalf("state = %s, want UPLOADED", record.CurrentState)
	}
	if record.StateVersion != 1 {
		t.Fatalf("version = %d, want 1", record.StateVersion)
	}

	history, err := store.History(ctx, record.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected exactly one journal row, got %d", len(history))
	}
	entry := history[0]
	if entry.FromState != nil {
		t.Fatalf("creation entry from_state = %v, want nil", *entry.FromState)
	}
	if entry.ToState != pipeline.StateUploaded {
		t.Fatalf("creation entry to_state = %s, want UPLOADED", entry.ToState)
	}
	if entry.Forced {
		t.Fatal("creation entry must not be forced")
	}
}

func TestCreateRejectsDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewStatement(t, store, "dup")

	_, err := store.Create(ctx, statement.NewRecord{
		ID:          "stmt_dup",
		ContentHash: "hash-other",
	})
	if !errors.Is(err, statement.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	_, err = store.Create(ctx, statement.NewRecord{
		ID:          "stmt_other",
		ContentHash: "hash-dup",
	})
	if !errors.Is(err, statement.ErrDuplicateContentHash) {
		t.Fatalf("expected ErrDuplicateContentHash, got %v", err)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	record, err := store.GetByID(context.Background(), "stmt_absent")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for missing record, got %#v", record)
	}
}

func TestGetByContentHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	created := testsupport.NewStatement(t, store, "hashlookup")
	found, err := store.GetByContentHash(context.Background(), created.ContentHash)
	if err != nil {
		t.Fatalf("GetByContentHash: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("expected record %s, got %#v", created.ID, found)
	}
}

func TestApplyTransitionUpdatesRecordAndJournal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewStatement(t, store, "apply")

	updated, err := store.ApplyTransition(ctx, statement.TransitionApply{
		StatementID:     record.ID,
		ExpectedVersion: record.StateVersion,
		FromState:       record.CurrentState,
		ToState:         pipeline.StateIngested,
		Artifacts:       map[string]string{"ingest_receipt": "/tmp/receipt.json"},
		ArtifactNames:   []string{"ingest_receipt"},
		Trigger:         "ingestion_complete",
		WorkerID:        "worker-1",
		Metadata:        map[string]any{"source": "test"},
	})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	if updated.CurrentState != pipeline.StateIngested {
		t.Fatalf("state = %s, want INGESTED", updated.CurrentState)
	}
	if updated.StateVersion != record.StateVersion+1 {
		t.Fatalf("version = %d, want %d", updated.StateVersion, record.StateVersion+1)
	}
	if updated.Artifacts["ingest_receipt"] != "/tmp/receipt.json" {
		t.Fatalf("artifacts not persisted: %#v", updated.Artifacts)
	}

	history, err := store.History(ctx, record.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 journal rows, got %d", len(history))
	}
	last := history[1]
	if last.FromState == nil || *last.FromState != pipeline.StateUploaded {
		t.Fatalf("from_state = %v, want UPLOADED", last.FromState)
	}
	if last.ToState != pipeline.StateIngested {
		t.Fatalf("to_state = %s, want INGESTED", last.ToState)
	}
	if last.Trigger != "ingestion_complete" || last.WorkerID != "worker-1" {
		t.Fatalf("unexpected journal entry: %+v", last)
	}
	if len(last.ArtifactNames) != 1 || last.ArtifactNames[0] != "ingest_receipt" {
		t.Fatalf("artifact names = %v", last.ArtifactNames)
	}
}

func TestApplyTransitionVersionConflictWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewStatement(t, store, "conflict")

	_, err := store.ApplyTransition(ctx, statement.TransitionApply{
		StatementID:     record.ID,
		ExpectedVersion: record.StateVersion + 5,
		FromState:       record.CurrentState,
		ToState:         pipeline.StateIngested,
		Trigger:         "stale",
	})
	if !errors.Is(err, statement.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	reloaded, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.CurrentState != pipeline.StateUploaded || reloaded.StateVersion != 1 {
		t.Fatalf("record mutated on conflict: %+v", reloaded)
	}
	history, err := store.History(ctx, record.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("conflict must not journal, got %d rows", len(history))
	}
}

func TestApplyTransitionMissingRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.ApplyTransition(context.Background(), statement.TransitionApply{
		StatementID:     "stmt_ghost",
		ExpectedVersion: 1,
		FromState:       pipeline.StateUploaded,
		ToState:         pipeline.StateIngested,
		Trigger:         "noop",
	})
	if !errors.Is(err, statement.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFiltersByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewStatement(t, store, "list-a")
	testsupport.NewStatement(t, store, "list-b")

	if _, err := store.ApplyTransition(ctx, statement.TransitionApply{
		StatementID:     a.ID,
		ExpectedVersion: a.StateVersion,
		FromState:       a.CurrentState,
		ToState:         pipeline.StateIngested,
		Trigger:         "ingestion_complete",
	}); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	uploaded, err := store.List(ctx, pipeline.StateUploaded)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(uploaded) != 1 || uploaded[0].ID != "stmt_list-b" {
		t.Fatalf("unexpected uploaded set: %+v", uploaded)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[pipeline.StateUploaded] != 1 || stats[pipeline.StateIngested] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestNextForStatesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewStatement(t, store, "next-1")
	testsupport.NewStatement(t, store, "next-2")

	next, err := store.NextForStates(ctx, pipeline.StateUploaded)
	if err != nil {
		t.Fatalf("NextForStates: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest record %s, got %#v", first.ID, next)
	}

	none, err := store.NextForStates(ctx, pipeline.StateCompleted)
	if err != nil {
		t.Fatalf("NextForStates: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for empty state, got %#v", none)
	}
}

func TestListExpired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewStatement(t, store, "expired")

	future := time.Now().Add(time.Hour)
	expired, err := store.ListExpired(ctx, pipeline.StateUploaded, future)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != record.ID {
		t.Fatalf("expected record in expired set, got %+v", expired)
	}

	past := time.Now().Add(-time.Hour)
	fresh, err := store.ListExpired(ctx, pipeline.StateUploaded, past)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected no expired records, got %+v", fresh)
	}
}

func TestTemplateBindingAndErrorTracking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	record := testsupport.NewStatement(t, store, "meta")

	if err := store.SetTemplateBinding(ctx, record.ID, "tpl-chase-checking", "v3"); err != nil {
		t.Fatalf("SetTemplateBinding: %v", err)
	}
	if err := store.RecordError(ctx, record.ID, "E102", "extraction engine crashed"); err != nil {
		t.Fatalf("RecordError: %v", err)
	}

	reloaded, err := store.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Template == nil || reloaded.Template.ID != "tpl-chase-checking" || reloaded.Template.Version != "v3" {
		t.Fatalf("template binding not persisted: %+v", reloaded.Template)
	}
	if reloaded.ErrorCode != "E102" || reloaded.RetryCount != 1 {
		t.Fatalf("error tracking not persisted: %+v", reloaded)
	}

	if err := store.SetTemplateBinding(ctx, "stmt_ghost", "tpl", "v1"); !errors.Is(err, statement.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
