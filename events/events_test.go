package events

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yeti47/camkit/ccc/db"
	"github.com/yeti47/camkit/ccc/logging"
)

func setupTestEventRepo(t *testing.T) (*SQLiteEventRepository, func()) {
	testDB, err := db.NewInMemoryDB()
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}

	repo, err := NewSQLiteEventRepository(testDB)
	if err != nil {
		testDB.Close()
		t.Fatalf("Failed to create repository: %v", err)
	}

	cleanup := func() {
		testDB.Close()
	}

	return repo, cleanup
}

func TestSQLiteEventRepository_CreateAndGet(t *testing.T) {
	repo, cleanup := setupTestEventRepo(t)
	defer cleanup()

	ctx := context.Background()
	event := New(KindDeviceRejected, "preview size refused").With("field", "preview-size")
	event.SessionID = "session-1"

	if err := repo.Create(ctx, &event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	retrieved, err := repo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve event: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Expected event to be found")
	}
	if retrieved.Kind != KindDeviceRejected || retrieved.Message != "preview size refused" || retrieved.SessionID != "session-1" {
		t.Errorf("Unexpected event: %+v", retrieved)
	}
	if retrieved.Data["field"] != "preview-size" {
		t.Errorf("Expected data field preview-size, got %v", retrieved.Data["field"])
	}
	if !retrieved.Timestamp.Equal(event.Timestamp) {
		t.Errorf("Expected timestamp %v, got %v", event.Timestamp, retrieved.Timestamp)
	}
}

func TestSQLiteEventRepository_AssignsMissingIDAndTimestamp(t *testing.T) {
	repo, cleanup := setupTestEventRepo(t)
	defer cleanup()

	event := &Event{Kind: KindCameraOpen}
	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Errorf("Expected ID and timestamp to be assigned, got %+v", event)
	}
}

func TestSQLiteEventRepository_GetByIDNotFound(t *testing.T) {
	repo, cleanup := setupTestEventRepo(t)
	defer cleanup()

	event, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if event != nil {
		t.Errorf("Expected nil, got %+v", event)
	}
}

func TestSQLiteEventRepository_GetRecent(t *testing.T) {
	repo, cleanup := setupTestEventRepo(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kinds := []Kind{KindCameraOpen, KindError, KindError, KindCameraClose}
	for i, kind := range kinds {
		event := Event{Kind: kind, Timestamp: base.Add(time.Duration(i) * 500 * time.Millisecond)}
		if err := repo.Create(ctx, &event); err != nil {
			t.Fatalf("Failed to create event: %v", err)
		}
	}

	all, err := repo.GetRecent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(all))
	}
	if all[0].Kind != KindCameraClose || all[3].Kind != KindCameraOpen {
		t.Errorf("Expected newest first, got %v ... %v", all[0].Kind, all[3].Kind)
	}

	errorsOnly, err := repo.GetRecent(ctx, KindError, 1)
	if err != nil {
		t.Fatalf("Failed to get events: %v", err)
	}
	if len(errorsOnly) != 1 || errorsOnly[0].Kind != KindError {
		t.Errorf("Expected one error event, got %+v", errorsOnly)
	}

	count, err := repo.CountByKind(ctx, KindError)
	if err != nil || count != 2 {
		t.Errorf("Expected 2 error events, got %d (%v)", count, err)
	}

	deleted, err := repo.DeleteOlderThan(ctx, base.Add(time.Second))
	if err != nil {
		t.Fatalf("Failed to delete events: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted events, got %d", deleted)
	}
}

func TestRepositoryDispatcher_Persists(t *testing.T) {
	repo, cleanup := setupTestEventRepo(t)
	defer cleanup()

	dispatcher := NewRepositoryDispatcher(repo, nil)
	dispatcher.Dispatch(New(KindFocusMoved, "").With("started", true))

	count, err := repo.CountByKind(context.Background(), KindFocusMoved)
	if err != nil || count != 1 {
		t.Errorf("Expected 1 stored event, got %d (%v)", count, err)
	}
}

func TestLoggingDispatcher_FailuresAreWarnings(t *testing.T) {
	var buf bytes.Buffer
	dispatcher := NewLoggingDispatcher(logging.CreateWriterLogger(logging.LogLevelDebug, &buf))

	dispatcher.Dispatch(FromError(KindTransientError, errors.New("device busy")))
	dispatcher.Dispatch(New(KindCameraOpen, ""))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"WARN"`) || !strings.Contains(lines[0], "device busy") {
		t.Errorf("Expected warning with message, got %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"INFO"`) {
		t.Errorf("Expected info line, got %s", lines[1])
	}
}

func TestMultiDispatcher_SkipsNil(t *testing.T) {
	first, second := NewRecorder(), NewRecorder()
	dispatcher := NewMultiDispatcher(first, nil, second)

	dispatcher.Dispatch(New(KindCameraOpen, ""))

	if first.Count(KindCameraOpen) != 1 || second.Count(KindCameraOpen) != 1 {
		t.Error("Expected both recorders to receive the event")
	}
}

func TestEventWith_DoesNotModifyOriginal(t *testing.T) {
	original := New(KindError, "x").With("a", 1)
	updated := original.With("b", 2)

	if _, ok := original.Data["b"]; ok {
		t.Error("With modified the original event")
	}
	if updated.Data["a"] != 1 || updated.Data["b"] != 2 {
		t.Errorf("Unexpected data: %v", updated.Data)
	}
}

func TestMemoryFailureTracker_RecordFailure(t *testing.T) {
	tracker := NewMemoryFailureTracker(EscalationSettings{Threshold: 3, TimeWindow: time.Minute})
	now := time.Now()

	if count := tracker.RecordFailure(KindDeviceRejected, "s1", now); count != 1 {
		t.Errorf("Expected failure count 1, got %d", count)
	}
	if count := tracker.RecordFailure(KindDeviceRejected, "s1", now.Add(time.Second)); count != 2 {
		t.Errorf("Expected failure count 2, got %d", count)
	}
	if count := tracker.RecordFailure(KindCapabilityGap, "s1", now.Add(2*time.Second)); count != 1 {
		t.Errorf("Expected other kind to count separately, got %d", count)
	}
	if count := tracker.RecordFailure(KindDeviceRejected, "s2", now.Add(3*time.Second)); count != 1 {
		t.Errorf("Expected other session to count separately, got %d", count)
	}

	count := tracker.RecordFailure(KindDeviceRejected, "s1", now.Add(4*time.Second))
	if count != 3 || !tracker.ShouldEscalate(count) {
		t.Errorf("Expected escalation at count 3, got %d", count)
	}
}

func TestMemoryFailureTracker_TimeWindow(t *testing.T) {
	tracker := NewMemoryFailureTracker(EscalationSettings{Threshold: 2, TimeWindow: 10 * time.Second})
	now := time.Now()

	tracker.RecordFailure(KindDeviceRejected, "s1", now)
	count := tracker.RecordFailure(KindDeviceRejected, "s1", now.Add(11*time.Second))
	if count != 1 {
		t.Errorf("Expected old failure to fall out of the window, got %d", count)
	}
}

func TestMemoryFailureTracker_ZeroThresholdNeverEscalates(t *testing.T) {
	tracker := NewMemoryFailureTracker(EscalationSettings{Threshold: 0, TimeWindow: time.Minute})
	if tracker.ShouldEscalate(1000) {
		t.Error("Expected no escalation with threshold 0")
	}
}

func TestEscalatingDispatcher(t *testing.T) {
	settings := EscalationSettings{
		Threshold:  2,
		TimeWindow: time.Minute,
		Kinds:      []Kind{KindDeviceRejected},
	}

	escalations := 0
	dispatcher := NewEscalatingDispatcher(NewMemoryFailureTracker(settings), settings, func(event Event, count int) {
		escalations++
		if count < 2 {
			t.Errorf("Escalated with count %d", count)
		}
	})

	dispatcher.Dispatch(New(KindCameraOpen, ""))
	dispatcher.Dispatch(New(KindCapabilityGap, ""))
	dispatcher.Dispatch(New(KindCapabilityGap, ""))
	dispatcher.Dispatch(New(KindDeviceRejected, ""))
	if escalations != 0 {
		t.Fatalf("Expected no escalation yet, got %d", escalations)
	}

	dispatcher.Dispatch(New(KindDeviceRejected, ""))
	if escalations != 1 {
		t.Errorf("Expected one escalation, got %d", escalations)
	}
}
