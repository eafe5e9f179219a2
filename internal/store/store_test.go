package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/telemetry"
)

// newTestStore creates a Store in a temporary directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "outcomes", "settings", "schema_migrations"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_outcomes_session_frame", "idx_outcomes_gesture"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}

	version, dirty, err := s.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("version = %d dirty = %v, want 2 false", version, dirty)
	}
}

func TestNewStore_ReopenIsNoop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Sessions().Create(&Session{}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	sessions, err := s.Sessions().List()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("got %d sessions after reopen, want 1", len(sessions))
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	first := &Session{StartedAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	second := &Session{StartedAt: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)}
	if err := repo.Create(second); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Active() {
		t.Error("new session should be active")
	}
	if !got.StartedAt.Equal(first.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, first.StartedAt)
	}

	endedAt := first.StartedAt.Add(time.Hour)
	stats := telemetry.FrameStats{Frames: 900, FramesWithHands: 600, FPS: 29.5, AvgFrameTime: 12 * time.Millisecond}
	if err := repo.End(first.ID, endedAt, stats); err != nil {
		t.Fatalf("end: %v", err)
	}

	got, err = repo.GetByID(first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active() || !got.EndedAt.Equal(endedAt) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, endedAt)
	}
	if got.Frames != 900 || got.FramesWithHands != 600 {
		t.Errorf("frames = %d/%d, want 900/600", got.Frames, got.FramesWithHands)
	}
	if got.AvgFrameTime != 12*time.Millisecond {
		t.Errorf("AvgFrameTime = %v, want 12ms", got.AvgFrameTime)
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Errorf("List should return newest first")
	}

	latest, err := repo.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("Latest = %s, want %s", latest.ID, second.ID)
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Sessions()

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID: got %v, want ErrNotFound", err)
	}
	if err := repo.End("missing", time.Now(), telemetry.FrameStats{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("End: got %v, want ErrNotFound", err)
	}
	if err := repo.Delete("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest: got %v, want ErrNotFound", err)
	}
}

func TestOutcomeRepository_BatchAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &Session{}
	if err := s.Sessions().Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	batch := []telemetry.Outcome{
		{Frame: 12, At: at, Gesture: "Speed Up", Success: true, Status: "Speed: 1.25x", Value: 1.25,
			Attempts: 1, DecisionLatency: 2 * time.Millisecond, DispatchLatency: 40 * time.Millisecond,
			Stats: telemetry.FrameStats{FPS: 30, AvgFrameTime: 11 * time.Millisecond}, SuccessRate: 1},
		{Frame: 7, At: at, Gesture: "Pause", Status: "distance not in threshold"},
		{Frame: 12, At: at, Gesture: "Speed Up", Status: "no speed change", SuccessRate: 0.5},
	}

	flush := s.Outcomes().Flusher(session.ID)
	if err := flush.Flush(ctx, batch); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := s.Outcomes().List(ctx, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(got))
	}
	if got[0].Frame != 7 || got[1].Status != "Speed: 1.25x" || got[2].Status != "no speed change" {
		t.Errorf("outcomes not in frame then insertion order: %+v", got)
	}
	if got[1].DispatchLatency != 40*time.Millisecond || got[1].Stats.AvgFrameTime != 11*time.Millisecond {
		t.Errorf("latencies did not round-trip: %+v", got[1])
	}
	if !got[1].Success || got[1].Value != 1.25 || !got[1].At.Equal(at) {
		t.Errorf("fields did not round-trip: %+v", got[1])
	}

	stats, err := s.Outcomes().Stats(ctx, session.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := []GestureStats{
		{Gesture: "Pause", Success: 0, Total: 1, Rate: 0},
		{Gesture: "Speed Up", Success: 1, Total: 2, Rate: 0.5},
	}
	if len(stats) != len(want) {
		t.Fatalf("got %d stats rows, want %d", len(stats), len(want))
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("stats[%d] = %+v, want %+v", i, stats[i], want[i])
		}
	}
}

func TestOutcomeRepository_CascadeDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := &Session{}
	if err := s.Sessions().Create(session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.Outcomes().CreateBatch(ctx, session.ID, []telemetry.Outcome{{Frame: 1, At: time.Now(), Gesture: "Next"}}); err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if err := s.Sessions().Delete(session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.Outcomes().List(ctx, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("outcomes should be deleted with their session, got %d", len(got))
	}
}

func TestOutcomeRepository_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.Outcomes().CreateBatch(context.Background(), "missing", []telemetry.Outcome{{Frame: 1, At: time.Now(), Gesture: "Next"}})
	if err == nil {
		t.Error("inserting outcomes for an unknown session should violate the foreign key")
	}
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("enabled"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get: got %v, want ErrNotFound", err)
	}
	if !repo.Bool("enabled", true) {
		t.Error("Bool should return the default for a missing key")
	}

	if err := repo.SetBool("enabled", false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if repo.Bool("enabled", true) {
		t.Error("Bool should return the stored value")
	}

	if err := repo.Set("enabled", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := repo.Get("enabled"); v != "true" {
		t.Errorf("Get = %q, want true", v)
	}
}
