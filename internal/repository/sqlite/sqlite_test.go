package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yolodetector/internal/models"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRun(t *testing.T, repo *RunRepository, input string, started time.Time) int64 {
	t.Helper()

	id, err := repo.Insert(&models.Run{
		Input:     input,
		Output:    input + ".out",
		Mode:      "video",
		Device:    "cpu",
		StartedAt: started,
	})
	if err != nil {
		t.Fatalf("Failed to insert run: %v", err)
	}
	return id
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_MigrationIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		db, err := New(dbPath)
		if err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
		db.Close()
	}
}

// ========================================
// Run Repository Tests
// ========================================

func TestRunRepository_InsertAndFinish(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := insertRun(t, runs, "run_sm.mp4", started)

	run, err := runs.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run, got nil")
	}
	if run.FinishedAt != nil {
		t.Error("New run should not be finished")
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("Expected start %v, got %v", started, run.StartedAt)
	}

	if err := runs.Finish(id, 42, started.Add(time.Minute)); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	run, _ = runs.GetByID(id)
	if run.Frames != 42 {
		t.Errorf("Expected 42 frames, got %d", run.Frames)
	}
	if run.FinishedAt == nil {
		t.Error("Expected finished_at to be set")
	}
}

func TestRunRepository_FinishUnknown(t *testing.T) {
	db := setupTestDB(t)
	if err := NewRunRepository(db).Finish(999, 1, time.Now()); err == nil {
		t.Error("Expected error for unknown run")
	}
}

func TestRunRepository_GetByIDMissing(t *testing.T) {
	db := setupTestDB(t)
	run, err := NewRunRepository(db).GetByID(999)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil run, got %+v", run)
	}
}

func TestRunRepository_GetAllOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	insertRun(t, runs, "a.mp4", base)
	insertRun(t, runs, "b.mp4", base.Add(time.Hour))
	insertRun(t, runs, "c.mp4", base.Add(2*time.Hour))

	all, err := runs.GetAll(0)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(all))
	}
	if all[0].Input != "c.mp4" {
		t.Errorf("Expected newest run first, got %s", all[0].Input)
	}

	limited, _ := runs.GetAll(2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(limited))
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_BatchAndStats(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	detections := NewDetectionRepository(db)

	id := insertRun(t, runs, "dog.jpg", time.Now())
	batch := []models.Detection{
		{RunID: id, Frame: 1, ClassID: 0, Label: "person", Confidence: 0.9, X: 1, Y: 2, Width: 30, Height: 40},
		{RunID: id, Frame: 1, ClassID: 1, Label: "dog", Confidence: 0.7},
		{RunID: id, Frame: 2, ClassID: 0, Label: "person", Confidence: 0.8},
	}
	if err := detections.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := runs.Finish(id, 2, time.Now()); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	all, err := detections.GetByRunID(id)
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(all))
	}
	if all[0].Width != 30 || all[0].Height != 40 {
		t.Errorf("Box not stored: %+v", all[0])
	}

	frame, _ := detections.GetByFrame(id, 2)
	if len(frame) != 1 || frame[0].Label != "person" {
		t.Errorf("Unexpected frame 2 detections: %+v", frame)
	}

	labels, _ := detections.GetAllLabels()
	if len(labels) != 2 || labels[0] != "dog" || labels[1] != "person" {
		t.Errorf("Unexpected labels: %v", labels)
	}

	stats, err := runs.GetStats(id)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Frames != 2 || stats.Detections != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.LabelCounts["person"] != 2 || stats.LabelCounts["dog"] != 1 {
		t.Errorf("Unexpected label counts: %v", stats.LabelCounts)
	}
}

func TestDetectionRepository_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	if err := NewDetectionRepository(db).InsertBatch(nil); err != nil {
		t.Errorf("Empty batch should be a no-op, got %v", err)
	}
}

func TestRunRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	detections := NewDetectionRepository(db)

	id := insertRun(t, runs, "x.mp4", time.Now())
	if err := detections.InsertBatch([]models.Detection{{RunID: id, Frame: 1, Label: "car"}}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	if err := runs.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	left, _ := detections.GetByRunID(id)
	if len(left) != 0 {
		t.Errorf("Expected detections to be removed with the run, got %d", len(left))
	}
}

func TestRunRepository_StatsUnknownRun(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewRunRepository(db).GetStats(7); err == nil {
		t.Error("Expected error for unknown run")
	}
}
