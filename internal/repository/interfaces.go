package repository

import (
	"time"
	"yolodetector/internal/models"
)

// RunRepository defines the operations on recorded runs.
type RunRepository interface {
	// Create operations
	Insert(run *models.Run) (int64, error)

	// Update operations
	Finish(id int64, frames int, finishedAt time.Time) error

	// Read operations
	GetByID(id int64) (*models.Run, error)
	GetAll(limit int) ([]models.Run, error)
	GetStats(id int64) (*models.RunStats, error)

	// Delete operations
	Delete(id int64) error
}

// DetectionRepository defines the operations on recorded detections.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []models.Detection) error

	// Read operations
	GetByRunID(runID int64) ([]models.Detection, error)
	GetByFrame(runID int64, frame int) ([]models.Detection, error)
	GetAllLabels() ([]string, error)
}
