package storage

import (
	"fmt"
	"sync"
	"time"
	"yolodetector/internal/detect"
	"yolodetector/internal/logger"
	"yolodetector/internal/models"
	"yolodetector/internal/repository"
)

// DefaultFlushEvery is how many frames are buffered before detections are
// written to the database.
const DefaultFlushEvery = 30

// JournalService buffers the detections of a run in memory and periodically
// writes them to the journal database.
type JournalService struct {
	runs       repository.RunRepository
	detections repository.DetectionRepository
	logger     *logger.Logger
	labels     detect.Labels

	runID      int64
	pending    []models.Detection
	buffered   int
	flushEvery int
	mu         sync.Mutex
}

// NewJournalService creates a JournalService. labels is used to store a
// human-readable name next to each class ID.
func NewJournalService(runs repository.RunRepository, detections repository.DetectionRepository, labels detect.Labels, logger *logger.Logger, flushEvery int) *JournalService {
	if flushEvery <= 0 {
		flushEvery = DefaultFlushEvery
	}
	return &JournalService{
		runs:       runs,
		detections: detections,
		labels:     labels,
		logger:     logger,
		flushEvery: flushEvery,
	}
}

// Begin records the start of a run. Subsequent Record calls belong to it.
func (s *JournalService) Begin(run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	id, err := s.runs.Insert(run)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	run.ID = id
	s.runID = id
	s.pending = s.pending[:0]
	s.buffered = 0

	s.logger.Info("Journal run %d started for %s", id, run.Input)
	return nil
}

// RunID returns the ID of the current run, or 0 before Begin.
func (s *JournalService) RunID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Record buffers the detections of one frame.
func (s *JournalService) Record(frame int, detections []detect.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID == 0 {
		return fmt.Errorf("journal run not started")
	}

	for _, d := range detections {
		s.pending = append(s.pending, models.Detection{
			RunID:      s.runID,
			Frame:      frame,
			ClassID:    d.ClassID,
			Label:      s.labelFor(d.ClassID),
			Confidence: float64(d.Confidence),
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
		})
	}

	s.buffered++
	if s.buffered < s.flushEvery {
		return nil
	}
	return s.flushLocked()
}

// Flush writes buffered detections to the database.
func (s *JournalService) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *JournalService) flushLocked() error {
	s.buffered = 0
	if len(s.pending) == 0 {
		return nil
	}

	if err := s.detections.InsertBatch(s.pending); err != nil {
		return fmt.Errorf("failed to flush %d detections: %w", len(s.pending), err)
	}

	s.logger.Info("Flushed %d detections to journal", len(s.pending))
	s.pending = s.pending[:0]
	return nil
}

// End flushes what is left and stores the frame count of the run.
func (s *JournalService) End(frames int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID == 0 {
		return nil
	}
	if err := s.flushLocked(); err != nil {
		return err
	}
	if err := s.runs.Finish(s.runID, frames, time.Now()); err != nil {
		return err
	}

	s.logger.Info("Journal run %d finished after %d frames", s.runID, frames)
	s.runID = 0
	return nil
}

func (s *JournalService) labelFor(classID int) string {
	if classID >= 0 && classID < len(s.labels) {
		return s.labels[classID]
	}
	return ""
}
