package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"yolodetector/internal/logger"
	"yolodetector/internal/models"
	"yolodetector/internal/repository"
)

// RunsHandler lists recorded runs, newest first. ?limit=N bounds the list.
func RunsHandler(runs repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), 50)
		list, err := runs.GetAll(limit)
		if err != nil {
			logger.Error("Failed to list runs: %v", err)
			http.Error(w, "Failed to list runs", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Run{}
		}

		writeJSON(w, list, logger)
	}
}

// RunDetectionsHandler returns the detections of ?run=ID, optionally only
// those of ?frame=N, together with the run statistics.
func RunDetectionsHandler(runs repository.RunRepository, detections repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		runID, err := strconv.ParseInt(r.URL.Query().Get("run"), 10, 64)
		if err != nil || runID <= 0 {
			http.Error(w, "Invalid run id", http.StatusBadRequest)
			return
		}

		run, err := runs.GetByID(runID)
		if err != nil {
			logger.Error("Failed to load run %d: %v", runID, err)
			http.Error(w, "Failed to load run", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.NotFound(w, r)
			return
		}

		var list []models.Detection
		if frame := r.URL.Query().Get("frame"); frame != "" {
			n, convErr := strconv.Atoi(frame)
			if convErr != nil {
				http.Error(w, "Invalid frame", http.StatusBadRequest)
				return
			}
			list, err = detections.GetByFrame(runID, n)
		} else {
			list, err = detections.GetByRunID(runID)
		}
		if err != nil {
			logger.Error("Failed to load detections for run %d: %v", runID, err)
			http.Error(w, "Failed to load detections", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Detection{}
		}

		stats, err := runs.GetStats(runID)
		if err != nil {
			logger.Error("Failed to load stats for run %d: %v", runID, err)
			http.Error(w, "Failed to load stats", http.StatusInternalServerError)
			return
		}

		writeJSON(w, struct {
			Run        *models.Run        `json:"run"`
			Stats      *models.RunStats   `json:"stats"`
			Detections []models.Detection `json:"detections"`
		}{run, stats, list}, logger)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
