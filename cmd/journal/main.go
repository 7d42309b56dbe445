package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"yolodetector/internal/config"
	"yolodetector/internal/repository/sqlite"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.JournalPath, "Journal database path")
	runID := flag.Int64("run", 0, "Show statistics of a single run")
	limit := flag.Int("limit", 20, "Number of runs to list")
	remove := flag.Bool("delete", false, "Delete the run given by -run")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("No journal database given, set -db or JOURNAL_PATH")
	}
	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	runs := sqlite.NewRunRepository(db)

	if *runID > 0 {
		if *remove {
			if err := runs.Delete(*runID); err != nil {
				log.Fatalf("Failed to delete run %d: %v", *runID, err)
			}
			fmt.Printf("Deleted run %d\n", *runID)
			return
		}
		printStats(runs, *runID)
		return
	}

	list, err := runs.GetAll(*limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No runs recorded")
		return
	}

	fmt.Printf("%-6s %-6s %-4s %-8s %-20s %s\n", "ID", "MODE", "DEV", "FRAMES", "STARTED", "INPUT")
	for _, r := range list {
		fmt.Printf("%-6d %-6s %-4s %-8d %-20s %s\n",
			r.ID, r.Mode, r.Device, r.Frames, r.StartedAt.Format("2006-01-02 15:04:05"), r.Input)
	}

	labels, err := sqlite.NewDetectionRepository(db).GetAllLabels()
	if err == nil && len(labels) > 0 {
		fmt.Printf("\nLabels seen: %v\n", labels)
	}
}

func printStats(runs *sqlite.RunRepository, id int64) {
	run, err := runs.GetByID(id)
	if err != nil {
		log.Fatalf("Failed to load run %d: %v", id, err)
	}
	if run == nil {
		log.Fatalf("Run %d not found", id)
	}
	stats, err := runs.GetStats(id)
	if err != nil {
		log.Fatalf("Failed to load statistics of run %d: %v", id, err)
	}

	fmt.Printf("Run %d (%s on %s)\n", run.ID, run.Mode, run.Device)
	fmt.Printf("   Input: %s\n", run.Input)
	fmt.Printf("   Output: %s\n", run.Output)
	fmt.Printf("   Frames: %d\n", stats.Frames)
	fmt.Printf("   Detections: %d\n", stats.Detections)

	names := make([]string, 0, len(stats.LabelCounts))
	for name := range stats.LabelCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("   Per label:\n")
	for _, name := range names {
		fmt.Printf("      - %s: %d\n", name, stats.LabelCounts[name])
	}
}
