package main

import (
	"flag"
	"fmt"
	"log"
	"yolodetector/internal/config"
	"yolodetector/internal/dataset"
	"yolodetector/internal/detect"
)

func main() {
	cfg := config.Load()

	inputDir := flag.String("in", ".", "Directory containing Pascal VOC .xml annotations")
	outputDir := flag.String("out", "labels_txt", "Directory receiving YOLO .txt labels")
	classesFile := flag.String("classes", cfg.ClassesFile, "Class names file, one name per line")
	flag.Parse()

	classes, err := detect.LoadLabels(*classesFile)
	if err != nil {
		log.Fatalf("Failed to load classes: %v", err)
	}
	if len(classes) == 0 {
		log.Fatalf("No classes in %s", *classesFile)
	}

	n, err := dataset.ConvertVOCDir(*inputDir, *outputDir, classes)
	if err != nil {
		log.Fatalf("Failed to convert annotations: %v", err)
	}

	fmt.Printf("Converted %d annotations into %s\n", n, *outputDir)
}
