package main

import (
	"flag"
	"fmt"
	"log"
	"yolodetector/internal/dataset"
)

func main() {
	videoDir := flag.String("videos", ".", "Directory containing the videos")
	outputDir := flag.String("out", "Train_Data", "Directory receiving one frame folder per video")
	ext := flag.String("ext", ".MP4", "Video file extension")
	maxFrames := flag.Int("max", dataset.DefaultMaxFrames, "Frames to extract per video")
	flag.Parse()

	_, err := dataset.ExtractDir(*videoDir, *outputDir, *ext, *maxFrames, func(r dataset.VideoResult) {
		fmt.Printf("Processed %s: %d frames saved to %s\n", r.Video, r.Frames, r.OutputDir)
	})
	if err != nil {
		log.Fatalf("Failed to extract frames: %v", err)
	}

	fmt.Println("Processing completed.")
}
