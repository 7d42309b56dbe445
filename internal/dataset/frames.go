package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"
)

// DefaultMaxFrames is how many frames are sampled from each video.
const DefaultMaxFrames = 50

// ExtractFrames writes the first maxFrames frames of videoPath into outputDir
// as 0000.jpg, 0001.jpg and so on. It returns the number of frames written.
func ExtractFrames(videoPath, outputDir string, maxFrames int) (int, error) {
	capture, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		capture.Close()
		return 0, fmt.Errorf("failed to open video: %w", err)
	}
	defer capture.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create frame directory: %w", err)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	written := 0
	for written < maxFrames {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		name := filepath.Join(outputDir, fmt.Sprintf("%04d.jpg", written))
		if ok := gocv.IMWrite(name, frame); !ok {
			return written, fmt.Errorf("failed to write %s", name)
		}
		written++
	}
	return written, nil
}

// VideoResult reports the frames extracted from one video.
type VideoResult struct {
	Video     string
	OutputDir string
	Frames    int
}

// ExtractDir extracts frames from every file of videoDir with extension ext
// (compared case-insensitively) into outputDir/<video stem>/.
func ExtractDir(videoDir, outputDir, ext string, maxFrames int, progress func(VideoResult)) ([]VideoResult, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read video directory: %w", err)
	}

	var results []VideoResult
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		result := VideoResult{
			Video:     filepath.Join(videoDir, entry.Name()),
			OutputDir: filepath.Join(outputDir, stem),
		}

		result.Frames, err = ExtractFrames(result.Video, result.OutputDir, maxFrames)
		if err != nil {
			return results, fmt.Errorf("%s: %w", entry.Name(), err)
		}

		results = append(results, result)
		if progress != nil {
			progress(result)
		}
	}
	return results, nil
}
