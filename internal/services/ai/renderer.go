package ai

import (
	"fmt"
	"image"
	"image/color"
	"time"
	"yolodetector/internal/detect"

	"gocv.io/x/gocv"
)

var (
	boxColor       = color.RGBA{R: 50, G: 178, B: 255, A: 0}
	labelFill      = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	labelTextColor = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	timingColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Renderer draws detections and the timing overlay onto frames.
type Renderer struct {
	labels detect.Labels
}

// NewRenderer creates a Renderer using labels for captions.
func NewRenderer(labels detect.Labels) *Renderer {
	return &Renderer{labels: labels}
}

// DrawDetection draws the box and a captioned label above it.
func (r *Renderer) DrawDetection(frame *gocv.Mat, d detect.Detection) error {
	if err := gocv.Rectangle(frame, d.Box, boxColor, 3); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	text := r.labels.Text(d)
	size, baseline := gocv.GetTextSizeWithBaseline(text, gocv.FontHersheySimplex, 0.5, 1)
	origin, background := detect.PlaceLabel(d.Box, size, baseline)

	if err := gocv.Rectangle(frame, background, labelFill, -1); err != nil {
		return fmt.Errorf("failed to draw label background: %w", err)
	}
	if err := gocv.PutText(frame, text, origin, gocv.FontHersheySimplex, 0.75, labelTextColor, 1); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// DrawTiming writes the inference time in the top-left corner.
func (r *Renderer) DrawTiming(frame *gocv.Mat, elapsed time.Duration) error {
	label := fmt.Sprintf("Inference time for a frame : %.2f ms", float64(elapsed)/float64(time.Millisecond))
	if err := gocv.PutText(frame, label, image.Pt(0, 15), gocv.FontHersheySimplex, 0.5, timingColor, 1); err != nil {
		return fmt.Errorf("failed to draw timing: %w", err)
	}
	return nil
}
