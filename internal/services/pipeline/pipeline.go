// Package pipeline drives frames from an image or video through the detector
// and writes the annotated result.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"
	"yolodetector/internal/config"
	"yolodetector/internal/detect"
	"yolodetector/internal/logger"
	"yolodetector/internal/models"
	"yolodetector/internal/source"

	"gocv.io/x/gocv"
)

// Detector is the part of ai.DetectorService the pipeline uses.
type Detector interface {
	Detect(frame gocv.Mat) ([]detect.Detection, error)
	Annotate(frame *gocv.Mat, detections []detect.Detection) error
	EncodeJPEG(frame gocv.Mat) ([]byte, error)
}

// Recorder receives the detections of every frame.
type Recorder interface {
	Begin(run *models.Run) error
	Record(frame int, detections []detect.Detection) error
	End(frames int) error
}

// Broadcaster publishes encoded preview messages.
type Broadcaster interface {
	Broadcast(message []byte)
	GetClientCount() int
}

// Result describes a finished run.
type Result struct {
	Frames     int
	OutputPath string
	Stopped    bool // stopped by a key press or cancellation before end of stream
}

// Pipeline reads, detects, annotates and writes frames one at a time.
type Pipeline struct {
	config   *config.Config
	detector Detector
	logger   *logger.Logger
	recorder Recorder
	preview  Broadcaster
	out      io.Writer
}

// Option configures optional side outputs.
type Option func(*Pipeline)

// WithRecorder journals every frame's detections.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithPreview broadcasts every annotated frame.
func WithPreview(b Broadcaster) Option {
	return func(p *Pipeline) { p.preview = b }
}

// NewPipeline creates a Pipeline. Completion messages are written to out.
func NewPipeline(config *config.Config, detector Detector, logger *logger.Logger, out io.Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:   config,
		detector: detector,
		logger:   logger,
		out:      out,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// previewMessage is the JSON payload sent to preview viewers.
type previewMessage struct {
	Frame      int                `json:"frame"`
	Image      string             `json:"image"`
	Detections []previewDetection `json:"detections"`
}

type previewDetection struct {
	ClassID    int     `json:"class_id"`
	Confidence float32 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Run processes in until the stream ends, a key is pressed in the preview
// window or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, in source.Input) (Result, error) {
	capture, err := gocv.VideoCaptureFile(in.Path)
	if err != nil {
		capture.Close()
		return Result{}, fmt.Errorf("%w: %s: %v", source.ErrOpenFailed, in.Path, err)
	}
	defer capture.Close()

	var writer *gocv.VideoWriter
	if in.Kind == source.KindVideo {
		width := int(capture.Get(gocv.VideoCaptureFrameWidth))
		height := int(capture.Get(gocv.VideoCaptureFrameHeight))
		writer, err = gocv.VideoWriterFile(in.OutputPath, "MJPG", p.config.OutputFPS, width, height, true)
		if err != nil {
			if writer != nil {
				writer.Close()
			}
			return Result{}, fmt.Errorf("failed to open video writer %s: %w", in.OutputPath, err)
		}
		defer writer.Close()
	}

	var window *gocv.Window
	if p.config.ShowWindow {
		window = gocv.NewWindow(p.config.WindowName)
		defer window.Close()
	}

	recorder := p.recorder
	if recorder != nil {
		run := &models.Run{
			Input:     in.Path,
			Output:    in.OutputPath,
			Mode:      in.Kind.String(),
			Device:    p.config.Device,
			StartedAt: time.Now(),
		}
		if err := recorder.Begin(run); err != nil {
			p.logger.Warning("Journal disabled for this run: %v", err)
			recorder = nil
		}
	}

	frame := gocv.NewMat()
	defer frame.Close()
	detected := gocv.NewMat()
	defer detected.Close()

	result := Result{OutputPath: in.OutputPath}
	defer func() {
		if recorder != nil {
			if err := recorder.End(result.Frames); err != nil {
				p.logger.Error("Failed to close journal run: %v", err)
			}
		}
	}()

	for {
		if stopRequested(ctx, window) {
			p.logger.Info("Stopped after %d frames", result.Frames)
			result.Stopped = true
			return result, nil
		}

		if ok := capture.Read(&frame); !ok || frame.Empty() {
			fmt.Fprintln(p.out, "Done processing !!!")
			fmt.Fprintf(p.out, "Output file is stored as %s\n", in.OutputPath)
			if window != nil {
				window.WaitKey(3000)
			}
			return result, nil
		}
		result.Frames++

		if err := p.processFrame(&frame, &detected, in, result.Frames, writer, recorder); err != nil {
			return result, err
		}

		if window != nil {
			if err := window.IMShow(frame); err != nil {
				p.logger.Warning("Failed to show frame %d: %v", result.Frames, err)
			}
		}
	}
}

// stopRequested polls the window for a key press and ctx for cancellation.
func stopRequested(ctx context.Context, window *gocv.Window) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return window != nil && window.WaitKey(1) >= 0
}

func (p *Pipeline) processFrame(frame, detected *gocv.Mat, in source.Input, index int, writer *gocv.VideoWriter, recorder Recorder) error {
	detections, err := p.detector.Detect(*frame)
	if err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}

	if err := p.detector.Annotate(frame, detections); err != nil {
		return fmt.Errorf("frame %d: %w", index, err)
	}

	if err := frame.ConvertTo(detected, gocv.MatTypeCV8U); err != nil {
		return fmt.Errorf("frame %d: failed to convert: %w", index, err)
	}
	if in.Kind == source.KindImage {
		if ok := gocv.IMWrite(in.OutputPath, *detected); !ok {
			return fmt.Errorf("failed to write %s", in.OutputPath)
		}
	} else if err := writer.Write(*detected); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", index, err)
	}

	if recorder != nil {
		if err := recorder.Record(index, detections); err != nil {
			p.logger.Error("Failed to journal frame %d: %v", index, err)
		}
	}

	if p.preview != nil && p.preview.GetClientCount() > 0 {
		if msg, err := p.previewMessage(*detected, index, detections); err != nil {
			p.logger.Warning("Skipping preview of frame %d: %v", index, err)
		} else {
			p.preview.Broadcast(msg)
		}
	}

	return nil
}

func (p *Pipeline) previewMessage(frame gocv.Mat, index int, detections []detect.Detection) ([]byte, error) {
	jpeg, err := p.detector.EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	msg := previewMessage{
		Frame:      index,
		Image:      base64.StdEncoding.EncodeToString(jpeg),
		Detections: make([]previewDetection, 0, len(detections)),
	}
	for _, d := range detections {
		msg.Detections = append(msg.Detections, previewDetection{
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			X:          d.Box.Min.X,
			Y:          d.Box.Min.Y,
			Width:      d.Box.Dx(),
			Height:     d.Box.Dy(),
		})
	}
	return json.Marshal(msg)
}
