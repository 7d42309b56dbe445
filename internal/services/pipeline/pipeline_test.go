package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"yolodetector/internal/config"
	"yolodetector/internal/detect"
	"yolodetector/internal/logger"
	"yolodetector/internal/models"
	"yolodetector/internal/source"

	"gocv.io/x/gocv"
)

// ========================================
// Fakes
// ========================================

type fakeDetector struct {
	detections []detect.Detection
	detected   int
	annotated  int
}

func (f *fakeDetector) Detect(frame gocv.Mat) ([]detect.Detection, error) {
	f.detected++
	return f.detections, nil
}

func (f *fakeDetector) Annotate(frame *gocv.Mat, detections []detect.Detection) error {
	f.annotated++
	return nil
}

func (f *fakeDetector) EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	return []byte("jpeg"), nil
}

type fakeRecorder struct {
	begun     bool
	frames    map[int]int
	endedWith int
	ended     bool
}

func (f *fakeRecorder) Begin(run *models.Run) error {
	f.begun = true
	f.frames = make(map[int]int)
	return nil
}

func (f *fakeRecorder) Record(frame int, detections []detect.Detection) error {
	f.frames[frame] = len(detections)
	return nil
}

func (f *fakeRecorder) End(frames int) error {
	f.ended = true
	f.endedWith = frames
	return nil
}

// flakyRecorder fails Begin the given number of times.
type flakyRecorder struct {
	failures int
	recorded int
	ended    bool
}

func (f *flakyRecorder) Begin(run *models.Run) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("journal unavailable")
	}
	return nil
}

func (f *flakyRecorder) Record(frame int, detections []detect.Detection) error {
	f.recorded++
	return nil
}

func (f *flakyRecorder) End(frames int) error {
	f.ended = true
	return nil
}

type fakePreview struct {
	clients  int
	messages [][]byte
}

func (f *fakePreview) Broadcast(message []byte) {
	f.messages = append(f.messages, message)
}

func (f *fakePreview) GetClientCount() int {
	return f.clients
}

// ========================================
// Helpers
// ========================================

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	path := filepath.Join(t.TempDir(), "street.jpg")
	if ok := gocv.IMWrite(path, mat); !ok {
		t.Fatalf("Failed to write test image %s", path)
	}
	return path
}

func writeTestClip(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")

	writer, err := gocv.VideoWriterFile(path, "MJPG", 28, 64, 48, true)
	if err != nil {
		t.Fatalf("Failed to open test clip writer: %v", err)
	}
	defer writer.Close()

	for i := 0; i < frames; i++ {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(40*i), 80, 160, 0), 48, 64, gocv.MatTypeCV8UC3)
		err := writer.Write(mat)
		mat.Close()
		if err != nil {
			t.Fatalf("Failed to write test clip frame %d: %v", i, err)
		}
	}
	return path
}

func testConfig() *config.Config {
	return &config.Config{OutputFPS: 28, ShowWindow: false}
}

var oneDetection = []detect.Detection{
	{ClassID: 1, Confidence: 0.8, Box: image.Rect(4, 6, 24, 30)},
}

// ========================================
// Run Tests
// ========================================

func TestRun_ImageWritesOutput(t *testing.T) {
	path := writeTestImage(t)
	in, err := source.Resolve(path, "", source.DefaultSuffix)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	det := &fakeDetector{detections: oneDetection}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	p := NewPipeline(testConfig(), det, newTestLogger(t), &out, WithRecorder(rec))
	result, err := p.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Frames != 1 || result.Stopped {
		t.Errorf("Expected one frame and a natural end, got %+v", result)
	}
	if det.detected != 1 || det.annotated != 1 {
		t.Errorf("Expected one detect and one annotate call, got %d and %d", det.detected, det.annotated)
	}
	if _, err := os.Stat(in.OutputPath); err != nil {
		t.Errorf("Output image not written: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, "Done processing !!!") {
		t.Errorf("Missing completion message in %q", text)
	}
	if !strings.Contains(text, "Output file is stored as "+in.OutputPath) {
		t.Errorf("Missing output path in %q", text)
	}

	if !rec.begun || !rec.ended || rec.endedWith != 1 {
		t.Errorf("Recorder not driven through a full run: %+v", rec)
	}
	if rec.frames[1] != 1 {
		t.Errorf("Expected frame 1 with one detection, got %v", rec.frames)
	}
}

func TestRun_VideoWritesEveryFrame(t *testing.T) {
	const frames = 3
	path := writeTestClip(t, frames)
	in, err := source.Resolve("", path, source.DefaultSuffix)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(in.OutputPath) != "clip_yolo_out.avi" {
		t.Fatalf("Unexpected output path %s", in.OutputPath)
	}

	det := &fakeDetector{detections: oneDetection}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	result, err := NewPipeline(testConfig(), det, newTestLogger(t), &out, WithRecorder(rec)).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Frames != frames || result.Stopped {
		t.Errorf("Expected %d frames and a natural end, got %+v", frames, result)
	}
	if det.detected != frames || det.annotated != frames {
		t.Errorf("Expected %d detect and annotate calls, got %d and %d", frames, det.detected, det.annotated)
	}

	info, err := os.Stat(in.OutputPath)
	if err != nil {
		t.Fatalf("Output video not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Output video is empty")
	}

	for i := 1; i <= frames; i++ {
		if n, ok := rec.frames[i]; !ok || n != 1 {
			t.Errorf("Expected frame %d recorded with one detection, got %v", i, rec.frames)
		}
	}
	if len(rec.frames) != frames || rec.endedWith != frames {
		t.Errorf("Recorder saw %d frames and ended with %d, expected %d", len(rec.frames), rec.endedWith, frames)
	}
	if !strings.Contains(out.String(), "Output file is stored as "+in.OutputPath) {
		t.Errorf("Missing output path in %q", out.String())
	}
}

func TestRun_RecorderBeginFailureOnlyAffectsOneRun(t *testing.T) {
	path := writeTestImage(t)
	in, err := source.Resolve(path, "", source.DefaultSuffix)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	rec := &flakyRecorder{failures: 1}
	p := NewPipeline(testConfig(), &fakeDetector{detections: oneDetection}, newTestLogger(t), io.Discard, WithRecorder(rec))

	if _, err := p.Run(context.Background(), in); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if rec.recorded != 0 || rec.ended {
		t.Fatalf("Recorder must be skipped after a failed Begin: %+v", rec)
	}

	if _, err := p.Run(context.Background(), in); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if rec.recorded != 1 || !rec.ended {
		t.Errorf("Expected the second run to be journaled: %+v", rec)
	}
}

func TestRun_CancelledBeforeFirstFrame(t *testing.T) {
	path := writeTestImage(t)
	in, err := source.Resolve(path, "", source.DefaultSuffix)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	det := &fakeDetector{}
	rec := &fakeRecorder{}
	var out bytes.Buffer

	result, err := NewPipeline(testConfig(), det, newTestLogger(t), &out, WithRecorder(rec)).Run(ctx, in)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Stopped || result.Frames != 0 {
		t.Errorf("Expected a stop before any frame, got %+v", result)
	}
	if det.detected != 0 {
		t.Error("Detector must not run after cancellation")
	}
	if out.Len() != 0 {
		t.Errorf("Completion messages are only printed at end of stream, got %q", out.String())
	}
	if !rec.ended || rec.endedWith != 0 {
		t.Errorf("Recorder must be closed with zero frames: %+v", rec)
	}
}

func TestRun_OpenFailure(t *testing.T) {
	in := source.Input{
		Kind:       source.KindVideo,
		Path:       filepath.Join(t.TempDir(), "missing.avi"),
		OutputPath: filepath.Join(t.TempDir(), "missing_yolo_out.avi"),
	}

	_, err := NewPipeline(testConfig(), &fakeDetector{}, newTestLogger(t), io.Discard).Run(context.Background(), in)
	if !errors.Is(err, source.ErrOpenFailed) {
		t.Errorf("Expected ErrOpenFailed, got %v", err)
	}
}

func TestRun_PreviewOnlyWithClients(t *testing.T) {
	path := writeTestImage(t)
	in, err := source.Resolve(path, "", source.DefaultSuffix)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	preview := &fakePreview{}
	p := NewPipeline(testConfig(), &fakeDetector{detections: oneDetection}, newTestLogger(t), io.Discard, WithPreview(preview))
	if _, err := p.Run(context.Background(), in); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(preview.messages) != 0 {
		t.Errorf("Expected no broadcast without viewers, got %d", len(preview.messages))
	}

	preview.clients = 1
	if _, err := p.Run(context.Background(), in); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(preview.messages) != 1 {
		t.Fatalf("Expected one broadcast, got %d", len(preview.messages))
	}
}

// ========================================
// Preview Message Tests
// ========================================

func TestPreviewMessage(t *testing.T) {
	p := NewPipeline(testConfig(), &fakeDetector{}, newTestLogger(t), io.Discard)

	frame := gocv.NewMat()
	defer frame.Close()

	data, err := p.previewMessage(frame, 7, oneDetection)
	if err != nil {
		t.Fatalf("previewMessage failed: %v", err)
	}

	var msg previewMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}

	if msg.Frame != 7 {
		t.Errorf("Expected frame 7, got %d", msg.Frame)
	}
	if msg.Image != base64.StdEncoding.EncodeToString([]byte("jpeg")) {
		t.Errorf("Unexpected image payload %q", msg.Image)
	}
	if len(msg.Detections) != 1 {
		t.Fatalf("Expected one detection, got %d", len(msg.Detections))
	}
	d := msg.Detections[0]
	if d.X != 4 || d.Y != 6 || d.Width != 20 || d.Height != 24 || d.ClassID != 1 {
		t.Errorf("Unexpected detection %+v", d)
	}
}
