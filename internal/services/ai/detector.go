package ai

import (
	"fmt"
	"image"
	"yolodetector/internal/config"
	"yolodetector/internal/detect"
	"yolodetector/internal/logger"

	"gocv.io/x/gocv"
)

// DetectorService runs the network on frames, post-processes the raw output
// and annotates the frame.
type DetectorService struct {
	network  *Network
	post     *detect.PostProcessor
	renderer *Renderer
	logger   *logger.Logger
}

// NewDetectorService loads the network described by config.
func NewDetectorService(config *config.Config, labels detect.Labels, logger *logger.Logger) (*DetectorService, error) {
	network, err := NewNetwork(
		config.ModelConfiguration,
		config.ModelWeights,
		config.Device,
		image.Pt(config.InputWidth, config.InputHeight),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Detection network loaded on %s, output layers %v", config.Device, network.OutputNames())

	thresholds := detect.Thresholds{
		Confidence: float32(config.ConfThreshold),
		NMS:        float32(config.NMSThreshold),
	}
	return &DetectorService{
		network:  network,
		post:     detect.NewPostProcessor(thresholds),
		renderer: NewRenderer(labels),
		logger:   logger,
	}, nil
}

// Detect returns the deduplicated detections of frame.
func (s *DetectorService) Detect(frame gocv.Mat) ([]detect.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	tensors, err := s.network.Forward(frame)
	if err != nil {
		return nil, err
	}

	return s.post.Process(tensors, image.Pt(frame.Cols(), frame.Rows())), nil
}

// Annotate draws detections and the timing of the last forward pass.
func (s *DetectorService) Annotate(frame *gocv.Mat, detections []detect.Detection) error {
	for _, d := range detections {
		if err := s.renderer.DrawDetection(frame, d); err != nil {
			return err
		}
	}
	return s.renderer.DrawTiming(frame, s.network.InferenceTime())
}

// EncodeJPEG encodes frame as a JPEG buffer.
func (s *DetectorService) EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	defer buf.Close()

	encoded := make([]byte, len(buf.GetBytes()))
	copy(encoded, buf.GetBytes())
	return encoded, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	return s.network.Close()
}
