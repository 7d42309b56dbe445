package ai

import (
	"fmt"
	"image"
	"os"
	"time"
	"yolodetector/internal/detect"

	"gocv.io/x/gocv"
)

// Compute devices accepted on the command line.
const (
	DeviceCPU = "cpu"
	DeviceGPU = "gpu"
)

// BackendFor maps a device name to the DNN backend and target.
func BackendFor(device string) (gocv.NetBackendType, gocv.NetTargetType, error) {
	switch device {
	case "", DeviceCPU:
		return gocv.NetBackendDefault, gocv.NetTargetCPU, nil
	case DeviceGPU:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA, nil
	default:
		return 0, 0, fmt.Errorf("unknown device %q (expected %q or %q)", device, DeviceCPU, DeviceGPU)
	}
}

// Network is a Darknet model loaded into OpenCV's DNN module. The names of
// the output layers are resolved once when the network is loaded.
type Network struct {
	net         gocv.Net
	outputNames []string
	inputSize   image.Point
}

// NewNetwork loads the Darknet topology and weights and selects the compute
// device.
func NewNetwork(configPath, weightsPath, device string, inputSize image.Point) (*Network, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("model configuration not readable: %w", err)
	}
	if _, err := os.Stat(weightsPath); err != nil {
		return nil, fmt.Errorf("model weights not readable: %w", err)
	}

	backend, target, err := BackendFor(device)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to load network from %s and %s", configPath, weightsPath)
	}

	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable target: %w", err)
	}

	return &Network{
		net:         net,
		outputNames: outputLayerNames(&net),
		inputSize:   inputSize,
	}, nil
}

// outputLayerNames returns the names of the layers with unconnected outputs.
func outputLayerNames(net *gocv.Net) []string {
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		name := layer.GetName()
		layer.Close()
		if name != "_input" {
			names = append(names, name)
		}
	}
	return names
}

// OutputNames returns the cached output layer names.
func (n *Network) OutputNames() []string {
	return n.outputNames
}

// Forward runs one frame through the network and copies every output layer
// into a detect.Tensor. The frame is scaled to [0,1], resized to the input
// size and converted from BGR to RGB.
func (n *Network) Forward(frame gocv.Mat) ([]detect.Tensor, error) {
	blob := gocv.BlobFromImage(frame, 1.0/255.0, n.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")

	outputs := n.net.ForwardLayers(n.outputNames)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	tensors := make([]detect.Tensor, 0, len(outputs))
	for _, out := range outputs {
		tensor, err := toTensor(out)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, tensor)
	}
	return tensors, nil
}

func toTensor(m gocv.Mat) (detect.Tensor, error) {
	if m.Empty() {
		return detect.Tensor{}, nil
	}

	data, err := m.DataPtrFloat32()
	if err != nil {
		return detect.Tensor{}, fmt.Errorf("failed to read output layer: %w", err)
	}

	rows, cols := m.Rows(), m.Cols()
	copied := make([]float32, rows*cols)
	copy(copied, data)

	return detect.Tensor{Rows: rows, Cols: cols, Data: copied}, nil
}

// InferenceTime returns the time spent in the last forward pass.
func (n *Network) InferenceTime() time.Duration {
	ticks := n.net.GetPerfProfile()
	ms := ticks / (gocv.GetTickFrequency() / 1000)
	return time.Duration(ms * float64(time.Millisecond))
}

// Close releases the network.
func (n *Network) Close() error {
	return n.net.Close()
}
