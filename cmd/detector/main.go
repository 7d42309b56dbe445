package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"yolodetector/internal/app"
	"yolodetector/internal/config"
	"yolodetector/internal/logger"
	"yolodetector/internal/services/ai"
	"yolodetector/internal/source"
)

const usage = `Usage: detector [flags]

Runs YOLO object detection on an image or a video file.

Flags:
  -image, -i    path to the input image
  -video, -v    path to the input video
  -device, -d   inference device: cpu or gpu (default %q)
  -classes      class names file (default %q)
  -cfg          network configuration file (default %q)
  -weights      network weights file (default %q)
  -help         show this message
`

func main() {
	cfg := config.Load()

	var imagePath, videoPath string
	flag.StringVar(&imagePath, "image", "", "path to the input image")
	flag.StringVar(&imagePath, "i", "", "path to the input image")
	flag.StringVar(&videoPath, "video", "", "path to the input video")
	flag.StringVar(&videoPath, "v", "", "path to the input video")
	flag.StringVar(&cfg.Device, "device", cfg.Device, "inference device: cpu or gpu")
	flag.StringVar(&cfg.Device, "d", cfg.Device, "inference device: cpu or gpu")
	flag.StringVar(&cfg.ClassesFile, "classes", cfg.ClassesFile, "class names file")
	flag.StringVar(&cfg.ModelConfiguration, "cfg", cfg.ModelConfiguration, "network configuration file")
	flag.StringVar(&cfg.ModelWeights, "weights", cfg.ModelWeights, "network weights file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage, cfg.Device, cfg.ClassesFile, cfg.ModelConfiguration, cfg.ModelWeights)
	}
	flag.Parse()

	os.Exit(run(cfg, imagePath, videoPath))
}

func run(cfg *config.Config, imagePath, videoPath string) int {
	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Printf("Failed to open log files: %v", err)
		return 1
	}
	defer appLogger.Close()

	switch cfg.Device {
	case ai.DeviceCPU:
		fmt.Println("Using CPU device")
	case ai.DeviceGPU:
		fmt.Println("Using GPU device")
	default:
		appLogger.Error("Unknown device %q, expected cpu or gpu", cfg.Device)
		return 2
	}

	input, err := source.Resolve(imagePath, videoPath, cfg.OutputSuffix)
	if err != nil {
		fmt.Println("Could not open the input image/video stream")
		appLogger.Error("Input: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(cfg, appLogger)
	if err != nil {
		appLogger.Error("%v", err)
		return 1
	}
	defer application.Close()

	if err := application.Run(ctx, input); err != nil {
		if source.IsInputError(err) {
			fmt.Println("Could not open the input image/video stream")
		}
		appLogger.Error("%v", err)
		return 1
	}
	return 0
}
