package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every setting of the detector. Environment variables (and an
// optional .env file) provide defaults; command-line flags override them.
type Config struct {
	ClassesFile        string
	ModelConfiguration string
	ModelWeights       string
	Device             string // "cpu" or "gpu"

	ConfThreshold float64
	NMSThreshold  float64
	InputWidth    int
	InputHeight   int

	OutputFPS    float64
	OutputSuffix string
	ShowWindow   bool
	WindowName   string

	LogDirectory string
	JournalPath  string // empty disables the detection journal
	JournalFlush int    // frames per journal transaction
	PreviewPort  int    // 0 disables the browser preview
	PreviewToken string // empty leaves the preview open
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		ClassesFile:        getEnv("CLASSES_FILE", "classes.names"),
		ModelConfiguration: getEnv("MODEL_CONFIG", "yolov3_custom.cfg"),
		ModelWeights:       getEnv("MODEL_WEIGHTS", "yolov3-custom_last.weights"),
		Device:             getEnv("DEVICE", "cpu"),
		ConfThreshold:      getEnvAsFloat("CONF_THRESHOLD", 0.5),
		NMSThreshold:       getEnvAsFloat("NMS_THRESHOLD", 0.4),
		InputWidth:         getEnvAsInt("INPUT_WIDTH", 416),
		InputHeight:        getEnvAsInt("INPUT_HEIGHT", 416),
		OutputFPS:          getEnvAsFloat("OUTPUT_FPS", 28),
		OutputSuffix:       getEnv("OUTPUT_SUFFIX", "_yolo_out"),
		ShowWindow:         getEnvAsBool("SHOW_WINDOW", true),
		WindowName:         getEnv("WINDOW_NAME", "Deep learning object detection in OpenCV"),
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
		JournalPath:        getEnv("JOURNAL_PATH", ""),
		JournalFlush:       getEnvAsInt("JOURNAL_FLUSH_FRAMES", 30),
		PreviewPort:        getEnvAsInt("PREVIEW_PORT", 0),
		PreviewToken:       getEnv("PREVIEW_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
