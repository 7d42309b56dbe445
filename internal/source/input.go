// Package source resolves which image or video the detector should read and
// where the annotated result goes.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind tells image inputs apart from video inputs.
type Kind int

const (
	KindImage Kind = iota + 1
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

var (
	// ErrNoInput is returned when neither an image nor a video was given.
	ErrNoInput = errors.New("no input image or video specified")
	// ErrInputNotFound is returned when the given path cannot be read.
	ErrInputNotFound = errors.New("input file not readable")
	// ErrOpenFailed is returned when the capture backend rejects the file.
	ErrOpenFailed = errors.New("failed to open input stream")
)

// DefaultSuffix is appended to the input stem to build the output name.
const DefaultSuffix = "_yolo_out"

// Input is a resolved input together with its output path.
type Input struct {
	Kind       Kind
	Path       string
	OutputPath string
}

// Resolve picks the input from the image and video arguments, the image
// taking precedence. It checks that the file can be opened for reading and
// derives the output path: <stem><suffix>.jpg for images and
// <stem><suffix>.avi for videos.
func Resolve(imagePath, videoPath, suffix string) (Input, error) {
	if suffix == "" {
		suffix = DefaultSuffix
	}

	var in Input
	switch {
	case imagePath != "":
		in = Input{Kind: KindImage, Path: imagePath, OutputPath: OutputPath(imagePath, suffix, ".jpg")}
	case videoPath != "":
		in = Input{Kind: KindVideo, Path: videoPath, OutputPath: OutputPath(videoPath, suffix, ".avi")}
	default:
		return Input{}, ErrNoInput
	}

	file, err := os.Open(in.Path)
	if err != nil {
		return Input{}, fmt.Errorf("%w: %s: %v", ErrInputNotFound, in.Path, err)
	}
	file.Close()

	return in, nil
}

// OutputPath replaces the extension of path with suffix+ext.
func OutputPath(path, suffix, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix + ext
}

// IsInputError reports whether err means the input could not be read.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoInput) || errors.Is(err, ErrInputNotFound) || errors.Is(err, ErrOpenFailed)
}
