// Package dataset prepares training data for the detector: frames sampled
// from videos and Pascal VOC annotations converted to YOLO label files.
package dataset

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"yolodetector/internal/detect"
)

// vocAnnotation is the subset of a Pascal VOC file the converter reads.
type vocAnnotation struct {
	Size struct {
		Width  int `xml:"width"`
		Height int `xml:"height"`
	} `xml:"size"`
	Objects []vocObject `xml:"object"`
}

type vocObject struct {
	Name      string `xml:"name"`
	Difficult int    `xml:"difficult"`
	Box       struct {
		XMin float64 `xml:"xmin"`
		YMin float64 `xml:"ymin"`
		XMax float64 `xml:"xmax"`
		YMax float64 `xml:"ymax"`
	} `xml:"bndbox"`
}

// Label is one line of a YOLO label file. Coordinates are relative to the
// image size.
type Label struct {
	ClassID int
	X       float64
	Y       float64
	Width   float64
	Height  float64
}

// String formats l as "<class> <x> <y> <w> <h>".
func (l Label) String() string {
	return fmt.Sprintf("%d %s %s %s %s", l.ClassID,
		formatFloat(l.X), formatFloat(l.Y), formatFloat(l.Width), formatFloat(l.Height))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ConvertVOC reads one Pascal VOC annotation and returns its YOLO labels.
// Objects marked difficult and objects whose name is not in classes are
// skipped. The center is taken as (min+max)/2 - 1 before normalizing.
func ConvertVOC(r io.Reader, classes detect.Labels) ([]Label, error) {
	var doc vocAnnotation
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse annotation: %w", err)
	}
	if doc.Size.Width <= 0 || doc.Size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", doc.Size.Width, doc.Size.Height)
	}

	width := float64(doc.Size.Width)
	height := float64(doc.Size.Height)

	labels := make([]Label, 0, len(doc.Objects))
	for _, obj := range doc.Objects {
		if obj.Difficult == 1 {
			continue
		}
		classID := classIndex(classes, strings.TrimSpace(obj.Name))
		if classID < 0 {
			continue
		}

		b := obj.Box
		labels = append(labels, Label{
			ClassID: classID,
			X:       ((b.XMin+b.XMax)/2 - 1) / width,
			Y:       ((b.YMin+b.YMax)/2 - 1) / height,
			Width:   (b.XMax - b.XMin) / width,
			Height:  (b.YMax - b.YMin) / height,
		})
	}
	return labels, nil
}

func classIndex(classes detect.Labels, name string) int {
	if name == "" {
		return -1
	}
	for i, c := range classes {
		if c == name {
			return i
		}
	}
	return -1
}

// ConvertVOCFile converts xmlPath and writes <stem>.txt into outputDir. The
// label file is written even when no object survives.
func ConvertVOCFile(xmlPath, outputDir string, classes detect.Labels) (string, int, error) {
	file, err := os.Open(xmlPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open annotation: %w", err)
	}
	defer file.Close()

	labels, err := ConvertVOC(file, classes)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", xmlPath, err)
	}

	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = l.String()
	}

	stem := strings.TrimSuffix(filepath.Base(xmlPath), filepath.Ext(xmlPath))
	outPath := filepath.Join(outputDir, stem+".txt")
	if err := os.WriteFile(outPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write labels: %w", err)
	}
	return outPath, len(labels), nil
}

// ConvertVOCDir converts every .xml file of inputDir into outputDir and
// returns the number of files written.
func ConvertVOCDir(inputDir, outputDir string, classes detect.Labels) (int, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read annotations directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	converted := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".xml" {
			continue
		}
		if _, _, err := ConvertVOCFile(filepath.Join(inputDir, entry.Name()), outputDir, classes); err != nil {
			return converted, err
		}
		converted++
	}
	return converted, nil
}
