package detect

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strings"
)

// Labels is the ordered class-name table indexed by class ID.
type Labels []string

// ReadLabels reads one class name per line.
func ReadLabels(r io.Reader) (Labels, error) {
	var labels Labels
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		labels = append(labels, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	return labels, nil
}

// LoadLabels reads the class-name file at path.
func LoadLabels(path string) (Labels, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class names %s: %w", path, err)
	}
	defer file.Close()

	return ReadLabels(file)
}

// Text returns the caption drawn above a detection: "name:0.87", or just the
// confidence when the table is empty. A class ID outside the table is a
// configuration error and panics.
func (l Labels) Text(d Detection) string {
	text := fmt.Sprintf("%.2f", d.Confidence)
	if len(l) == 0 {
		return text
	}
	if d.ClassID < 0 || d.ClassID >= len(l) {
		panic(fmt.Sprintf("detect: class index %d out of range for %d class names", d.ClassID, len(l)))
	}
	return l[d.ClassID] + ":" + text
}

// PlaceLabel computes where the caption of box goes given the rendered text
// size and baseline. The text origin is never above textSize.Y so the caption
// stays inside the frame; the background is 1.5 times the text size.
func PlaceLabel(box image.Rectangle, textSize image.Point, baseline int) (origin image.Point, background image.Rectangle) {
	top := max(box.Min.Y, textSize.Y)
	left := box.Min.X

	background = image.Rect(
		left,
		top-int(math.Round(1.5*float64(textSize.Y))),
		left+int(math.Round(1.5*float64(textSize.X))),
		top+baseline,
	)
	return image.Pt(left, top), background
}
