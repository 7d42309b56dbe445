// Package detect turns raw YOLO output tensors into a deduplicated set of
// detections. It has no dependency on OpenCV so it can be exercised in
// isolation.
package detect

import "image"

// boxColumns is the number of leading columns in a YOLO output row that are
// not class scores: center x, center y, width, height and objectness.
const boxColumns = 5

// Detection is one object found in a frame.
type Detection struct {
	ClassID    int
	Confidence float32
	Box        image.Rectangle
}

// Tensor is a single network output layer copied out of the inference engine.
// Every row is one prediction cell laid out as
// [cx, cy, w, h, objectness, score_0, score_1, ...] with coordinates
// normalized to the frame size.
type Tensor struct {
	Rows int
	Cols int
	Data []float32
}

// Row returns the i-th prediction row.
func (t Tensor) Row(i int) []float32 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// Scan walks every row of every tensor and keeps the cells whose best class
// score is strictly greater than confThreshold. Boxes are converted from
// normalized center form to pixel rectangles relative to frame.
func Scan(tensors []Tensor, frame image.Point, confThreshold float32) []Detection {
	var detections []Detection

	for _, t := range tensors {
		if t.Cols <= boxColumns || len(t.Data) < t.Rows*t.Cols {
			continue
		}
		for i := 0; i < t.Rows; i++ {
			row := t.Row(i)
			classID, confidence := maxScore(row[boxColumns:])
			if confidence <= confThreshold {
				continue
			}

			centerX := int(row[0] * float32(frame.X))
			centerY := int(row[1] * float32(frame.Y))
			width := int(row[2] * float32(frame.X))
			height := int(row[3] * float32(frame.Y))
			left := centerX - width/2
			top := centerY - height/2

			detections = append(detections, Detection{
				ClassID:    classID,
				Confidence: confidence,
				Box:        image.Rect(left, top, left+width, top+height),
			})
		}
	}

	return detections
}

// maxScore returns the index and value of the largest score. The first
// occurrence wins on ties.
func maxScore(scores []float32) (int, float32) {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best, scores[best]
}
