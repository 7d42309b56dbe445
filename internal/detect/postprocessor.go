package detect

import "image"

// Postprocessor filters or modifies the detections of one frame.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter drops detections whose confidence is not strictly above conf.
func NewScoreFilter(conf float32) Postprocessor {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Confidence > conf {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewNMSFilter wraps NMS as a Postprocessor.
func NewNMSFilter(conf, nms float32) Postprocessor {
	return func(in []Detection) []Detection {
		return NMS(in, conf, nms)
	}
}

// Chain runs the given postprocessors in order.
func Chain(steps ...Postprocessor) Postprocessor {
	return func(in []Detection) []Detection {
		out := in
		for _, step := range steps {
			if step == nil {
				continue
			}
			out = step(out)
		}
		return out
	}
}

// Thresholds groups the two cut-offs used by the post-processor.
type Thresholds struct {
	Confidence float32
	NMS        float32
}

// DefaultThresholds returns the reference configuration: 0.5 confidence and
// 0.4 IoU.
func DefaultThresholds() Thresholds {
	return Thresholds{Confidence: 0.5, NMS: 0.4}
}

// PostProcessor converts the raw outputs of one forward pass into the final
// set of detections to render.
type PostProcessor struct {
	thresholds Thresholds
	pipeline   Postprocessor
}

// NewPostProcessor builds a PostProcessor: score filter, then NMS, then the
// extra steps.
func NewPostProcessor(thresholds Thresholds, extra ...Postprocessor) *PostProcessor {
	steps := append([]Postprocessor{
		NewScoreFilter(thresholds.Confidence),
		NewNMSFilter(thresholds.Confidence, thresholds.NMS),
	}, extra...)
	return &PostProcessor{
		thresholds: thresholds,
		pipeline:   Chain(steps...),
	}
}

// Thresholds returns the configured cut-offs.
func (p *PostProcessor) Thresholds() Thresholds {
	return p.thresholds
}

// Process scans the tensors for candidates and deduplicates them.
func (p *PostProcessor) Process(tensors []Tensor, frame image.Point) []Detection {
	return p.Filter(Scan(tensors, frame, p.thresholds.Confidence))
}

// Filter runs the chain on candidates that were not produced by Scan, such as
// detections read back from another source.
func (p *PostProcessor) Filter(candidates []Detection) []Detection {
	return p.pipeline(candidates)
}
