package postprocess

import (
	"sort"

	"github.com/ovdino/go-ovdino/postprocess/result"
	"github.com/ovdino/go-ovdino/preprocess"
)

// OVDINO defines the struct for the open vocabulary detector inference post
// processing
type OVDINO struct {
	// Params are the Model configuration parameters
	Params OVDINOParams
	// idGen is a counter that increments and provides the next number
	// for each detection result ID
	idGen *result.IDGenerator
}

// OVDINOParams defines the struct containing the OVDINO parameters to use
// for post processing operations
type OVDINOParams struct {
	// MaxObjectNumber is the maximum number of objects detected that can be
	// returned
	MaxObjectNumber int
}

// OVDINODefaultParams returns the default parameters matching the reference
// OV-DINO export, which emits up to 300 query results per image
func OVDINODefaultParams() OVDINOParams {
	return OVDINOParams{
		MaxObjectNumber: 300,
	}
}

// NewOVDINO returns an instance of the OVDINO post processor
func NewOVDINO(p OVDINOParams) *OVDINO {
	return &OVDINO{
		Params: p,
		idGen:  result.NewIDGenerator(),
	}
}

// OVDINOResult defines a struct used for the detection results
type OVDINOResult struct {
	DetectResults []DetectResult
}

// GetDetectResults returns the object detection results
func (r OVDINOResult) GetDetectResults() []DetectResult {
	return r.DetectResults
}

// DetectObjects decodes the boxes, scores and labels output tensors into
// detect results in original image coordinates.  boxes are flattened xyxy
// values in resized image pixels, one row of four per score.  Detections
// scoring below scoreThreshold are pruned before being returned and the
// survivors are ordered by descending score, so lowering the threshold can
// only grow the result set.
func (o *OVDINO) DetectObjects(boxes []float32, scores []float32,
	labels []int64, resizer *preprocess.Resizer,
	scoreThreshold float32) DetectionResult {

	count := len(scores)

	if len(boxes)/4 < count {
		count = len(boxes) / 4
	}

	if len(labels) < count {
		count = len(labels)
	}

	// order indices by descending score
	order := make([]int, count)

	for i := range order {
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	scale := resizer.ScaleFactor()
	maxW := resizer.SrcWidth()
	maxH := resizer.SrcHeight()

	group := make([]DetectResult, 0, count)

	for _, i := range order {

		if scores[i] < scoreThreshold {
			continue
		}

		if len(group) >= o.Params.MaxObjectNumber {
			break
		}

		// map the box back to original image coordinates and clamp it to
		// the image bounds
		x1 := boxes[i*4+0] / scale
		y1 := boxes[i*4+1] / scale
		x2 := boxes[i*4+2] / scale
		y2 := boxes[i*4+3] / scale

		group = append(group, DetectResult{
			Class: int(labels[i]),
			Box: BoxRect{
				Left:   int(clamp(x1, 0, maxW)),
				Top:    int(clamp(y1, 0, maxH)),
				Right:  int(clamp(x2, 0, maxW)),
				Bottom: int(clamp(y2, 0, maxH)),
			},
			Probability: scores[i],
			ID:          o.idGen.GetNext(),
		})
	}

	return OVDINOResult{DetectResults: group}
}
