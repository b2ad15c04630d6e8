package postprocess

import (
	"testing"

	"github.com/ovdino/go-ovdino/preprocess"
)

// testTensors builds synthetic detector outputs for a 1000x500 source image
// resized with min side 800 / max side 1333.  The resizer scale for that
// geometry is 1.333 (500*1.6 would push the long side past 1333).
func testTensors() (boxes []float32, scores []float32, labels []int64,
	resizer *preprocess.Resizer) {

	resizer = preprocess.NewAspectResizer(1000, 500, 800, 1333)

	// boxes in resized image pixels, xyxy
	boxes = []float32{
		133.3, 133.3, 666.5, 533.2, // -> approx (100, 100, 500, 400)
		0, 0, 1333, 666.5, // full frame
		-20, -20, 2000, 2000, // exceeds frame, must clamp
	}
	scores = []float32{0.9, 0.6, 0.3}
	labels = []int64{0, 2, 1}

	return boxes, scores, labels, resizer
}

func TestDetectObjectsBoundsAndOrder(t *testing.T) {

	boxes, scores, labels, resizer := testTensors()
	defer resizer.Close()

	proc := NewOVDINO(OVDINODefaultParams())

	results := proc.DetectObjects(boxes, scores, labels, resizer, 0.1).
		GetDetectResults()

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// ordered by descending score
	for i := 1; i < len(results); i++ {
		if results[i].Probability > results[i-1].Probability {
			t.Errorf("results not ordered by score: %f after %f",
				results[i].Probability, results[i-1].Probability)
		}
	}

	// all boxes inside the original image bounds
	for i, res := range results {
		if res.Box.Left < 0 || res.Box.Top < 0 ||
			res.Box.Right > 1000 || res.Box.Bottom > 500 {
			t.Errorf("result %d box %+v outside original 1000x500 bounds",
				i, res.Box)
		}

		if res.Box.Left > res.Box.Right || res.Box.Top > res.Box.Bottom {
			t.Errorf("result %d box %+v is inverted", i, res.Box)
		}
	}

	// classes carried through from the labels tensor
	if results[0].Class != 0 || results[1].Class != 2 || results[2].Class != 1 {
		t.Errorf("classes not carried through, got %d, %d, %d",
			results[0].Class, results[1].Class, results[2].Class)
	}
}

func TestDetectObjectsRescale(t *testing.T) {

	boxes, scores, labels, resizer := testTensors()
	defer resizer.Close()

	proc := NewOVDINO(OVDINODefaultParams())

	results := proc.DetectObjects(boxes, scores, labels, resizer, 0.85).
		GetDetectResults()

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	box := results[0].Box

	// 133.3/1.333 is approx 100, 666.5/1.333 approx 500
	if box.Left < 99 || box.Left > 101 || box.Top < 99 || box.Top > 101 {
		t.Errorf("top left rescaled to (%d, %d), expected approx (100, 100)",
			box.Left, box.Top)
	}

	if box.Right < 499 || box.Right > 501 || box.Bottom < 399 || box.Bottom > 401 {
		t.Errorf("bottom right rescaled to (%d, %d), expected approx (500, 400)",
			box.Right, box.Bottom)
	}
}

func TestDetectObjectsThresholdMonotonic(t *testing.T) {

	boxes, scores, labels, resizer := testTensors()
	defer resizer.Close()

	proc := NewOVDINO(OVDINODefaultParams())

	prev := -1

	// lowering the threshold must never shrink the result set
	for _, thresh := range []float32{0.95, 0.7, 0.5, 0.2, 0.0} {
		n := len(proc.DetectObjects(boxes, scores, labels, resizer, thresh).
			GetDetectResults())

		if prev >= 0 && n < prev {
			t.Errorf("threshold %f returned %d results, fewer than %d at a higher threshold",
				thresh, n, prev)
		}

		prev = n
	}
}

func TestDetectObjectsMaxObjects(t *testing.T) {

	boxes, scores, labels, resizer := testTensors()
	defer resizer.Close()

	proc := NewOVDINO(OVDINOParams{MaxObjectNumber: 2})

	results := proc.DetectObjects(boxes, scores, labels, resizer, 0.0).
		GetDetectResults()

	if len(results) != 2 {
		t.Fatalf("expected results capped at 2, got %d", len(results))
	}

	// the cap keeps the highest scoring detections
	if results[0].Probability != 0.9 || results[1].Probability != 0.6 {
		t.Errorf("cap kept scores %f, %f, expected 0.9, 0.6",
			results[0].Probability, results[1].Probability)
	}
}

func TestDetectObjectsUniqueIDs(t *testing.T) {

	boxes, scores, labels, resizer := testTensors()
	defer resizer.Close()

	proc := NewOVDINO(OVDINODefaultParams())

	results := proc.DetectObjects(boxes, scores, labels, resizer, 0.0).
		GetDetectResults()

	seen := make(map[int64]bool)

	for _, res := range results {
		if seen[res.ID] {
			t.Errorf("duplicate detection ID %d", res.ID)
		}

		seen[res.ID] = true
	}
}
