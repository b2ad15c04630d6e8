package postprocess

import (
	"sync"
	"testing"

	"github.com/ovdino/go-ovdino/preprocess"
)

// testSAM returns a post processor with reduced mask geometry so test
// fixtures stay small, a 4x4 logit plane upscaled through an 8x8 model input
func testSAM() *SAM {
	return NewSAM(SAMParams{
		InputSize: 8,
		MaskSize:  4,
	})
}

// quadrantLogits returns a 4x4 logit plane with the top left 2x2 quadrant
// positive and everything else negative
func quadrantLogits() []float32 {
	logits := make([]float32, 16)

	for i := range logits {
		logits[i] = -4
	}

	logits[0], logits[1] = 4, 4
	logits[4], logits[5] = 4, 4

	return logits
}

func TestSegmentMaskPicksBestCandidate(t *testing.T) {

	proc := testSAM()

	resizer := preprocess.NewResizer(8, 8, 8, 8)
	defer resizer.Close()

	// candidate 0 is empty, candidate 1 holds the object, the predicted
	// IoU must select candidate 1
	masks := make([]float32, 0, 32)
	empty := make([]float32, 16)

	for i := range empty {
		empty[i] = -4
	}

	masks = append(masks, empty...)
	masks = append(masks, quadrantLogits()...)

	ious := []float32{0.2, 0.9}

	segMask := proc.SegmentMask(masks, ious, 1, resizer)

	if segMask.Width != 8 || segMask.Height != 8 {
		t.Fatalf("mask dimensions %dx%d, expected 8x8",
			segMask.Width, segMask.Height)
	}

	if segMask.Mask[0] != 1 {
		t.Errorf("top left pixel is %d, expected object 1", segMask.Mask[0])
	}

	if segMask.Mask[7*8+7] != 0 {
		t.Errorf("bottom right pixel is %d, expected background",
			segMask.Mask[7*8+7])
	}
}

func TestSegmentMaskOverlapKeepsFirstObject(t *testing.T) {

	proc := testSAM()

	resizer := preprocess.NewResizer(8, 8, 8, 8)
	defer resizer.Close()

	// two boxes with one candidate each, both covering the same quadrant
	masks := append(quadrantLogits(), quadrantLogits()...)
	ious := []float32{0.9, 0.9}

	segMask := proc.SegmentMask(masks, ious, 2, resizer)

	if segMask.Mask[0] != 1 {
		t.Errorf("overlap pixel is %d, expected first object 1", segMask.Mask[0])
	}

	for _, v := range segMask.Mask {
		if v == 2 {
			t.Fatalf("second object painted over the first")
		}
	}
}

func TestSegmentMaskObjectIDCap(t *testing.T) {

	proc := testSAM()

	resizer := preprocess.NewResizer(8, 8, 8, 8)
	defer resizer.Close()

	// 300 boxes with one candidate each, all empty except box 0 and box
	// index 256, whose one based object id does not fit a uint8 and would
	// wrap onto object 1
	const boxes = 300

	masks := make([]float32, boxes*16)

	for i := range masks {
		masks[i] = -4
	}

	copy(masks[:16], quadrantLogits())

	for i := 256 * 16; i < 257*16; i++ {
		masks[i] = 4
	}

	segMask := proc.SegmentMask(masks, make([]float32, boxes), boxes, resizer)

	if segMask.Mask[0] != 1 {
		t.Errorf("top left pixel is %d, expected object 1", segMask.Mask[0])
	}

	// the out of range box must stay unpainted instead of stamping object 1
	// over the rest of the frame
	if segMask.Mask[7*8+7] != 0 {
		t.Errorf("bottom right pixel is %d, expected background",
			segMask.Mask[7*8+7])
	}
}

func TestSegmentMaskConcurrent(t *testing.T) {

	proc := testSAM()

	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			resizer := preprocess.NewResizer(8, 8, 8, 8)
			defer resizer.Close()

			segMask := proc.SegmentMask(quadrantLogits(), []float32{0.9}, 1,
				resizer)

			if segMask.Mask[0] != 1 {
				t.Errorf("top left pixel is %d, expected object 1",
					segMask.Mask[0])
			}
		}()
	}

	wg.Wait()
}

func TestSegmentMaskNoBoxes(t *testing.T) {

	proc := testSAM()

	resizer := preprocess.NewResizer(8, 8, 8, 8)
	defer resizer.Close()

	segMask := proc.SegmentMask(nil, nil, 0, resizer)

	if len(segMask.Mask) != 64 {
		t.Fatalf("mask length %d, expected 64", len(segMask.Mask))
	}

	for _, v := range segMask.Mask {
		if v != 0 {
			t.Fatalf("empty request produced a non empty mask")
		}
	}
}
