package ovdino

import (
	"fmt"
	"image/color"

	"github.com/ovdino/go-ovdino/postprocess"
	"github.com/ovdino/go-ovdino/preprocess"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Segmenter runs the box prompted segmentation model that refines detection
// boxes into pixel masks.  It is optional, a nil Segmenter means the process
// was started without a segmentation model.
type Segmenter struct {
	pool *Pool
	proc *postprocess.SAM
}

// NewSegmenter loads the segmentation model and opens a single session for it
func NewSegmenter(modelFile string) (*Segmenter, error) {

	pool, err := NewPool(1, modelFile)

	if err != nil {
		return nil, fmt.Errorf("error creating segmenter pool: %w", err)
	}

	return &Segmenter{
		pool: pool,
		proc: postprocess.NewSAM(postprocess.SAMDefaultParams()),
	}, nil
}

// Close releases the segmenter session
func (s *Segmenter) Close() {
	s.pool.Close()
}

// Available reports whether a segmentation model is loaded.  It is safe to
// call on a nil Segmenter.
func (s *Segmenter) Available() bool {
	return s != nil
}

// Segment prompts the segmentation model with the detection boxes and
// returns an indexed mask in original image coordinates.  A mask pixel value
// is the detection result index plus one, zero is background.  Detections
// are never added or removed, an empty result list yields an all background
// mask without running the model.
func (s *Segmenter) Segment(img gocv.Mat,
	results []postprocess.DetectResult) (*postprocess.SegMask, error) {

	if img.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	inputSize := s.proc.Params.InputSize

	resizer := preprocess.NewResizer(img.Cols(), img.Rows(),
		inputSize, inputSize)
	defer resizer.Close()

	if len(results) == 0 {
		mask := s.proc.SegmentMask(nil, nil, 0, resizer)
		return &mask, nil
	}

	imgTensor, err := s.imageTensor(img, resizer)

	if err != nil {
		return nil, err
	}

	defer imgTensor.Destroy()

	boxTensor, err := boxTensor(results, resizer)

	if err != nil {
		return nil, err
	}

	defer boxTensor.Destroy()

	rt := s.pool.Get()

	outputs, err := rt.Inference([]ort.Value{imgTensor, boxTensor})
	s.pool.Return(rt)

	if err != nil {
		return nil, fmt.Errorf("segmenter inference failed: %w", err)
	}

	defer outputs.Free()

	masks, _, err := outputs.Float32(0)

	if err != nil {
		return nil, fmt.Errorf("error reading masks output: %w", err)
	}

	ious, _, err := outputs.Float32(1)

	if err != nil {
		return nil, fmt.Errorf("error reading iou predictions output: %w", err)
	}

	mask := s.proc.SegmentMask(masks, ious, len(results), resizer)

	return &mask, nil
}

// imageTensor letterboxes and normalizes the BGR input image into an NCHW
// float32 tensor at the model input size
func (s *Segmenter) imageTensor(img gocv.Mat,
	resizer *preprocess.Resizer) (*ort.Tensor[float32], error) {

	boxed := gocv.NewMat()
	defer boxed.Close()

	resizer.LetterBoxResize(img, &boxed, color.RGBA{A: 255})

	gocv.CvtColor(boxed, &boxed, gocv.ColorBGRToRGB)
	boxed.ConvertTo(&boxed, gocv.MatTypeCV32FC3)

	pixels, err := boxed.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing image data: %w", err)
	}

	size := s.proc.Params.InputSize
	plane := size * size

	data := make([]float32, 3*plane)

	for i := 0; i < plane; i++ {
		for c := 0; c < 3; c++ {
			data[c*plane+i] = (pixels[i*3+c] - pixelMean[c]) / pixelStd[c]
		}
	}

	tensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)),
		data)

	if err != nil {
		return nil, fmt.Errorf("error creating image tensor: %w", err)
	}

	return tensor, nil
}

// boxTensor transforms the detection boxes from original image coordinates
// into the letterboxed model input space
func boxTensor(results []postprocess.DetectResult,
	resizer *preprocess.Resizer) (*ort.Tensor[float32], error) {

	scale := resizer.ScaleFactor()
	xPad := float32(resizer.XPad())
	yPad := float32(resizer.YPad())

	data := make([]float32, 0, len(results)*4)

	for _, res := range results {
		data = append(data,
			float32(res.Box.Left)*scale+xPad,
			float32(res.Box.Top)*scale+yPad,
			float32(res.Box.Right)*scale+xPad,
			float32(res.Box.Bottom)*scale+yPad,
		)
	}

	tensor, err := ort.NewTensor(ort.NewShape(int64(len(results)), 4), data)

	if err != nil {
		return nil, fmt.Errorf("error creating box tensor: %w", err)
	}

	return tensor, nil
}
