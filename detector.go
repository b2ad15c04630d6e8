package ovdino

import (
	"fmt"

	"github.com/ovdino/go-ovdino/postprocess"
	"github.com/ovdino/go-ovdino/preprocess"
	"github.com/ovdino/go-ovdino/tokenizer"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

var (
	// pixelMean and pixelStd are the detectron2 image normalization constants
	// in RGB channel order
	pixelMean = [3]float32{123.675, 116.28, 103.53}
	pixelStd  = [3]float32{58.395, 57.12, 57.375}
)

// Detector runs the open vocabulary detection model.  Detect prompts the
// model with an arbitrary category list per call, no retraining or class
// list is baked into the session.
type Detector struct {
	cfg  Config
	pool *Pool
	tok  *tokenizer.Tokenizer
	proc *postprocess.OVDINO
}

// NewDetector loads the detector model and tokenizer vocabulary defined in
// the Config and opens the session pool
func NewDetector(cfg Config) (*Detector, error) {

	err := cfg.Validate()

	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tok, err := tokenizer.NewFromFile(cfg.VocabFile)

	if err != nil {
		return nil, fmt.Errorf("error loading tokenizer vocabulary: %w", err)
	}

	pool, err := NewPool(cfg.PoolSize, cfg.ModelFile)

	if err != nil {
		return nil, fmt.Errorf("error creating detector pool: %w", err)
	}

	return &Detector{
		cfg:  cfg,
		pool: pool,
		tok:  tok,
		proc: postprocess.NewOVDINO(postprocess.OVDINODefaultParams()),
	}, nil
}

// Close releases the detector sessions
func (d *Detector) Close() {
	d.pool.Close()
}

// Warmup runs one inference on a blank image so the first real request does
// not pay the lazy initialization cost of the session
func (d *Detector) Warmup() error {

	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	_, err := d.Detect(img, []string{"person"}, 1.0)

	if err != nil {
		return fmt.Errorf("warmup inference failed: %w", err)
	}

	return nil
}

// Detect runs the model on a BGR image prompted with the given category list
// and returns the detections scoring at or above scoreThreshold, ordered by
// descending score, with boxes in original image coordinates.  Class indices
// in the results refer to positions in the categories slice.
func (d *Detector) Detect(img gocv.Mat, categories []string,
	scoreThreshold float32) ([]postprocess.DetectResult, error) {

	if img.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("no categories to prompt with")
	}

	resizer := preprocess.NewAspectResizer(img.Cols(), img.Rows(),
		d.cfg.MinSize, d.cfg.MaxSize)
	defer resizer.Close()

	imgTensor, err := d.imageTensor(img, resizer)

	if err != nil {
		return nil, err
	}

	defer imgTensor.Destroy()

	// encode the category prompts into fixed length token rows
	ids, mask := d.tok.EncodeBatch(categories, d.cfg.TokenLength)

	tokenShape := ort.NewShape(int64(len(categories)), int64(d.cfg.TokenLength))

	idsTensor, err := ort.NewTensor(tokenShape, ids)

	if err != nil {
		return nil, fmt.Errorf("error creating input ids tensor: %w", err)
	}

	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(tokenShape, mask)

	if err != nil {
		return nil, fmt.Errorf("error creating attention mask tensor: %w", err)
	}

	defer maskTensor.Destroy()

	// check out a session for the duration of the call
	rt := d.pool.Get()

	outputs, err := rt.Inference([]ort.Value{imgTensor, idsTensor, maskTensor})
	d.pool.Return(rt)

	if err != nil {
		return nil, fmt.Errorf("detector inference failed: %w", err)
	}

	defer outputs.Free()

	boxes, _, err := outputs.Float32(0)

	if err != nil {
		return nil, fmt.Errorf("error reading boxes output: %w", err)
	}

	scores, _, err := outputs.Float32(1)

	if err != nil {
		return nil, fmt.Errorf("error reading scores output: %w", err)
	}

	labels, _, err := outputs.Int64(2)

	if err != nil {
		return nil, fmt.Errorf("error reading labels output: %w", err)
	}

	results := d.proc.DetectObjects(boxes, scores, labels, resizer,
		scoreThreshold).GetDetectResults()

	return results, nil
}

// imageTensor resizes and normalizes the BGR input image into an NCHW
// float32 tensor
func (d *Detector) imageTensor(img gocv.Mat,
	resizer *preprocess.Resizer) (*ort.Tensor[float32], error) {

	resized := gocv.NewMat()
	defer resized.Close()

	resizer.Resize(img, &resized)

	if d.cfg.ChannelOrder == OrderRGB {
		gocv.CvtColor(resized, &resized, gocv.ColorBGRToRGB)
	}

	mean := pixelMean
	std := pixelStd

	if d.cfg.ChannelOrder == OrderBGR {
		mean = [3]float32{pixelMean[2], pixelMean[1], pixelMean[0]}
		std = [3]float32{pixelStd[2], pixelStd[1], pixelStd[0]}
	}

	resized.ConvertTo(&resized, gocv.MatTypeCV32FC3)

	pixels, err := resized.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error accessing image data: %w", err)
	}

	height := resizer.ResizeHeight()
	width := resizer.ResizeWidth()
	plane := height * width

	// repack interleaved HWC pixels into planar CHW with normalization
	data := make([]float32, 3*plane)

	for i := 0; i < plane; i++ {
		for c := 0; c < 3; c++ {
			data[c*plane+i] = (pixels[i*3+c] - mean[c]) / std[c]
		}
	}

	tensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(height),
		int64(width)), data)

	if err != nil {
		return nil, fmt.Errorf("error creating image tensor: %w", err)
	}

	return tensor, nil
}
