package postprocess

import (
	"image"
	"sync"

	"github.com/ovdino/go-ovdino/preprocess"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

const (
	// buffers
	bufBinMask = "binMask"

	// maxMaskObjects is the highest object id an indexed uint8 mask can hold,
	// zero is reserved for the background
	maxMaskObjects = 255
)

// SAM defines the struct for the box prompted segmentation model inference
// post processing
type SAM struct {
	// Params are the Model configuration parameters
	Params SAMParams
	// buffer pool to stop allocation contention
	bufPool *bufferPool
	// bufPoolOnce guards one time registration of the buffer pool
	bufPoolOnce sync.Once
}

// SAMParams defines the struct containing the SAM parameters to use for post
// processing operations
type SAMParams struct {
	// InputSize is the side length of the square model input tensor
	InputSize int
	// MaskSize is the spatial resolution of the mask logits output
	MaskSize int
}

// SAMDefaultParams returns the parameters matching the reference SAM2 export
// with a 1024 pixel input and 256 pixel mask logits
func SAMDefaultParams() SAMParams {
	return SAMParams{
		InputSize: 1024,
		MaskSize:  256,
	}
}

// NewSAM returns an instance of the SAM post processor
func NewSAM(p SAMParams) *SAM {
	return &SAM{
		Params:  p,
		bufPool: NewBufferPool(),
	}
}

// SegmentMask combines the per box mask logits into a single indexed mask
// in original image space.  masks holds boxCount*candidates logit planes of
// MaskSize x MaskSize, ious holds the predicted IoU per candidate; the
// candidate with the highest predicted IoU is used for each box.  Pixel
// values are the detection result index plus one, matching the render
// package convention, and on overlap the earlier (higher scoring) object
// keeps the pixel.  The mask element is a uint8 so only the first 255 boxes
// receive pixels, later boxes are left unpainted rather than letting their
// ids wrap onto other objects.
func (s *SAM) SegmentMask(masks []float32, ious []float32, boxCount int,
	resizer *preprocess.Resizer) SegMask {

	srcW := resizer.SrcWidth()
	srcH := resizer.SrcHeight()

	out := SegMask{
		Mask:   make([]uint8, srcW*srcH),
		Width:  srcW,
		Height: srcH,
	}

	mSize := s.Params.MaskSize
	plane := mSize * mSize

	if boxCount == 0 || len(masks) < plane {
		return out
	}

	candidates := len(masks) / (boxCount * plane)

	if candidates < 1 {
		return out
	}

	s.bufPoolOnce.Do(func() {
		_ = s.bufPool.Create(bufBinMask, plane)
	})

	// letterbox content region of the model input
	content := image.Rect(resizer.XPad(), resizer.YPad(),
		resizer.XPad()+resizer.ResizeWidth(),
		resizer.YPad()+resizer.ResizeHeight())

	iouRow := make([]float64, candidates)

	paint := boxCount

	if paint > maxMaskObjects {
		paint = maxMaskObjects
	}

	for n := 0; n < paint; n++ {

		// pick the candidate mask with the highest predicted IoU
		best := 0

		if candidates > 1 && len(ious) >= (n+1)*candidates {
			for c := 0; c < candidates; c++ {
				iouRow[c] = float64(ious[n*candidates+c])
			}

			best = floats.MaxIdx(iouRow)
		}

		logits := masks[(n*candidates+best)*plane : (n*candidates+best+1)*plane]

		// threshold the logits at zero into a binary byte mask
		bin := s.bufPool.Get(bufBinMask, plane)

		for i, v := range logits {
			if v > 0 {
				bin[i] = 255
			}
		}

		s.paintObject(&out, bin, content, uint8(n+1))

		s.bufPool.Put(bufBinMask, bin)
	}

	return out
}

// paintObject upscales one binary object mask from logit resolution to the
// original image dimensions and writes it into the indexed output mask
func (s *SAM) paintObject(out *SegMask, bin []uint8, content image.Rectangle,
	objID uint8) {

	mSize := s.Params.MaskSize

	binMat, err := gocv.NewMatFromBytes(mSize, mSize, gocv.MatTypeCV8U, bin)

	if err != nil {
		return
	}

	defer binMat.Close()

	// upscale to the model input resolution
	up := gocv.NewMat()
	defer up.Close()

	gocv.Resize(binMat, &up, image.Pt(s.Params.InputSize, s.Params.InputSize),
		0, 0, gocv.InterpolationLinear)

	// strip the letterbox padding then scale to the source dimensions
	roi := up.Region(content)
	defer roi.Close()

	full := gocv.NewMat()
	defer full.Close()

	gocv.Resize(roi, &full, image.Pt(out.Width, out.Height),
		0, 0, gocv.InterpolationLinear)

	data, err := full.DataPtrUint8()

	if err != nil {
		return
	}

	for i, v := range data {
		if v >= 128 && out.Mask[i] == 0 {
			out.Mask[i] = objID
		}
	}
}
