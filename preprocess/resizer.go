package preprocess

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// Resizer defines the struct used for handling image resizing
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image to fixed square
// destination dimensions with letterbox padding, as needed by the
// segmentation model input tensor
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// NewAspectResizer returns a resizer that scales the shorter image side to
// minSide whilst capping the longer side at maxSide, preserving aspect
// ratio.  No padding is applied, the destination dimensions equal the resize
// dimensions.  This is the detector preprocessing resize, output boxes are
// mapped back to source coordinates by dividing by ScaleFactor.
func NewAspectResizer(srcWidth, srcHeight, minSide, maxSide int) *Resizer {
	r := &Resizer{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		tempMat:   gocv.NewMat(),
	}

	shorter := srcWidth
	longer := srcHeight

	if srcHeight < srcWidth {
		shorter = srcHeight
		longer = srcWidth
	}

	r.scale = float32(minSide) / float32(shorter)

	if r.scale*float32(longer) > float32(maxSide) {
		r.scale = float32(maxSide) / float32(longer)
	}

	r.resizeW = int(math.Round(float64(float32(srcWidth) * r.scale)))
	r.resizeH = int(math.Round(float64(float32(srcHeight) * r.scale)))
	r.destWidth = r.resizeW
	r.destHeight = r.resizeH

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// Resize scales the source image to the precalculated resize dimensions
func (r *Resizer) Resize(src gocv.Mat, dest *gocv.Mat) {
	gocv.Resize(src, dest, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)
}

// LetterBoxResize resizes the input image to the dimensions needed for the
// input tensor size whilst maintaining image aspect.  Color is that used for
// letter box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// ScaleFactor returns the scale factor applied to the source image
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// DestWidth returns the width of the destination image
func (r *Resizer) DestWidth() int {
	return r.destWidth
}

// DestHeight returns the height of the destination image
func (r *Resizer) DestHeight() int {
	return r.destHeight
}

// ResizeWidth returns the width of the scaled image content, excluding any
// letterbox padding
func (r *Resizer) ResizeWidth() int {
	return r.resizeW
}

// ResizeHeight returns the height of the scaled image content, excluding any
// letterbox padding
func (r *Resizer) ResizeHeight() int {
	return r.resizeH
}
