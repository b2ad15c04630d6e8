package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ovdino/go-ovdino/postprocess"
	"gocv.io/x/gocv"
)

// boxLabel defines where the detection object label should be rendered on
// source image
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// SegmentMask renders the indexed segment mask as a transparent overlay on
// top of the whole image.  A mask pixel value is the detection result index
// plus one and the overlay color is keyed on that result's class.
func SegmentMask(img *gocv.Mat, segMask postprocess.SegMask,
	detectResults []postprocess.DetectResult, alpha float32) {

	// get dimensions
	width := img.Cols()
	height := img.Rows()

	if segMask.Width != width || segMask.Height != height ||
		len(segMask.Mask) < width*height {
		return
	}

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	imgData := img.ToBytes()

	// iterate over each pixel in the segmentation mask
	for j := 0; j < height; j++ {
		for k := 0; k < width; k++ {

			idx := j*width + k
			objID := int(segMask.Mask[idx])

			if objID == 0 || objID > len(detectResults) {
				continue
			}

			useClr := ClassColor(detectResults[objID-1].Class)

			// calculate position in the byte slice
			pixelPos := j*width*3 + k*3

			// get original pixel colors directly from the byte slice
			b, g, r := imgData[pixelPos+0], imgData[pixelPos+1], imgData[pixelPos+2]

			// calculate blended colors based on alpha transparency
			imgData[pixelPos+0] = uint8(float32(b)*(1-alpha) + float32(useClr.B)*alpha)
			imgData[pixelPos+1] = uint8(float32(g)*(1-alpha) + float32(useClr.G)*alpha)
			imgData[pixelPos+2] = uint8(float32(r)*(1-alpha) + float32(useClr.R)*alpha)
		}
	}

	// copy back to the original mat
	tmpImg, _ := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, imgData)
	defer tmpImg.Close()
	tmpImg.CopyTo(img)
}

// findTopPoint finds the highest point (Y axis) of the given point vector
func findTopPoint(approx gocv.PointVector) image.Point {
	topPoint := approx.At(0)
	for i := 1; i < approx.Size(); i++ {
		pt := approx.At(i)
		if pt.Y < topPoint.Y {
			topPoint = pt
		}
	}
	return topPoint
}

// isContourInsideBoxRect checks if the bounding box of a contour fits
// inside the bounding box of the detection result plus a pad
func isContourInsideBoxRect(contourRect image.Rectangle,
	bbox postprocess.BoxRect, pad int) bool {

	return contourRect.Min.X >= bbox.Left-pad &&
		contourRect.Min.Y >= bbox.Top-pad &&
		contourRect.Max.X <= bbox.Right+pad &&
		contourRect.Max.Y <= bbox.Bottom+pad
}

// SegmentOutline renders the segment mask object outlines for all objects
func SegmentOutline(img *gocv.Mat, segMask postprocess.SegMask,
	detectResults []postprocess.DetectResult, minArea float64,
	classNames []string, font Font, lineThickness int) error {

	width := img.Cols()
	height := img.Rows()
	boxesNum := len(detectResults)

	// create a Mat from the segMask
	maskMat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8U,
		segMask.Mask)

	if err != nil {
		return fmt.Errorf("error creating mask Mat: %w", err)
	}

	defer maskMat.Close()

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	// iterate over each unique object ID to isolate the mask
	for objID := 1; objID < boxesNum+1; objID++ {

		// Create a binary mask for the current object (isolate the object by objID)
		objMask := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)
		lowerBound := gocv.Scalar{Val1: float64(objID)}
		upperBound := gocv.Scalar{Val1: float64(objID)}
		gocv.InRangeWithScalar(maskMat, lowerBound, upperBound, &objMask)
		defer objMask.Close()

		// Find contours for this object
		contours := gocv.FindContours(objMask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		defer contours.Close()

		detResult := detectResults[objID-1]

		// Get the color for this object
		useClr := ClassColor(detResult.Class)

		// Get the label from the detectResults
		label := fmt.Sprintf("class %d", detResult.Class)

		if detResult.Class >= 0 && detResult.Class < len(classNames) {
			label = classNames[detResult.Class]
		}

		// Calculate the horizontal center of the bounding box
		boundingBox := detResult.Box
		centerX := (boundingBox.Left + boundingBox.Right) / 2

		// Draw contours
		for i := 0; i < contours.Size(); i++ {
			contour := contours.At(i)

			// filter out small contours picked up from aliasing/noise in binary mask
			area := gocv.ContourArea(contour)

			if area < minArea {
				continue
			}

			// Check if the contour's bounding rectangle is inside the object's bounding box
			contourRect := gocv.BoundingRect(contour)
			if !isContourInsideBoxRect(contourRect, boundingBox, 10) {
				continue
			}

			approx := gocv.ApproxPolyDP(contour, 3, true)

			// Create a PointsVector to hold our PointVector
			ptsVec := gocv.NewPointsVector()

			// Add our approximated PointVector to PointsVector
			ptsVec.Append(approx)

			// Draw polygon lines using PointsVector
			gocv.Polylines(img, ptsVec, true, useClr, lineThickness)

			// Find the topmost point of the contour
			topPoint := findTopPoint(approx)

			// create text for label
			text := fmt.Sprintf("%s %.2f", label, detResult.Probability)
			textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

			// Adjust the label position so the text is centered horizontally
			labelPosition := image.Pt(centerX-textSize.X/2, topPoint.Y-font.BottomPad)

			// create box for placing text on
			bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
				topPoint.Y-textSize.Y-font.TopPad-font.BottomPad,
				centerX+textSize.X/2+font.RightPad, topPoint.Y)

			// record label rendering details
			nextLabel := boxLabel{
				rect:    bRect,
				clr:     useClr,
				text:    text,
				textPos: labelPosition,
			}
			boxLabels = append(boxLabels, nextLabel)

			approx.Close()
			ptsVec.Close()
		}
	}

	// draw all precalculated box labels so they are the top most layer on the
	// image and don't get overlapped with segment contour lines
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		// Draw the label over box
		gocv.PutTextWithParams(img, box.text, box.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}

	return nil
}
