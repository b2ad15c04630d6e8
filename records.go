package ovdino

import (
	"fmt"
	"image"

	clipper "github.com/ctessum/go.clipper"
	"github.com/ovdino/go-ovdino/postprocess"
	"gocv.io/x/gocv"
)

// ResultRecord is a single detection serialized in COCO result format.  The
// bounding box is x, y, width, height in original image pixels and the
// optional segmentation is a list of flattened x, y polygon rings.
type ResultRecord struct {
	CategoryName string      `json:"category_name"`
	Score        float32     `json:"score"`
	Box          []float32   `json:"bbox"`
	Segmentation [][]float32 `json:"segmentation,omitempty"`
}

// BuildRecords converts detect results into serializable records, resolving
// each class index against the category list the detector was prompted with.
// The record count and order matches the detect results.  When segMask is nil
// no segmentation polygons are attached.
func BuildRecords(results []postprocess.DetectResult,
	segMask *postprocess.SegMask, categories []string) ([]ResultRecord, error) {

	records := make([]ResultRecord, 0, len(results))

	for i, res := range results {

		if res.Class < 0 || res.Class >= len(categories) {
			return nil, fmt.Errorf("detection %d has class %d outside the %d categories prompted",
				i, res.Class, len(categories))
		}

		rec := ResultRecord{
			CategoryName: categories[res.Class],
			Score:        res.Probability,
			Box: []float32{
				float32(res.Box.Left),
				float32(res.Box.Top),
				float32(res.Box.Right - res.Box.Left),
				float32(res.Box.Bottom - res.Box.Top),
			},
		}

		if segMask != nil {
			polys, err := maskPolygons(segMask, i+1)

			if err != nil {
				return nil, fmt.Errorf("polygon extraction for detection %d failed: %w", i, err)
			}

			rec.Segmentation = polys
		}

		records = append(records, rec)
	}

	return records, nil
}

// maskPolygons traces the outline of one object in the indexed mask and
// returns it as flattened COCO polygon rings.  Contours are simplified then
// padded out by a pixel with a round joined offset so thin regions survive
// the polygon approximation.
func maskPolygons(segMask *postprocess.SegMask, objID int) ([][]float32, error) {

	maskMat, err := gocv.NewMatFromBytes(segMask.Height, segMask.Width,
		gocv.MatTypeCV8U, segMask.Mask)

	if err != nil {
		return nil, fmt.Errorf("error creating mask Mat: %w", err)
	}

	defer maskMat.Close()

	// isolate the object by objID
	objMask := gocv.NewMatWithSize(segMask.Height, segMask.Width, gocv.MatTypeCV8U)
	defer objMask.Close()

	bound := gocv.Scalar{Val1: float64(objID)}
	gocv.InRangeWithScalar(maskMat, bound, bound, &objMask)

	contours := gocv.FindContours(objMask, gocv.RetrievalExternal,
		gocv.ChainApproxSimple)
	defer contours.Close()

	var polys [][]float32

	for i := 0; i < contours.Size(); i++ {

		approx := gocv.ApproxPolyDP(contours.At(i), 1, true)

		ring := offsetRing(approx, 1, segMask.Width, segMask.Height)
		approx.Close()

		// a valid polygon needs at least three points
		if len(ring) >= 6 {
			polys = append(polys, ring)
		}
	}

	return polys, nil
}

// offsetRing pads a contour outwards by distance pixels and returns it as a
// flattened x, y ring clamped to the image bounds
func offsetRing(approx gocv.PointVector, distance float64,
	width, height int) []float32 {

	var path clipper.Path

	for i := 0; i < approx.Size(); i++ {
		pt := approx.At(i)
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	if len(path) == 0 {
		return nil
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)

	solution := co.Execute(distance)

	if len(solution) == 0 {
		return nil
	}

	// the offset of a single ring yields a single outer ring
	ring := make([]float32, 0, len(solution[0])*2)

	for _, pt := range solution[0] {
		p := clampPoint(image.Point{X: int(pt.X), Y: int(pt.Y)}, width, height)
		ring = append(ring, float32(p.X), float32(p.Y))
	}

	return ring
}

// clampPoint restricts the point to be within the image dimensions
func clampPoint(pt image.Point, width, height int) image.Point {

	if pt.X < 0 {
		pt.X = 0
	}

	if pt.X > width-1 {
		pt.X = width - 1
	}

	if pt.Y < 0 {
		pt.Y = 0
	}

	if pt.Y > height-1 {
		pt.Y = height - 1
	}

	return pt
}
