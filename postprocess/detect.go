package postprocess

// DetectionResult is implemented by post processors that produce detect
// results
type DetectionResult interface {
	GetDetectResults() []DetectResult
}

// BoxRect are the dimensions of the bounding box of a detect object in
// original image pixel coordinates
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// DetectResult defines the attributes of a single object detected
type DetectResult struct {
	// Class is the index into the category list the request was prompted
	// with defining the Class of the detected object
	Class int
	// Box are the bounding box dimensions of the object location
	Box BoxRect
	// Probability is the confidence score of the object detected
	Probability float32
	// ID is a unique ID assigned to the detection result.  It is internal to
	// the process and is never serialized to external consumers.
	ID int64
}

// SegMask is an indexed segmentation mask aligned to the original image
// dimensions.  A pixel value is the detection result index plus one, zero is
// background.
type SegMask struct {
	// Mask data of length Width*Height
	Mask []uint8
	// Width of the mask in pixels
	Width int
	// Height of the mask in pixels
	Height int
}
