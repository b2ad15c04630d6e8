package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"

	// register the image formats accepted for upload
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ovdino/go-ovdino"
	"github.com/ovdino/go-ovdino/postprocess"
	"github.com/ovdino/go-ovdino/render"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	// maxUploadSize limits the multipart form memory for image uploads
	maxUploadSize = 32 << 20

	// maskAlpha is the segment overlay transparency
	maskAlpha = 0.5

	// outlineMinArea filters contour noise picked up from mask aliasing
	outlineMinArea = 40
)

// detectResponse is the JSON payload of a successful detect call
type detectResponse struct {
	// Image is the annotated input image as a base64 data URI
	Image string `json:"image"`
	// Detections are the serialized detection records
	Detections []ovdino.ResultRecord `json:"detections"`
}

// configResponse is the JSON payload describing the UI defaults
type configResponse struct {
	DefaultCategories string  `json:"default_categories"`
	DefaultThreshold  float32 `json:"default_threshold"`
	Segmentation      bool    `json:"segmentation"`
}

// respondJSON writes the value as a JSON response
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes a JSON error payload
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// handleIndex serves the embedded demo page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

// handleConfig returns the request defaults the UI starts with and resets to
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {

	respondJSON(w, http.StatusOK, configResponse{
		DefaultCategories: strings.Join(s.defaults.Categories, ", "),
		DefaultThreshold:  s.defaults.Threshold,
		Segmentation:      s.segmenter != nil,
	})
}

// handleHealth reports process liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDetect runs detection, and optionally segmentation, on an uploaded
// image and returns the annotated image plus serialized records
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := r.ParseMultipartForm(maxUploadSize)

	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	img, err := s.formImage(r)

	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	defer img.Close()

	categories, err := s.formCategories(r)

	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	threshold, err := s.formThreshold(r)

	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	withSeg, err := formBool(r, "segmentation")

	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// segmentation requests are inert when no model is loaded
	if s.segmenter == nil {
		withSeg = false
	}

	results, err := s.detector.Detect(img, categories, threshold)

	if err != nil {
		s.log.WithError(err).Error("detection failed")
		respondError(w, http.StatusInternalServerError, "detection failed")
		return
	}

	var segMask *postprocess.SegMask

	if withSeg {
		segMask, err = s.segmenter.Segment(img, results)

		if err != nil {
			s.log.WithError(err).Error("segmentation failed")
			respondError(w, http.StatusInternalServerError, "segmentation failed")
			return
		}
	}

	records, err := ovdino.BuildRecords(results, segMask, categories)

	if err != nil {
		s.log.WithError(err).Error("serializing results failed")
		respondError(w, http.StatusInternalServerError, "serializing results failed")
		return
	}

	encoded, err := s.renderImage(img, results, segMask, categories)

	if err != nil {
		s.log.WithError(err).Error("rendering failed")
		respondError(w, http.StatusInternalServerError, "rendering failed")
		return
	}

	s.log.WithFields(logrus.Fields{
		"categories":   len(categories),
		"detections":   len(results),
		"threshold":    threshold,
		"segmentation": withSeg,
	}).Info("detect request served")

	respondJSON(w, http.StatusOK, detectResponse{
		Image:      encoded,
		Detections: records,
	})
}

// formImage decodes the uploaded image into a BGR Mat
func (s *Server) formImage(r *http.Request) (gocv.Mat, error) {

	file, _, err := r.FormFile("image")

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("no image uploaded")
	}

	defer file.Close()

	data, err := io.ReadAll(file)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error reading image upload: %w", err)
	}

	srcImg, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("unsupported or corrupt image: %w", err)
	}

	img, err := gocv.ImageToMatRGB(srcImg)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error converting image: %w", err)
	}

	gocv.CvtColor(img, &img, gocv.ColorRGBToBGR)

	return img, nil
}

// formCategories parses the category prompt, falling back to the configured
// defaults when the field is empty
func (s *Server) formCategories(r *http.Request) ([]string, error) {

	text := r.FormValue("categories")

	if strings.TrimSpace(text) == "" {
		return s.defaults.Categories, nil
	}

	categories, err := ovdino.SplitCategories(text)

	if err != nil {
		return nil, fmt.Errorf("invalid categories: %w", err)
	}

	return categories, nil
}

// formThreshold parses the score threshold, falling back to the configured
// default when the field is empty
func (s *Server) formThreshold(r *http.Request) (float32, error) {

	val := r.FormValue("threshold")

	if val == "" {
		return s.defaults.Threshold, nil
	}

	f, err := strconv.ParseFloat(val, 32)

	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q", val)
	}

	if f < 0 || f > 1 {
		return 0, fmt.Errorf("threshold %v outside range 0 to 1", f)
	}

	return float32(f), nil
}

// formBool parses an optional boolean form field
func formBool(r *http.Request, name string) (bool, error) {

	val := r.FormValue(name)

	if val == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(val)

	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", name, val)
	}

	return b, nil
}

// renderImage draws the detections onto a copy of the input image and
// returns it as a base64 JPEG data URI
func (s *Server) renderImage(img gocv.Mat,
	results []postprocess.DetectResult, segMask *postprocess.SegMask,
	categories []string) (string, error) {

	vis := img.Clone()
	defer vis.Close()

	if segMask != nil {
		render.SegmentMask(&vis, *segMask, results, maskAlpha)

		// the outline pass draws the object contours and carries the labels
		// when masks are shown
		err := render.SegmentOutline(&vis, *segMask, results, outlineMinArea,
			categories, render.DefaultFont(), 1)

		if err != nil {
			return "", fmt.Errorf("error drawing segment outlines: %w", err)
		}
	} else {
		render.DetectionBoxes(&vis, results, categories, render.DefaultFont(), 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, vis)

	if err != nil {
		return "", fmt.Errorf("error encoding annotated image: %w", err)
	}

	defer buf.Close()

	return "data:image/jpeg;base64," +
		base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
