// Package server implements the HTTP surface of the detection demo, a
// single page UI backed by a JSON API.
package server

import (
	_ "embed"
	"net/http"

	"github.com/ovdino/go-ovdino/postprocess"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

//go:embed index.html
var indexHTML []byte

// Detector runs open vocabulary detection on an image prompted with a
// category list
type Detector interface {
	Detect(img gocv.Mat, categories []string,
		scoreThreshold float32) ([]postprocess.DetectResult, error)
}

// Segmenter refines detection boxes into an indexed pixel mask
type Segmenter interface {
	Segment(img gocv.Mat,
		results []postprocess.DetectResult) (*postprocess.SegMask, error)
}

// Defaults are the request settings the UI starts with and resets to
type Defaults struct {
	// Categories is the category list prompted when the user has not entered
	// their own
	Categories []string
	// Threshold is the starting score threshold
	Threshold float32
}

// Server routes the demo UI and API requests to the inference services
type Server struct {
	detector  Detector
	segmenter Segmenter
	defaults  Defaults
	log       *logrus.Logger
	mux       *http.ServeMux
}

// New returns a Server wired to the given inference services.  Pass a nil
// segmenter when no segmentation model is loaded, the API then reports
// segmentation as unavailable and ignores requests for it.
func New(detector Detector, segmenter Segmenter, defaults Defaults,
	log *logrus.Logger) *Server {

	s := &Server{
		detector:  detector,
		segmenter: segmenter,
		defaults:  defaults,
		log:       log,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/detect", s.handleDetect)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
