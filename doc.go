/*
go-ovdino serves an open-vocabulary object detection model (OV-DINO) with an
optional SAM style segmentation refinement stage behind an interactive
browser UI.  Models are ONNX exports run through ONNX Runtime; a free text,
comma separated list of category names is tokenized per request, so the set
of detectable objects is chosen at run time rather than at training time.

The root package holds the model runtimes and the Detector and Segmenter
service objects.  Image scaling lives in the preprocess subdirectory, output
tensor decoding in postprocess, overlay drawing in render and the HTTP demo
surface in server.  See cmd/ovdino-demo for startup wiring.
*/
package ovdino
