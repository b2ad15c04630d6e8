/*
ovdino-demo runs the open vocabulary detection demo, a browser UI where an
uploaded image is run through an OV-DINO detector prompted with free text
categories, optionally refined into segment masks by a SAM model.
*/
package main

import (
	"flag"
	"net/http"

	"github.com/ovdino/go-ovdino"
	"github.com/ovdino/go-ovdino/server"
	"github.com/sirupsen/logrus"
)

func main() {

	modelFile := flag.String("m", "ovdino.onnx",
		"Path of the detector ONNX model file")
	vocabFile := flag.String("v", "vocab.txt",
		"Path of the tokenizer vocabulary file")
	samModel := flag.String("s", "",
		"Path of the optional SAM segmentation ONNX model file")
	labelsFile := flag.String("l", "",
		"Path of an optional labels file with the default categories, one per line")
	minSize := flag.Int("min-size", 800,
		"Target size of the shorter image side during inference")
	maxSize := flag.Int("max-size", 1333,
		"Maximum size of the longer image side during inference")
	channelOrder := flag.String("channel-order", "RGB",
		"Color channel order the detector model expects, RGB or BGR")
	threshold := flag.Float64("t", 0.5,
		"Default score threshold")
	poolSize := flag.Int("p", 1,
		"Number of detector sessions to open")
	addr := flag.String("a", "localhost:8080",
		"HTTP address to listen on")

	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := ovdino.DefaultConfig()
	cfg.ModelFile = *modelFile
	cfg.VocabFile = *vocabFile
	cfg.MinSize = *minSize
	cfg.MaxSize = *maxSize
	cfg.ChannelOrder = ovdino.ChannelOrder(*channelOrder)
	cfg.PoolSize = *poolSize

	detector, err := ovdino.NewDetector(cfg)

	if err != nil {
		log.WithError(err).Fatal("loading detector failed")
	}

	defer detector.Close()

	log.WithFields(logrus.Fields{
		"model": *modelFile,
		"pool":  *poolSize,
	}).Info("detector loaded")

	if err := detector.Warmup(); err != nil {
		log.WithError(err).Warn("detector warmup failed")
	}

	// the interface value must stay nil when no model is configured so the
	// server reports segmentation as unavailable
	var segmenter server.Segmenter

	if *samModel != "" {
		seg, err := ovdino.NewSegmenter(*samModel)

		if err != nil {
			log.WithError(err).Fatal("loading segmentation model failed")
		}

		defer seg.Close()
		segmenter = seg

		log.WithField("model", *samModel).Info("segmentation model loaded")
	}

	categories := ovdino.COCOCategories

	if *labelsFile != "" {
		categories, err = ovdino.LoadLabels(*labelsFile)

		if err != nil {
			log.WithError(err).Fatal("loading labels file failed")
		}
	}

	srv := server.New(detector, segmenter, server.Defaults{
		Categories: categories,
		Threshold:  float32(*threshold),
	}, log)

	log.WithField("addr", *addr).Info("demo listening")

	err = http.ListenAndServe(*addr, srv)

	if err != nil {
		log.WithError(err).Fatal("http server stopped")
	}
}
