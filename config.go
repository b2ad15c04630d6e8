package ovdino

import (
	"fmt"
)

// ChannelOrder is the color channel layout the detector model was exported
// with
type ChannelOrder string

const (
	OrderRGB ChannelOrder = "RGB"
	OrderBGR ChannelOrder = "BGR"
)

// Config defines the immutable process wide settings established at startup.
// A Config is fixed for the process lifetime and is not mutated per request.
type Config struct {
	// ModelFile is the full path of the detector ONNX model
	ModelFile string
	// VocabFile is the full path of the tokenizer vocabulary used to encode
	// category prompts, one token per line
	VocabFile string
	// MinSize is the target size of the shorter image side during inference
	MinSize int
	// MaxSize is the maximum allowed size of the longer image side during
	// inference
	MaxSize int
	// ChannelOrder is the channel layout to feed the model, RGB or BGR
	ChannelOrder ChannelOrder
	// TokenLength is the fixed token row length per category prompt
	TokenLength int
	// PoolSize is the number of detector sessions opened.  A size of one
	// serializes all requests against a single model instance.
	PoolSize int
}

// DefaultConfig returns a Config populated with the standard inference
// settings used by the reference OV-DINO demo
func DefaultConfig() Config {
	return Config{
		MinSize:      800,
		MaxSize:      1333,
		ChannelOrder: OrderRGB,
		TokenLength:  16,
		PoolSize:     1,
	}
}

// Validate checks the Config for settings that would fail at inference time
func (c Config) Validate() error {

	if c.ModelFile == "" {
		return fmt.Errorf("no detector model file configured")
	}

	if c.VocabFile == "" {
		return fmt.Errorf("no tokenizer vocabulary file configured")
	}

	if c.MinSize <= 0 {
		return fmt.Errorf("min size must be positive, got %d", c.MinSize)
	}

	if c.MaxSize < c.MinSize {
		return fmt.Errorf("max size %d is smaller than min size %d",
			c.MaxSize, c.MinSize)
	}

	if c.ChannelOrder != OrderRGB && c.ChannelOrder != OrderBGR {
		return fmt.Errorf("unknown channel order %q", c.ChannelOrder)
	}

	if c.TokenLength < 3 {
		// needs room for at least [CLS] token [SEP]
		return fmt.Errorf("token length %d is too short", c.TokenLength)
	}

	if c.PoolSize < 1 {
		return fmt.Errorf("pool size must be at least one, got %d", c.PoolSize)
	}

	return nil
}
