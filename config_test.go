package ovdino

import "testing"

func TestConfigValidate(t *testing.T) {

	base := DefaultConfig()
	base.ModelFile = "model.onnx"
	base.VocabFile = "vocab.txt"

	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{
			name:   "missing model file",
			mutate: func(c *Config) { c.ModelFile = "" },
		},
		{
			name:   "missing vocab file",
			mutate: func(c *Config) { c.VocabFile = "" },
		},
		{
			name:   "zero min size",
			mutate: func(c *Config) { c.MinSize = 0 },
		},
		{
			name:   "max size below min size",
			mutate: func(c *Config) { c.MaxSize = c.MinSize - 1 },
		},
		{
			name:   "unknown channel order",
			mutate: func(c *Config) { c.ChannelOrder = "GBR" },
		},
		{
			name:   "token length too short",
			mutate: func(c *Config) { c.TokenLength = 2 },
		},
		{
			name:   "zero pool size",
			mutate: func(c *Config) { c.PoolSize = 0 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)

			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
