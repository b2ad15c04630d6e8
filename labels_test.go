package ovdino

import (
	"testing"
)

func TestCleanPhrase(t *testing.T) {

	tests := []struct {
		input    string
		expected string
	}{
		{"person", "person"},
		{" Bus ", "bus"},
		{"traffic_light", "traffic light"},
		{"hot-dog", "hot dog"},
		{"dog.", "dog"},
		{"  computer   monitor  ", "computer monitor"},
		{"'teddy bear'", "teddy bear"},
		{"...", ""},
		{"", ""},
	}

	for _, tc := range tests {
		got := CleanPhrase(tc.input)

		if got != tc.expected {
			t.Errorf("CleanPhrase(%q) = %q, expected %q", tc.input, got,
				tc.expected)
		}
	}
}

func TestSplitCategories(t *testing.T) {

	tests := []struct {
		input    string
		expected []string
	}{
		{"person, bus, bicycle", []string{"person", "bus", "bicycle"}},
		{"Person,BUS", []string{"person", "bus"}},
		// empty segments are skipped, order preserved
		{"person,, bus,", []string{"person", "bus"}},
		{"traffic_light, stop-sign.", []string{"traffic light", "stop sign"}},
		// duplicates are kept
		{"cat, cat", []string{"cat", "cat"}},
	}

	for _, tc := range tests {
		got, err := SplitCategories(tc.input)

		if err != nil {
			t.Errorf("SplitCategories(%q) returned error: %v", tc.input, err)
			continue
		}

		if len(got) != len(tc.expected) {
			t.Errorf("SplitCategories(%q) = %v, expected %v", tc.input, got,
				tc.expected)
			continue
		}

		for i := range got {
			if got[i] != tc.expected[i] {
				t.Errorf("SplitCategories(%q)[%d] = %q, expected %q",
					tc.input, i, got[i], tc.expected[i])
			}
		}
	}
}

func TestSplitCategoriesEmpty(t *testing.T) {

	for _, input := range []string{"", ",,,", " . , . "} {
		_, err := SplitCategories(input)

		if err == nil {
			t.Errorf("SplitCategories(%q) expected error, got none", input)
		}
	}
}
