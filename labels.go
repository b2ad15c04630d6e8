package ovdino

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a default vocabulary from the given text file.  It should
// contain one category name per line.  Blank lines are skipped.
func LoadLabels(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// create a scanner to read the file.
	scanner := bufio.NewScanner(f)

	var labels []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		labels = append(labels, line)
	}

	// check for errors during scanning
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return labels, nil
}

// phraseCutset are the punctuation characters stripped from the edges of a
// category phrase
const phraseCutset = " \t\r\n.,:;!?\"'"

// CleanPhrase normalizes a single category phrase for prompting.  The phrase
// is lower cased, underscores and hyphens become spaces, punctuation is
// stripped from the edges and inner whitespace is collapsed.  Word order is
// not changed.
func CleanPhrase(s string) string {

	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	s = strings.Trim(s, phraseCutset)

	return strings.Join(strings.Fields(s), " ")
}

// SplitCategories splits comma separated free text into an ordered, cleaned
// category list.  Phrases that are empty after cleaning are skipped, so the
// result length equals the number of non-empty cleaned segments.  An input
// yielding no usable phrase at all returns an error.  Duplicates are kept.
func SplitCategories(text string) ([]string, error) {

	parts := strings.Split(text, ",")
	categories := make([]string, 0, len(parts))

	for _, part := range parts {
		phrase := CleanPhrase(part)

		if phrase == "" {
			continue
		}

		categories = append(categories, phrase)
	}

	if len(categories) == 0 {
		return nil, fmt.Errorf("no category names found in input text %q", text)
	}

	return categories, nil
}

// COCOCategories are the 80 COCO object categories, the default vocabulary
// when no labels file is configured
var COCOCategories = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign",
	"parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag",
	"tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot",
	"hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}
