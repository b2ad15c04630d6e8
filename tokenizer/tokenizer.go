// Package tokenizer implements the WordPiece text tokenizer used to encode
// category prompts for the text branch of the detection model.
package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// special tokens expected in the vocabulary file
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

// maxWordChars is the longest word attempted by the WordPiece matcher,
// longer words map straight to [UNK]
const maxWordChars = 100

// Tokenizer is a lower cased WordPiece tokenizer.  Token ids are the zero
// based line numbers of the vocabulary file, matching the convention of
// BERT style text encoders.
type Tokenizer struct {
	vocab map[string]int64
}

// NewFromFile reads a vocabulary from the given text file, one token per
// line.  The file must contain the [PAD], [UNK], [CLS] and [SEP] special
// tokens.
func NewFromFile(file string) (*Tokenizer, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var tokens []string

	for scanner.Scan() {
		// trim the line ending only, vocabulary entries may be significant
		// whitespace free tokens
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r\n"))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return New(tokens)
}

// New creates a Tokenizer from an in-memory vocabulary.  Token ids are the
// slice indices.
func New(tokens []string) (*Tokenizer, error) {

	t := &Tokenizer{
		vocab: make(map[string]int64, len(tokens)),
	}

	for i, tok := range tokens {
		t.vocab[tok] = int64(i)
	}

	for _, special := range []string{PadToken, UnkToken, ClsToken, SepToken} {
		if _, ok := t.vocab[special]; !ok {
			return nil, fmt.Errorf("vocabulary is missing special token %s",
				special)
		}
	}

	return t, nil
}

// VocabSize returns the number of tokens in the vocabulary
func (t *Tokenizer) VocabSize() int {
	return len(t.vocab)
}

// Tokenize splits text into WordPiece tokens.  Unknown words become the
// [UNK] token.
func (t *Tokenizer) Tokenize(text string) []string {

	var tokens []string

	for _, word := range basicTokenize(text) {
		tokens = append(tokens, t.wordPiece(word)...)
	}

	return tokens
}

// Encode converts text into a fixed length row of token ids and the matching
// attention mask.  The row is [CLS] tokens [SEP] padded with [PAD]; token
// sequences too long for the row are truncated.
func (t *Tokenizer) Encode(text string, length int) ([]int64, []int64) {

	tokens := t.Tokenize(text)

	// reserve room for [CLS] and [SEP]
	if len(tokens) > length-2 {
		tokens = tokens[:length-2]
	}

	ids := make([]int64, length)
	mask := make([]int64, length)

	pos := 0
	ids[pos] = t.vocab[ClsToken]
	mask[pos] = 1
	pos++

	for _, tok := range tokens {
		ids[pos] = t.lookup(tok)
		mask[pos] = 1
		pos++
	}

	ids[pos] = t.vocab[SepToken]
	mask[pos] = 1

	// remaining positions stay [PAD] with mask 0, PadToken id may be non
	// zero in custom vocabularies
	padID := t.vocab[PadToken]

	for i := pos + 1; i < length; i++ {
		ids[i] = padID
	}

	return ids, mask
}

// EncodeBatch encodes each text into one fixed length row and returns the
// flattened id and mask tensors of shape [len(texts), length]
func (t *Tokenizer) EncodeBatch(texts []string, length int) ([]int64, []int64) {

	ids := make([]int64, 0, len(texts)*length)
	mask := make([]int64, 0, len(texts)*length)

	for _, text := range texts {
		rowIDs, rowMask := t.Encode(text, length)
		ids = append(ids, rowIDs...)
		mask = append(mask, rowMask...)
	}

	return ids, mask
}

// lookup returns the id of a token, or the [UNK] id when not in the
// vocabulary
func (t *Tokenizer) lookup(tok string) int64 {

	if id, ok := t.vocab[tok]; ok {
		return id
	}

	return t.vocab[UnkToken]
}

// wordPiece splits a single word into sub word tokens using greedy longest
// match first.  Continuation pieces carry the ## prefix.
func (t *Tokenizer) wordPiece(word string) []string {

	if len(word) > maxWordChars {
		return []string{UnkToken}
	}

	var pieces []string

	runes := []rune(word)
	start := 0

	for start < len(runes) {
		end := len(runes)
		match := ""

		for end > start {
			sub := string(runes[start:end])

			if start > 0 {
				sub = "##" + sub
			}

			if _, ok := t.vocab[sub]; ok {
				match = sub
				break
			}

			end--
		}

		if match == "" {
			// no sub word of the remainder is known, the whole word is
			// unknown
			return []string{UnkToken}
		}

		pieces = append(pieces, match)
		start = end
	}

	return pieces
}

// basicTokenize lower cases text and splits it on whitespace with
// punctuation broken out into standalone tokens
func basicTokenize(text string) []string {

	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			flush()

		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))

		default:
			current.WriteRune(r)
		}
	}

	flush()

	return words
}
