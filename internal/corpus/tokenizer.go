package corpus

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer splits a document into word tokens.
type Tokenizer interface {
	// Tokens returns the tokens of text in order.
	Tokens(text string) []string

	// Name identifies the tokenizer in checkpoints and logs.
	Name() string
}

// WhitespaceTokenizer lowercases text and splits it on whitespace, trimming
// punctuation from both ends of every token.
type WhitespaceTokenizer struct{}

// NewWhitespaceTokenizer returns the default tokenizer.
func NewWhitespaceTokenizer() WhitespaceTokenizer {
	return WhitespaceTokenizer{}
}

// Tokens implements Tokenizer.
func (WhitespaceTokenizer) Tokens(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, unicode.IsPunct)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Name implements Tokenizer.
func (WhitespaceTokenizer) Name() string {
	return "whitespace"
}

// TikToken splits text into BPE pieces with one of the OpenAI encodings.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo
//   - p50k_base: GPT-3, Codex
//   - r50k_base: older GPT-3 models
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken loads the named encoding.
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tiktoken encoding %q", encodingName)
	}
	return &TikToken{encoding: encoding, name: encodingName}, nil
}

// Tokens implements Tokenizer. Each BPE id is decoded back to its text
// piece so pieces can be counted like words. Whitespace-only pieces are
// dropped and leading spaces trimmed.
func (t *TikToken) Tokens(text string) []string {
	ids := t.encoding.Encode(text, nil, nil)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		piece := strings.TrimSpace(t.encoding.Decode([]int{id}))
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// IDs returns the raw BPE ids of text.
func (t *TikToken) IDs(text string) []int {
	return t.encoding.Encode(text, nil, nil)
}

// Name implements Tokenizer.
func (t *TikToken) Name() string {
	return t.name
}

// NewTokenizer returns the tokenizer named in a training config: "" or
// "whitespace" for WhitespaceTokenizer, anything else is treated as a
// tiktoken encoding name.
func NewTokenizer(name string) (Tokenizer, error) {
	if name == "" || name == "whitespace" {
		return NewWhitespaceTokenizer(), nil
	}
	return NewTikToken(name)
}

// maxLineSize bounds a single document line.
const maxLineSize = 16 * 1024 * 1024

// ReadDocuments reads one document per line from r. Lines without tokens
// are skipped.
func ReadDocuments(r io.Reader, tok Tokenizer) ([][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var docs [][]string
	for scanner.Scan() {
		tokens := tok.Tokens(scanner.Text())
		if len(tokens) > 0 {
			docs = append(docs, tokens)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read corpus")
	}
	return docs, nil
}
