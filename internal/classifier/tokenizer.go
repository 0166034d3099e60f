package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"PageviewLabeler/internal/textutil"
)

const minTokenLength = 2

// TokenizerOptions controls text normalization. They are persisted with the
// model so inference tokenizes exactly like training did.
type TokenizerOptions struct {
	StopWords bool `json:"stop_words"`
}

// Tokenizer splits text into normalized terms.
type Tokenizer struct {
	opts TokenizerOptions
}

// NewTokenizer builds a tokenizer for the given options.
func NewTokenizer(opts TokenizerOptions) Tokenizer {
	return Tokenizer{opts: opts}
}

// Options returns the options the tokenizer was built with.
func (t Tokenizer) Options() TokenizerOptions {
	return t.opts
}

// Tokens returns the terms of text in order of appearance. Terms are runs of
// letters, digits or underscores at least two runes long, case folded with
// diacritics stripped.
func (t Tokenizer) Tokens(text string) []string {
	text = normalize(text)
	if text == "" {
		return nil
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < minTokenLength {
			continue
		}
		if t.opts.StopWords {
			if _, stop := englishStopWords[f]; stop {
				continue
			}
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalize(text string) string {
	text = textutil.SanitizeText(text)
	if text == "" {
		return ""
	}
	// A fresh chain per call: transform.Transformer values are stateful.
	chain := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(chain, text)
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}
