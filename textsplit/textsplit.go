package textsplit

import (
	"errors"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// DefaultPattern matches runs of text terminated by sentence punctuation.
// Trailing text without a terminator is not a chunk.
const DefaultPattern = `[^\.!\?]+[\.!\?]+`

var ErrUnsupportedStrategy = errors.New("unsupported split strategy")

type Strategy string

const (
	StrategyRegex     Strategy = "regex"
	StrategySentences Strategy = "sentences"
)

type Config struct {
	Strategy Strategy `yaml:"strategy"`
	Pattern  string   `yaml:"pattern"`
}

// Splitter cuts a document into independently embedded chunks.
type Splitter interface {
	Split(text string) []string
}

func NewSplitter(cfg Config) (Splitter, error) {
	switch cfg.Strategy {
	case "", StrategyRegex:
		return NewRegexSplitter(cfg.Pattern)

	case StrategySentences:
		return NewSentenceSplitter()

	default:
		return nil, ErrUnsupportedStrategy
	}
}

type regexSplitter struct {
	re *regexp.Regexp
}

func NewRegexSplitter(pattern string) (Splitter, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	return &regexSplitter{re}, nil
}

func (s *regexSplitter) Split(text string) []string {
	return clean(s.re.FindAllString(text, -1))
}

type sentenceSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewSentenceSplitter uses the punkt tokenizer trained on English text, which
// keeps abbreviations such as "e.g." inside their sentence.
func NewSentenceSplitter() (Splitter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}

	return &sentenceSplitter{tokenizer}, nil
}

func (s *sentenceSplitter) Split(text string) []string {
	sents := s.tokenizer.Tokenize(text)

	chunks := make([]string, len(sents))
	for i, sent := range sents {
		chunks[i] = sent.Text
	}

	return clean(chunks)
}

func clean(chunks []string) []string {
	result := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}

		result = append(result, chunk)
	}

	return result
}
