// Package textchunk splits long transcripts at sentence boundaries so each
// piece fits the summarizer's context window.
package textchunk

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	log "github.com/sirupsen/logrus"
)

// DefaultMaxChars is a conservative budget for the local summarizer models.
const DefaultMaxChars = 24000

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

// sentenceTokenizer returns the shared English tokenizer, built once from
// the training data embedded in the english subpackage. The bare
// sentences.NewSentenceTokenizer constructor must not be used here: without
// loaded training data its Tokenize dereferences a nil storage.
func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			log.Warnf("Failed to build sentence tokenizer, falling back to punctuation splits: %v", err)
			return
		}
		tokenizer = t
	})
	return tokenizer
}

func splitSentences(text string) []string {
	if tok := sentenceTokenizer(); tok != nil {
		sents := tok.Tokenize(text)
		out := make([]string, 0, len(sents))
		for _, s := range sents {
			out = append(out, s.Text)
		}
		return out
	}
	return strings.SplitAfter(text, ". ")
}

// Split breaks text into chunks of at most maxChars, cutting only at
// sentence boundaries. A single sentence longer than maxChars becomes its
// own chunk rather than being split mid-sentence. Returns nil for empty
// input.
func Split(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	sents := splitSentences(text)
	if len(sents) == 0 {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	for _, sentence := range sents {
		if current.Len() > 0 && current.Len()+len(sentence) > maxChars {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}
