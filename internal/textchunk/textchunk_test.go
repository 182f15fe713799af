package textchunk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recap/internal/textchunk"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := textchunk.Split("A short transcript.", 1000)
	assert.Equal(t, []string{"A short transcript."}, chunks)
}

func TestSplitEmptyInput(t *testing.T) {
	assert.Nil(t, textchunk.Split("", 1000))
	assert.Nil(t, textchunk.Split("   \n  ", 1000))
}

func TestSplitRespectsBudget(t *testing.T) {
	sentence := "This sentence is repeated to build a long transcript. "
	text := strings.TrimSpace(strings.Repeat(sentence, 50))

	chunks := textchunk.Split(text, 300)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 300+len(sentence))
		assert.NotEmpty(t, strings.TrimSpace(chunk))
	}
	// Nothing lost: the chunks concatenate back to the sentence stream.
	joined := strings.Join(chunks, " ")
	assert.Equal(t, strings.Count(text, "repeated"), strings.Count(joined, "repeated"))
}

func TestSplitZeroBudgetUsesDefault(t *testing.T) {
	chunks := textchunk.Split("tiny", 0)
	assert.Equal(t, []string{"tiny"}, chunks)
}
