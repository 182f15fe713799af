package adapters_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recap/internal/adapters"
	"recap/internal/stageerr"
)

func TestParseTeamsTranscript(t *testing.T) {
	raw := `Alice Johnson: Good morning everyone.
Bob Smith: Morning.
continuing his previous thought here
Alice Johnson: Let's review the outage report.
`

	text, participants := adapters.ParseTeamsTranscript(raw)

	assert.Equal(t, []string{"Alice Johnson", "Bob Smith"}, participants)
	assert.Contains(t, text, "Alice Johnson: Good morning everyone.")
	// Continuation lines inherit the active speaker.
	assert.Contains(t, text, "Bob Smith: continuing his previous thought here")
}

func TestParseTeamsTranscriptTimestampedLabels(t *testing.T) {
	// Speaker lines split at the first colon, which sits inside the Teams
	// timestamp. The flattened text keeps the raw label; the participant
	// name still comes out clean.
	raw := "Alice Johnson (0:01): Good morning everyone.\n"

	text, participants := adapters.ParseTeamsTranscript(raw)

	assert.Equal(t, []string{"Alice Johnson"}, participants)
	assert.Contains(t, text, "Alice Johnson (0: 01): Good morning everyone.")
}

func TestParseTeamsTranscriptFiltersDateHeadings(t *testing.T) {
	raw := `January 15, 2025
Alice Johnson: status update
February review: postponed
`

	_, participants := adapters.ParseTeamsTranscript(raw)

	assert.Equal(t, []string{"Alice Johnson"}, participants)
}

func TestParseTeamsTranscriptStripsTrailingNumbers(t *testing.T) {
	raw := "Bob Smith 42: we shipped the fix\n"

	_, participants := adapters.ParseTeamsTranscript(raw)

	assert.Equal(t, []string{"Bob Smith"}, participants)
}

func TestParseTeamsTranscriptLongPrefixIsNotASpeaker(t *testing.T) {
	line := "This is a very long sentence that happens to contain a colon somewhere past the cutoff: see"
	text, participants := adapters.ParseTeamsTranscript(line)

	assert.Empty(t, participants)
	assert.Equal(t, line, text)
}

func TestLoadTranscriptPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("raw transcript body"), 0o644))

	text, participants, err := adapters.LoadTranscript(path)

	require.NoError(t, err)
	assert.Equal(t, "raw transcript body", text)
	assert.Nil(t, participants)
}

func TestLoadTranscriptRejectsUnknownExtension(t *testing.T) {
	_, _, err := adapters.LoadTranscript("meeting.pdf")

	require.Error(t, err)
	assert.True(t, stageerr.IsPermanent(err))
}
