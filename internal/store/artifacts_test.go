package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recap/internal/models"
	"recap/internal/store"
)

func newJob(t *testing.T) *models.Job {
	t.Helper()
	job, err := models.NewAudioProcessingJob(models.AudioProcessingParams{
		OriginalFilename: "meeting.mp3",
		WhisperModel:     "large",
		SummarizerModel:  "model",
	}, time.Hour)
	require.NoError(t, err)
	return job
}

func TestSaveInputAndPaths(t *testing.T) {
	root := t.TempDir()
	s := store.NewFSArtifactStore(root)
	job := newJob(t)

	require.NoError(t, s.SaveInput(job, strings.NewReader("audio bytes")))

	data, err := os.ReadFile(s.InputPath(job))
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))
	assert.Equal(t, filepath.Join(root, job.InputPath), s.InputPath(job))
	assert.Equal(t, filepath.Join(root, job.OutputDir), s.OutputDir(job))
}

func TestListOutputsFiltersAndSizes(t *testing.T) {
	s := store.NewFSArtifactStore(t.TempDir())
	job := newJob(t)
	require.NoError(t, s.EnsureOutputDir(job))

	dir := s.OutputDir(job)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary--m.md"), []byte("# S"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meeting_transcript.txt"), []byte("t"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.tmp"), []byte("x"), 0o644))

	files, err := s.ListOutputs(job)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
		assert.NotEmpty(t, f.SizeHuman)
	}
	assert.ElementsMatch(t, []string{"summary--m.md", "meeting_transcript.txt"}, names)
}

func TestListOutputsMissingDirIsEmpty(t *testing.T) {
	s := store.NewFSArtifactStore(t.TempDir())
	files, err := s.ListOutputs(newJob(t))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRemoveJobArtifacts(t *testing.T) {
	s := store.NewFSArtifactStore(t.TempDir())
	job := newJob(t)

	require.NoError(t, s.SaveInput(job, strings.NewReader("x")))
	require.NoError(t, s.EnsureOutputDir(job))
	require.NoError(t, os.WriteFile(filepath.Join(s.OutputDir(job), "summary--m.md"), []byte("s"), 0o644))

	require.NoError(t, s.RemoveJobArtifacts(job))

	_, err := os.Stat(s.InputPath(job))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(s.OutputDir(job))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is fine: retention retries must be idempotent.
	assert.NoError(t, s.RemoveJobArtifacts(job))
}
