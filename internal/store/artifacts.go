package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"recap/internal/models"
)

// Extensions served from a job's output directory.
var downloadableExtensions = map[string]bool{
	".pdf":  true,
	".md":   true,
	".html": true,
	".txt":  true,
	".docx": true,
	".json": true,
}

// FSArtifactStore resolves job file paths under a single storage root and
// reclaims them when jobs expire.
type FSArtifactStore struct {
	root string
}

func NewFSArtifactStore(root string) *FSArtifactStore {
	return &FSArtifactStore{root: root}
}

func (s *FSArtifactStore) InputPath(job *models.Job) string {
	return filepath.Join(s.root, job.InputPath)
}

func (s *FSArtifactStore) OutputDir(job *models.Job) string {
	return filepath.Join(s.root, job.OutputDir)
}

// SaveInput streams an upload into the job's input location.
func (s *FSArtifactStore) SaveInput(job *models.Job, src io.Reader) error {
	dst := s.InputPath(job)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create input dir for job %s: %w", job.ID, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create input file for job %s: %w", job.ID, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write input file for job %s: %w", job.ID, err)
	}
	return out.Close()
}

func (s *FSArtifactStore) EnsureOutputDir(job *models.Job) error {
	return os.MkdirAll(s.OutputDir(job), 0o755)
}

// ListOutputs returns downloadable artifacts for the status projection.
// A missing output directory yields an empty list, not an error.
func (s *FSArtifactStore) ListOutputs(job *models.Job) ([]OutputFile, error) {
	entries, err := os.ReadDir(s.OutputDir(job))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir for job %s: %w", job.ID, err)
	}

	var files []OutputFile
	for _, entry := range entries {
		if entry.IsDir() || !downloadableExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, OutputFile{
			Name:      entry.Name(),
			Size:      info.Size(),
			SizeHuman: models.HumanReadableSize(info.Size()),
		})
	}
	return files, nil
}

// RemoveJobArtifacts deletes the job's input file and output directory.
// Already-deleted paths count as success.
func (s *FSArtifactStore) RemoveJobArtifacts(job *models.Job) error {
	if job.InputPath != "" {
		if err := os.Remove(s.InputPath(job)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove input for job %s: %w", job.ID, err)
		}
	}
	if job.OutputDir != "" {
		if err := os.RemoveAll(s.OutputDir(job)); err != nil {
			return fmt.Errorf("remove output dir for job %s: %w", job.ID, err)
		}
	}
	return nil
}

var _ ArtifactStore = (*FSArtifactStore)(nil)
