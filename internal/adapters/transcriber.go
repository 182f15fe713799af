package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"recap/internal/models"
	"recap/internal/stageerr"
	"recap/pkg/executor"
)

// WhisperTranscriber shells out to the whisper CLI and parses its JSON
// output into segments.
type WhisperTranscriber struct {
	exec   executor.Executor
	binary string
}

func NewWhisperTranscriber(exec executor.Executor, binary string) *WhisperTranscriber {
	if binary == "" {
		binary = "whisper"
	}
	return &WhisperTranscriber{exec: exec, binary: binary}
}

// whisperResult mirrors the JSON document the whisper CLI writes next to
// the audio file.
type whisperResult struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []models.Segment `json:"segments"`
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, modelSize, language string) ([]models.Segment, error) {
	if modelSize == "" {
		return nil, stageerr.Permanentf("transcription model not specified")
	}

	outputDir := filepath.Dir(audioPath)
	log.Infof("Transcribing %s with whisper %s model", audioPath, modelSize)

	args := []string{
		audioPath,
		"--model", modelSize,
		"--language", language,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--word_timestamps", "True",
		"--temperature", "0",
		"--beam_size", "5",
	}
	if _, err := t.exec.Execute(ctx, t.binary, args...); err != nil {
		if isMissingBinary(err) {
			return nil, stageerr.Permanent(fmt.Errorf("whisper binary %q not found: %w", t.binary, err))
		}
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	resultPath := filepath.Join(outputDir, base+".json")

	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("read whisper output %s: %w", resultPath, err)
	}
	segments, err := ParseWhisperResult(data)
	if err != nil {
		return nil, err
	}

	log.Infof("Transcription produced %d segments", len(segments))
	return segments, nil
}

// ParseWhisperResult decodes the whisper JSON document, trimming segment
// text the way the CLI pads it.
func ParseWhisperResult(data []byte) ([]models.Segment, error) {
	var result whisperResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, stageerr.Permanent(fmt.Errorf("parse whisper output: %w", err))
	}
	segments := result.Segments
	for i := range segments {
		segments[i].Text = strings.TrimSpace(segments[i].Text)
	}
	return segments, nil
}

var _ Transcriber = (*WhisperTranscriber)(nil)
