package adapters

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"recap/internal/stageerr"
	"recap/pkg/executor"
)

// Audio formats the converter accepts.
var AllowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".flac": true,
	".ogg":  true,
}

// FFmpegConverter converts uploads to 16 kHz mono PCM WAV, the canonical
// input for both whisper and the diarization pipeline.
type FFmpegConverter struct {
	exec executor.Executor
}

func NewFFmpegConverter(exec executor.Executor) *FFmpegConverter {
	return &FFmpegConverter{exec: exec}
}

func (c *FFmpegConverter) ConvertToWAV(ctx context.Context, inputPath, outputDir string) (string, error) {
	ext := strings.ToLower(filepath.Ext(inputPath))
	if !AllowedAudioExtensions[ext] {
		return "", stageerr.Permanentf("unsupported audio format %q", ext)
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+".wav")

	log.Infof("Converting %s to WAV", inputPath)

	args := []string{
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ar", "16000", // 16 kHz sample rate
		"-ac", "1", // mono
		"-y",
		outputPath,
	}
	if _, err := c.exec.Execute(ctx, "ffmpeg", args...); err != nil {
		if isMissingBinary(err) {
			return "", stageerr.Permanent(fmt.Errorf("ffmpeg not found, please install ffmpeg: %w", err))
		}
		return "", fmt.Errorf("convert audio: %w", err)
	}
	return outputPath, nil
}

// isMissingBinary reports whether err means the external binary is absent,
// which retrying cannot fix.
func isMissingBinary(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return errors.Is(execErr.Err, exec.ErrNotFound)
	}
	return errors.Is(err, exec.ErrNotFound)
}

var _ AudioConverter = (*FFmpegConverter)(nil)
