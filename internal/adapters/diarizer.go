package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"recap/internal/models"
	"recap/internal/stageerr"
	"recap/pkg/executor"
)

// PyannoteDiarizer shells out to the diarization helper (a thin wrapper
// around pyannote speaker-diarization) which prints speaker turns as JSON
// on stdout: {"SPEAKER_00": [{"start": 0.0, "end": 4.2}, ...], ...}.
type PyannoteDiarizer struct {
	exec    executor.Executor
	binary  string
	hfToken string
}

func NewPyannoteDiarizer(exec executor.Executor, binary, hfToken string) *PyannoteDiarizer {
	if binary == "" {
		binary = "diarize"
	}
	return &PyannoteDiarizer{exec: exec, binary: binary, hfToken: hfToken}
}

func (d *PyannoteDiarizer) Diarize(ctx context.Context, audioPath string, minSpeakers, maxSpeakers *int) (map[string][]models.Interval, error) {
	if d.hfToken == "" {
		return nil, stageerr.Permanentf("huggingface token not configured for diarization")
	}
	if minSpeakers != nil && maxSpeakers != nil && *minSpeakers > *maxSpeakers {
		return nil, stageerr.Permanentf("min speakers cannot be greater than max speakers")
	}

	log.Infof("Performing speaker diarization on %s", audioPath)

	args := []string{"--audio", audioPath, "--hf-token", d.hfToken}
	if minSpeakers != nil {
		args = append(args, "--min-speakers", strconv.Itoa(*minSpeakers))
	}
	if maxSpeakers != nil {
		args = append(args, "--max-speakers", strconv.Itoa(*maxSpeakers))
	}

	out, err := d.exec.Execute(ctx, d.binary, args...)
	if err != nil {
		if isMissingBinary(err) {
			return nil, stageerr.Permanent(fmt.Errorf("diarization helper %q not found: %w", d.binary, err))
		}
		return nil, fmt.Errorf("diarize: %w", err)
	}

	var turns map[string][]models.Interval
	if err := json.Unmarshal([]byte(out), &turns); err != nil {
		return nil, stageerr.Permanent(fmt.Errorf("parse diarization output: %w", err))
	}

	log.Infof("Identified %d speaker(s)", len(turns))
	return turns, nil
}

var _ Diarizer = (*PyannoteDiarizer)(nil)
