// Package fusion merges transcription segments with independently produced
// speaker diarization turns into one annotated transcript. It is a pure
// function of its inputs: no I/O, no clock, no external state.
package fusion

import (
	"sort"

	"recap/internal/models"
)

// UnknownSpeaker labels transcription segments no diarization turn overlaps.
const UnknownSpeaker = "Unknown Speaker"

// DefaultTolerance is the symmetric time tolerance, in seconds, used when
// matching diarization turns against transcription segments.
const DefaultTolerance = 0.5

type speakerTurn struct {
	speaker string
	start   float64
	end     float64
}

// Merge labels every transcription segment with the speaker whose turns
// overlap it most, under the symmetric tolerance tau. Segments are emitted
// in transcription order, one fused record per input segment; diarization
// only labels them, it never adds, drops, or reorders segments.
//
// Ties on overlap count go to the speaker encountered first when scanning
// turns in start-time order, which makes the result deterministic for any
// input (the turn sort breaks start ties by speaker label).
func Merge(segments []models.Segment, diarization map[string][]models.Interval, tau float64) []models.DiarizedSegment {
	if len(segments) == 0 {
		return nil
	}

	turns := flatten(diarization)

	fused := make([]models.DiarizedSegment, 0, len(segments))
	for _, seg := range segments {
		fused = append(fused, models.DiarizedSegment{
			Speaker: dominantSpeaker(turns, seg, tau),
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}
	return fused
}

// flatten turns the per-speaker interval map into a single list sorted by
// start time. Equal starts sort by speaker label so map iteration order
// never leaks into the output.
func flatten(diarization map[string][]models.Interval) []speakerTurn {
	var turns []speakerTurn
	for speaker, intervals := range diarization {
		for _, iv := range intervals {
			turns = append(turns, speakerTurn{speaker: speaker, start: iv.Start, end: iv.End})
		}
	}
	sort.Slice(turns, func(i, j int) bool {
		if turns[i].start != turns[j].start {
			return turns[i].start < turns[j].start
		}
		return turns[i].speaker < turns[j].speaker
	})
	return turns
}

// dominantSpeaker picks the most frequently overlapping speaker for seg.
// A turn d matches iff d.start <= seg.End+tau && d.end+tau >= seg.Start.
func dominantSpeaker(turns []speakerTurn, seg models.Segment, tau float64) string {
	counts := make(map[string]int)
	var order []string

	for _, turn := range turns {
		if turn.start <= seg.End+tau && turn.end+tau >= seg.Start {
			if counts[turn.speaker] == 0 {
				order = append(order, turn.speaker)
			}
			counts[turn.speaker]++
		}
	}
	if len(order) == 0 {
		return UnknownSpeaker
	}

	best := order[0]
	for _, speaker := range order[1:] {
		if counts[speaker] > counts[best] {
			best = speaker
		}
	}
	return best
}
