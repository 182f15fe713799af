package models

// Segment is a transcribed time interval [Start, End) in seconds.
// Immutable once produced by the transcription adapter.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Interval is a speaker turn produced by the diarization adapter.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// DiarizedSegment is a transcription segment labeled with a speaker.
// Derived by fusion, never persisted independently of the job's outputs.
type DiarizedSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
}
