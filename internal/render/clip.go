// Package render assembles branded vertical clips from a source video:
// caption-burned body extraction, optional intro/outro title cards, and a
// fallback chain of concatenation strategies.
package render

import (
	"fmt"

	"clipmill/internal/scoring"
	"clipmill/internal/transcript"
)

// Clip is one finished, validated output file. The pipeline run that created
// it owns the file and deletes it once publishing has been attempted.
type Clip struct {
	ID              string
	Window          scoring.Window
	Path            string
	Title           string
	Description     string
	Hashtags        []string
	DurationSeconds float64
}

// Request describes one clip to assemble.
type Request struct {
	SourcePath  string
	Window      scoring.Window
	Segments    []transcript.Segment
	Title       string
	Description string
	Hashtags    []string
}

// StageError reports which assembly stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("render stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageFailure(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// Stage names recorded on failures.
const (
	StageExtractBody = "extract_body"
	StageBuildIntro  = "build_intro"
	StageBuildOutro  = "build_outro"
	StageConcatenate = "concatenate"
	StageValidate    = "validate"
)
