package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item (one item per source video).
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusScored       Status = "scored"
	StatusNoCandidates Status = "no_candidates"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusRendering    Status = "rendering"
	StatusRendered     Status = "rendered"
	StatusPublishing   Status = "publishing"
	StatusCompleted    Status = "completed"
	StatusAbandoned    Status = "abandoned"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusScored,
	StatusNoCandidates,
	StatusDownloading,
	StatusDownloaded,
	StatusRendering,
	StatusRendered,
	StatusPublishing,
	StatusCompleted,
	StatusAbandoned,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusTranscribing: {},
	StatusDownloading:  {},
	StatusRendering:    {},
	StatusPublishing:   {},
}

// terminalSuccess holds the statuses after which a source video counts as
// processed: a finished run, a "nothing worth clipping" run, or an explicitly
// abandoned run.
var terminalSuccess = map[Status]struct{}{
	StatusCompleted:    {},
	StatusNoCandidates: {},
	StatusAbandoned:    {},
}

// Item represents a source video persisted in SQLite.
type Item struct {
	ID                int64
	VideoID           string
	Title             string
	ChannelTitle      string
	PublishedAt       string
	Status            Status
	TranscriptJSON    string
	CandidatesJSON    string
	SourceFile        string
	ClipsJSON         string
	PublishReportJSON string
	ClipsCreated      int
	ClipsPublished    int
	ErrorMessage      string
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	LastHeartbeat     *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalSuccess reports whether the status should mark the source video as
// processed.
func IsTerminalSuccess(status Status) bool {
	_, ok := terminalSuccess[status]
	return ok
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// SetAbandoned marks the item as explicitly abandoned: the video counts as
// processed even though no clips were produced.
func (i *Item) SetAbandoned(reason string) {
	i.Status = StatusAbandoned
	i.ErrorMessage = reason
	i.ProgressMessage = reason
	i.LastHeartbeat = nil
	i.ProgressStage = "Abandoned"
}
