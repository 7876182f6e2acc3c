// Package publish uploads rendered clips to a set of YouTube channels with
// resumable chunked transfers, per-channel metadata transforms, and mandatory
// pacing between channel attempts.
package publish

// Statuses for one channel attempt.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Failure kinds surfaced per channel.
const (
	FailureAuthenticationMissing   = "authentication_missing"
	FailureChannelIdentityMismatch = "channel_identity_mismatch"
	FailureUploadTimeout           = "upload_timeout"
	FailureUploadRejected          = "upload_rejected"
	FailureNetworkError            = "network_error"
)

// Result is the outcome of one (clip, channel) upload attempt.
type Result struct {
	Channel       string `json:"channel"`
	Status        string `json:"status"`
	RemoteVideoID string `json:"remote_video_id,omitempty"`
	RemoteURL     string `json:"remote_url,omitempty"`
	FailureKind   string `json:"failure_kind,omitempty"`
	ErrorReason   string `json:"error_reason,omitempty"`
}

// Report aggregates the per-channel results for one clip. It always contains
// exactly one Result per configured target, whatever the outcomes were.
type Report struct {
	ClipID  string   `json:"clip_id"`
	Results []Result `json:"results"`
}

// Succeeded counts the successful channel uploads in the report.
func (r Report) Succeeded() int {
	n := 0
	for _, result := range r.Results {
		if result.Status == StatusSuccess {
			n++
		}
	}
	return n
}
