// Package report writes per-run outcome records: one row per processed
// source video and one row per (clip, channel) publish attempt, as both JSON
// and CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// VideoRecord summarizes one processed source video.
type VideoRecord struct {
	VideoID        string `json:"video_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	ClipsCreated   int    `json:"clips_created"`
	ClipsPublished int    `json:"clips_published"`
	Error          string `json:"error,omitempty"`
}

// ClipRecord is one (clip, channel) publish outcome.
type ClipRecord struct {
	VideoID       string  `json:"video_id"`
	ClipID        string  `json:"clip_id"`
	Title         string  `json:"title"`
	WindowStart   float64 `json:"window_start"`
	WindowEnd     float64 `json:"window_end"`
	Score         float64 `json:"score"`
	Channel       string  `json:"channel"`
	Status        string  `json:"status"`
	RemoteVideoID string  `json:"remote_video_id,omitempty"`
	RemoteURL     string  `json:"remote_url,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

// RunReport aggregates the outcome of one pipeline run.
type RunReport struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Videos     []VideoRecord `json:"videos"`
	Clips      []ClipRecord  `json:"clips"`
}

// AddVideo appends a video outcome record.
func (r *RunReport) AddVideo(record VideoRecord) {
	r.Videos = append(r.Videos, record)
}

// AddClip appends a (clip, channel) outcome record.
func (r *RunReport) AddClip(record ClipRecord) {
	r.Clips = append(r.Clips, record)
}

// Write persists the report into dir as run-<timestamp>.json plus matching
// -videos.csv and -clips.csv files. It returns the JSON file path.
func (r *RunReport) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	stamp := r.FinishedAt
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	base := "run-" + stamp.UTC().Format("20060102-150405")

	jsonPath := filepath.Join(dir, base+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write report json: %w", err)
	}

	if err := r.writeVideosCSV(filepath.Join(dir, base+"-videos.csv")); err != nil {
		return "", err
	}
	if err := r.writeClipsCSV(filepath.Join(dir, base+"-clips.csv")); err != nil {
		return "", err
	}
	return jsonPath, nil
}

func (r *RunReport) writeVideosCSV(path string) error {
	rows := [][]string{{"video_id", "title", "status", "clips_created", "clips_published", "error"}}
	for _, v := range r.Videos {
		rows = append(rows, []string{
			v.VideoID, v.Title, v.Status,
			strconv.Itoa(v.ClipsCreated), strconv.Itoa(v.ClipsPublished),
			v.Error,
		})
	}
	return writeCSV(path, rows)
}

func (r *RunReport) writeClipsCSV(path string) error {
	rows := [][]string{{
		"video_id", "clip_id", "title",
		"window_start", "window_end", "score",
		"channel", "status", "remote_video_id", "remote_url", "reason",
	}}
	for _, c := range r.Clips {
		rows = append(rows, []string{
			c.VideoID, c.ClipID, c.Title,
			formatFloat(c.WindowStart), formatFloat(c.WindowEnd), formatFloat(c.Score),
			c.Channel, c.Status, c.RemoteVideoID, c.RemoteURL, c.Reason,
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("write csv rows: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
