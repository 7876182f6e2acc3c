package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewVideo inserts a new pending item for a discovered source video. When the
// video id is already queued, the existing item is returned unchanged.
func (s *Store) NewVideo(ctx context.Context, videoID, title, channelTitle, publishedAt string) (*Item, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("video id required")
	}

	existing, err := s.GetByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	timestamp := formatTimestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            video_id, title, channel_title, published_at, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		videoID,
		title,
		channelTitle,
		publishedAt,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a queue item by identifier. Missing items return nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByVideoID fetches a queue item by source video id. Missing items return nil.
func (s *Store) GetByVideoID(ctx context.Context, videoID string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM queue_items WHERE video_id = ?`, videoID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by video id: %w", err)
	}
	return item, nil
}

// Update persists all mutable fields of the item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item required")
	}
	item.UpdatedAt = time.Now().UTC()
	var heartbeat any
	if item.LastHeartbeat != nil {
		heartbeat = formatTimestamp(*item.LastHeartbeat)
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET
            title = ?, channel_title = ?, published_at = ?, status = ?,
            transcript_json = ?, candidates_json = ?, source_file = ?,
            clips_json = ?, publish_report_json = ?,
            clips_created = ?, clips_published = ?, error_message = ?,
            progress_stage = ?, progress_percent = ?, progress_message = ?,
            updated_at = ?, last_heartbeat = ?
        WHERE id = ?`,
		item.Title,
		item.ChannelTitle,
		item.PublishedAt,
		string(item.Status),
		item.TranscriptJSON,
		item.CandidatesJSON,
		item.SourceFile,
		item.ClipsJSON,
		item.PublishReportJSON,
		item.ClipsCreated,
		item.ClipsPublished,
		item.ErrorMessage,
		item.ProgressStage,
		item.ProgressPercent,
		item.ProgressMessage,
		formatTimestamp(item.UpdatedAt),
		heartbeat,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// UpdateHeartbeat records liveness for a processing item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTimestamp(time.Now())
	_, err := s.execWithRetry(ctx, `UPDATE queue_items SET last_heartbeat = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// NextForStatuses returns the oldest item whose status matches any of the
// provided statuses, or nil when none match.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY id ASC LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next item: %w", err)
	}
	return item, nil
}

// List returns all items ordered by insertion, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns a count of items per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Clear removes every item from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed items from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM queue_items WHERE status = ?`, string(StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("clear failed items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed resets failed items back to pending so the pipeline picks them
// up again from the start.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	now := formatTimestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, error_message = '',
            transcript_json = '', candidates_json = '', source_file = '',
            clips_json = '', publish_report_json = '',
            clips_created = 0, clips_published = 0,
            progress_stage = '', progress_percent = 0, progress_message = '',
            last_heartbeat = NULL, updated_at = ?
        WHERE status = ?`,
		string(StatusPending),
		now,
		string(StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStale fails processing items whose heartbeat is older than the
// timeout; a crashed run must not leave items stuck in a processing status.
func (s *Store) ReclaimStale(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		return 0, nil
	}
	cutoff := formatTimestamp(time.Now().Add(-timeout))
	statuses := make([]string, 0, len(processingStatuses))
	args := []any{string(StatusFailed), "stale heartbeat; reclaimed after restart", formatTimestamp(time.Now())}
	for status := range processingStatuses {
		statuses = append(statuses, "?")
		args = append(args, string(status))
	}
	args = append(args, cutoff)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+strings.Join(statuses, ",")+`)
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}
