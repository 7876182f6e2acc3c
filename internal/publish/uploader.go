package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"clipmill/internal/services"
)

// Uploader performs resumable chunked uploads against the YouTube upload
// endpoint. A failed chunk is retried in place against the same session with
// a fixed backoff; the session is never restarted from scratch.
type Uploader struct {
	client    *http.Client
	baseURL   string
	chunkSize int64
	retries   int
	backoff   time.Duration
	logger    *slog.Logger
}

type uploadBody struct {
	Snippet struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Tags        []string `json:"tags,omitempty"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

// Upload transfers the file and returns the remote video ID. The error is
// wrapped with the sentinel matching the failure class: ErrTimeout for
// deadline expiry, ErrExternalTool for platform rejection, ErrTransient for
// network failures that outlasted the chunk retries.
func (u *Uploader) Upload(ctx context.Context, token string, md Metadata, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "publish", "upload", "open clip file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "publish", "upload", "stat clip file", err)
	}
	total := info.Size()

	sessionURL, err := u.startSession(ctx, token, md, total)
	if err != nil {
		return "", err
	}

	buf := make([]byte, u.chunkSize)
	var offset int64
	for offset < total {
		n, err := io.ReadFull(file, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return "", services.Wrap(services.ErrInvalidInput, "publish", "upload", "read clip file", err)
		}
		if n == 0 {
			break
		}
		chunk := buf[:n]

		videoID, done, err := u.sendChunk(ctx, sessionURL, chunk, offset, total)
		if err != nil {
			return "", err
		}
		offset += int64(n)
		u.logger.Debug("uploaded chunk",
			"offset", offset, "total", total,
			"progress", fmt.Sprintf("%.1f%%", float64(offset)/float64(total)*100))
		if done {
			if videoID == "" {
				return "", services.Wrap(services.ErrExternalTool, "publish", "upload",
					"upload completed but platform returned no video id", nil)
			}
			return videoID, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "publish", "upload",
		"upload session ended without completion", nil)
}

// startSession opens a resumable upload session and returns its URL.
func (u *Uploader) startSession(ctx context.Context, token string, md Metadata, total int64) (string, error) {
	var body uploadBody
	body.Snippet.Title = md.Title
	body.Snippet.Description = md.Description
	body.Snippet.Tags = md.Tags
	body.Status.PrivacyStatus = md.PrivacyStatus

	payload, err := json.Marshal(body)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "publish", "start session", "encode metadata", err)
	}

	url := u.baseURL + "?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrInvalidInput, "publish", "start session", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(total, 10))
	req.Header.Set("X-Upload-Content-Type", "video/mp4")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", wrapTransportError("start session", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		marker := services.ErrExternalTool
		if resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "publish", "start session",
			fmt.Sprintf("session request returned %d", resp.StatusCode), nil)
	}
	session := resp.Header.Get("Location")
	if session == "" {
		return "", services.Wrap(services.ErrExternalTool, "publish", "start session",
			"session response carried no location", nil)
	}
	return session, nil
}

// sendChunk PUTs one chunk, retrying in place on transient failures. It
// returns the remote video ID once the platform reports the upload complete.
func (u *Uploader) sendChunk(ctx context.Context, sessionURL string, chunk []byte, offset, total int64) (string, bool, error) {
	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(chunk))-1, total)

	var lastErr error
	for attempt := 0; attempt <= u.retries; attempt++ {
		if attempt > 0 {
			u.logger.Warn("retrying chunk",
				"attempt", attempt, "range", contentRange, slog.Any("error", lastErr))
			select {
			case <-ctx.Done():
				return "", false, wrapTransportError("send chunk", ctx.Err())
			case <-time.After(u.backoff):
			}
		}

		videoID, done, retryable, err := u.putChunk(ctx, sessionURL, chunk, contentRange)
		if err == nil {
			return videoID, done, nil
		}
		if !retryable {
			return "", false, err
		}
		lastErr = err
	}
	return "", false, lastErr
}

func (u *Uploader) putChunk(ctx context.Context, sessionURL string, chunk []byte, contentRange string) (videoID string, done, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(chunk))
	if err != nil {
		return "", false, false, services.Wrap(services.ErrInvalidInput, "publish", "send chunk", "build request", err)
	}
	req.Header.Set("Content-Range", contentRange)
	req.ContentLength = int64(len(chunk))

	resp, err := u.client.Do(req)
	if err != nil {
		wrapped := wrapTransportError("send chunk", err)
		retryable := !errors.Is(wrapped, services.ErrTimeout) && !errors.Is(wrapped, context.Canceled)
		return "", false, retryable, wrapped
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var doc struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
			return "", false, false, services.Wrap(services.ErrExternalTool, "publish", "send chunk",
				"decode completion response", err)
		}
		return doc.ID, true, false, nil
	case resp.StatusCode == 308:
		// Resume Incomplete: the chunk was accepted, continue with the next.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return "", false, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return "", false, true, services.Wrap(services.ErrTransient, "publish", "send chunk",
			fmt.Sprintf("chunk returned %d", resp.StatusCode), nil)
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return "", false, false, services.Wrap(services.ErrExternalTool, "publish", "send chunk",
			fmt.Sprintf("chunk rejected with %d", resp.StatusCode), nil)
	}
}

// wrapTransportError distinguishes deadline expiry from other transport
// failures so the coordinator can report timeouts as their own failure kind.
// Plain cancellation (user interrupt) is not a timeout and keeps
// context.Canceled in the chain.
func wrapTransportError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "publish", operation, "deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrTransient, "publish", operation, "canceled", err)
	}
	return services.Wrap(services.ErrTransient, "publish", operation, "request failed", err)
}
