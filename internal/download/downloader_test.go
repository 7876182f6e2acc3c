package download_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"clipmill/internal/download"
	"clipmill/internal/services"
)

type fileWritingExecutor struct {
	body []byte
	err  error
}

func (e *fileWritingExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	if e.err != nil {
		return e.err
	}
	var dest string
	for i, arg := range args {
		if arg == "--output" && i+1 < len(args) {
			dest = args[i+1]
		}
	}
	return os.WriteFile(dest, e.body, 0o644)
}

func TestDownloadWritesFile(t *testing.T) {
	dl, err := download.New("yt-dlp", t.TempDir(), 5,
		download.WithExecutor(&fileWritingExecutor{body: []byte("video-bytes")}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	path, err := dl.Download(context.Background(), "vid123")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected downloaded file, got %v", err)
	}
}

func TestDownloadToolFailure(t *testing.T) {
	dl, err := download.New("yt-dlp", t.TempDir(), 5,
		download.WithExecutor(&fileWritingExecutor{err: errors.New("network down")}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := dl.Download(context.Background(), "vid123"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestDownloadEmptyOutputIsFailure(t *testing.T) {
	dl, err := download.New("yt-dlp", t.TempDir(), 5,
		download.WithExecutor(&fileWritingExecutor{body: nil}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := dl.Download(context.Background(), "vid123"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected failure for empty output, got %v", err)
	}
}

func TestDownloadRequiresVideoID(t *testing.T) {
	dl, err := download.New("yt-dlp", t.TempDir(), 5,
		download.WithExecutor(&fileWritingExecutor{body: []byte("x")}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := dl.Download(context.Background(), ""); !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}
