package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmill/internal/config"
	"clipmill/internal/discovery"
	"clipmill/internal/queue"
	"clipmill/internal/render"
	"clipmill/internal/state"
	"clipmill/internal/testsupport"
	"clipmill/internal/toolrun"
	"clipmill/internal/transcript"
)

// fakeFetcher returns canned transcript segments.
type fakeFetcher struct {
	segments []transcript.Segment
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	return f.segments, f.err
}

// fakeDownloader writes a stub source file, or fails.
type fakeDownloader struct {
	dir string
	err error
}

func (f *fakeDownloader) Download(ctx context.Context, videoID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, videoID+".mp4")
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeSearcher returns canned discovery results.
type fakeSearcher struct {
	videos []discovery.Video
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]discovery.Video, error) {
	return f.videos, f.err
}

// mediaExec simulates ffmpeg and ffprobe: ffmpeg invocations write their
// output file, ffprobe reports a fixed duration.
type mediaExec struct{}

func (mediaExec) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	if strings.Contains(binary, "ffprobe") {
		if onOutput != nil {
			onOutput("45.000")
		}
		return nil
	}
	output := args[len(args)-1]
	if output != "-" {
		return os.WriteFile(output, []byte(strings.Repeat("x", 4096)), 0o644)
	}
	return nil
}

var _ toolrun.Executor = mediaExec{}

// publishBackend is a fake Data API plus upload endpoint that accepts every
// upload for the token "good".
func publishBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"UCgood"}]}`)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session")
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"remote42"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type managerFixture struct {
	cfg       *config.Config
	store     *queue.Store
	processed *state.ProcessedSet
	manager   *Manager
}

// topicSegments produces a transcript long enough to satisfy the minimum
// clip duration, mentioning the test topic term throughout.
func topicSegments() []transcript.Segment {
	segments := make([]transcript.Segment, 0, 10)
	for i := 0; i < 10; i++ {
		segments = append(segments, transcript.Segment{
			Text:  fmt.Sprintf("more about the test topic part %d", i),
			Start: float64(i * 5),
			End:   float64(i*5 + 4),
		})
	}
	return segments
}

func newManagerFixture(t *testing.T, mutate func(*config.Config)) *managerFixture {
	t.Helper()
	server := publishBackend(t)

	tokenFile := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenFile, []byte("good"), 0o644); err != nil {
		t.Fatalf("write token: %v", err)
	}

	cfg := testsupport.NewConfig(t, testsupport.WithChannels(config.Channel{
		Name:              "shorts",
		TokenFile:         tokenFile,
		ExpectedChannelID: "UCgood",
		PrivacyStatus:     "unlisted",
	}))
	cfg.Discovery.BaseURL = server.URL
	cfg.Publishing.UploadBaseURL = server.URL + "/upload"
	cfg.Rendering.Encoder = "libx264"
	cfg.Rendering.IntroEnabled = false
	cfg.Rendering.OutroEnabled = false
	cfg.Workflow.HeartbeatTimeout = 0
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	processed, err := state.LoadProcessedSet(filepath.Join(cfg.Paths.StateDir, "processed.json"))
	if err != nil {
		t.Fatalf("load processed set: %v", err)
	}
	t.Cleanup(func() { processed.Close() })

	manager, err := NewManager(cfg, store, processed, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &managerFixture{cfg: cfg, store: store, processed: processed, manager: manager}
}

// useFakes swaps the external tool stages for in-process fakes: canned
// transcript, stub download, and a renderer driven by the media executor.
func (f *managerFixture) useFakes(fetcher transcript.Fetcher, downloadErr error) {
	f.manager.RegisterStage("transcribe", queue.StatusPending, queue.StatusTranscribing, queue.StatusScored,
		NewTranscribeStage(f.cfg, fetcher, nil))
	f.manager.RegisterStage("download", queue.StatusScored, queue.StatusDownloading, queue.StatusDownloaded,
		NewDownloadStage(f.cfg, &fakeDownloader{dir: f.cfg.Paths.StagingDir, err: downloadErr}, nil))
	f.manager.RegisterStage("render", queue.StatusDownloaded, queue.StatusRendering, queue.StatusRendered,
		NewRenderStage(f.cfg, render.New(f.cfg, mediaExec{}, nil), nil))
}
