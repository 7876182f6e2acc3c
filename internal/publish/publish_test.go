package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmill/internal/config"
	"clipmill/internal/logging"
	"clipmill/internal/render"
	"clipmill/internal/scoring"
	"clipmill/internal/services"
	"clipmill/internal/testsupport"
)

func testClip(t *testing.T) *render.Clip {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write clip file: %v", err)
	}
	return &render.Clip{
		ID:              "clip-1",
		Window:          scoring.Window{Start: 10, End: 40, Score: 0.8},
		Path:            path,
		Title:           "Five minute enamel care routine",
		Description:     "A quick routine.",
		Hashtags:        []string{"dental health", "#Enamel"},
		DurationSeconds: 30,
	}
}

func writeToken(t *testing.T, name, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(token), 0o644); err != nil {
		t.Fatalf("write token: %v", err)
	}
	return path
}

func TestBuildMetadataTransforms(t *testing.T) {
	clip := &render.Clip{
		Title:       strings.Repeat("t", 150),
		Description: "Base description.",
		Hashtags:    []string{"dental health", "enamel", "#enamel"},
	}
	channel := config.Channel{
		Name:              "shorts",
		TagPrefix:         "dh_",
		DescriptionSuffix: "Follow for more.",
		PrivacyStatus:     "unlisted",
	}

	md := BuildMetadata(clip, channel, []string{"shorts"})

	if got := len([]rune(md.Title)); got != maxTitleRunes {
		t.Errorf("title length = %d, want %d", got, maxTitleRunes)
	}
	if !strings.Contains(md.Description, "Follow for more.") {
		t.Errorf("description missing channel suffix: %q", md.Description)
	}
	if !strings.Contains(md.Description, "#DentalHealth") {
		t.Errorf("description missing camel-cased hashtag: %q", md.Description)
	}
	if strings.Count(md.Description, "#Enamel") != 1 {
		t.Errorf("duplicate hashtag not deduped: %q", md.Description)
	}
	for _, tag := range md.Tags {
		if !strings.HasPrefix(tag, "dh_") {
			t.Errorf("tag %q missing channel prefix", tag)
		}
	}
	if md.PrivacyStatus != "unlisted" {
		t.Errorf("privacy = %q, want unlisted", md.PrivacyStatus)
	}
}

func TestBuildMetadataCapsTags(t *testing.T) {
	hashtags := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		hashtags = append(hashtags, fmt.Sprintf("tag%d", i))
	}
	md := BuildMetadata(&render.Clip{Title: "t", Hashtags: hashtags}, config.Channel{}, nil)
	if len(md.Tags) != maxTags {
		t.Errorf("tags = %d, want %d", len(md.Tags), maxTags)
	}
}

func TestLoadToken(t *testing.T) {
	jsonPath := writeToken(t, "token.json", `{"access_token":"abc123","expiry":"2027-01-01T00:00:00Z"}`)
	if token, err := loadToken(jsonPath); err != nil || token != "abc123" {
		t.Errorf("loadToken(json) = %q, %v", token, err)
	}

	barePath := writeToken(t, "token.txt", "raw-token\n")
	if token, err := loadToken(barePath); err != nil || token != "raw-token" {
		t.Errorf("loadToken(bare) = %q, %v", token, err)
	}

	if _, err := loadToken(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing token file")
	}
	if _, err := loadToken(""); err == nil {
		t.Error("expected error for unconfigured token file")
	}
}

// identityByToken maps bearer tokens to channel IDs for the fake Data API.
func identityHandler(identities map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		id, ok := identities[token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"items":[{"id":"%s"}]}`, id)
	}
}

func newCoordinator(t *testing.T, apiURL, uploadURL string, channels ...config.Channel) (*Coordinator, []config.Channel) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithChannels(channels...))
	cfg.Discovery.BaseURL = apiURL
	cfg.Publishing.UploadBaseURL = uploadURL
	cfg.Publishing.ChunkSizeMiB = 1
	cfg.Publishing.ChunkRetries = 1
	cfg.Publishing.ChunkRetryBackoffSeconds = 0
	return New(cfg, logging.NewNop()), cfg.Publishing.Channels
}

func TestPublishIdentityMismatchDoesNotAffectOtherChannels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", identityHandler(map[string]string{
		"good": "UCgood",
		"bad":  "UCother",
	}))
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session")
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"vid42"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	goodToken := writeToken(t, "good", "good")
	badToken := writeToken(t, "bad", "bad")
	c, targets := newCoordinator(t, server.URL, server.URL+"/upload",
		config.Channel{Name: "one", TokenFile: goodToken, ExpectedChannelID: "UCgood"},
		config.Channel{Name: "two", TokenFile: badToken, ExpectedChannelID: "UCgood"},
		config.Channel{Name: "three", TokenFile: goodToken, ExpectedChannelID: "UCgood"},
	)

	report := c.Publish(context.Background(), testClip(t), targets)
	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(report.Results))
	}
	if report.Results[0].Status != StatusSuccess || report.Results[2].Status != StatusSuccess {
		t.Errorf("good channels should succeed: %+v", report.Results)
	}
	mismatch := report.Results[1]
	if mismatch.Status != StatusFailed || mismatch.FailureKind != FailureChannelIdentityMismatch {
		t.Errorf("channel two = %+v, want identity mismatch failure", mismatch)
	}
	if !strings.Contains(mismatch.ErrorReason, "UCother") {
		t.Errorf("mismatch reason should name the actual channel: %q", mismatch.ErrorReason)
	}
	if report.Succeeded() != 2 {
		t.Errorf("succeeded = %d, want 2", report.Succeeded())
	}
}

func TestPublishReportCompleteWhenAllChannelsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	token := writeToken(t, "token", "tok")
	c, targets := newCoordinator(t, server.URL, server.URL+"/upload",
		config.Channel{Name: "one", TokenFile: token, ExpectedChannelID: "UCone"},
		config.Channel{Name: "two", TokenFile: token, ExpectedChannelID: "UCtwo"},
		config.Channel{Name: "three", TokenFile: token, ExpectedChannelID: "UCthree"},
	)

	report := c.Publish(context.Background(), testClip(t), targets)
	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(report.Results))
	}
	for _, result := range report.Results {
		if result.Status != StatusFailed {
			t.Errorf("channel %s status = %s, want failed", result.Channel, result.Status)
		}
		if result.ErrorReason == "" {
			t.Errorf("channel %s has empty error reason", result.Channel)
		}
	}
}

func TestPublishSkipsChannelWithoutToken(t *testing.T) {
	c, targets := newCoordinator(t, "http://unused.invalid", "http://unused.invalid/upload",
		config.Channel{Name: "one", TokenFile: "", ExpectedChannelID: "UCone"},
	)
	report := c.Publish(context.Background(), testClip(t), targets)
	if len(report.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(report.Results))
	}
	result := report.Results[0]
	if result.Status != StatusSkipped || result.FailureKind != FailureAuthenticationMissing {
		t.Errorf("result = %+v, want skipped authentication_missing", result)
	}
}

func TestUploaderRetriesChunkInPlace(t *testing.T) {
	puts := 0
	failedOnce := false
	var ranges []string
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session")
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		puts++
		ranges = append(ranges, r.Header.Get("Content-Range"))
		if !failedOnce {
			failedOnce = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.Contains(r.Header.Get("Content-Range"), "9/10") {
			fmt.Fprint(w, `{"id":"vid42"}`)
			return
		}
		w.WriteHeader(308)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	u := &Uploader{
		client:    server.Client(),
		baseURL:   server.URL + "/upload",
		chunkSize: 4,
		retries:   2,
		logger:    logging.NewNop(),
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	videoID, err := u.Upload(context.Background(), "tok", Metadata{Title: "t", PrivacyStatus: "public"}, path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if videoID != "vid42" {
		t.Errorf("videoID = %q, want vid42", videoID)
	}
	// Three chunks of a 10-byte file at chunk size 4, plus one retried PUT.
	if puts != 4 {
		t.Errorf("PUT count = %d, want 4: %v", puts, ranges)
	}
	if ranges[0] != ranges[1] {
		t.Errorf("retry should resend the same range, got %q then %q", ranges[0], ranges[1])
	}
	if want := "bytes 0-3/10"; ranges[0] != want {
		t.Errorf("first range = %q, want %q", ranges[0], want)
	}
}

func TestWrapTransportErrorClassification(t *testing.T) {
	deadline := wrapTransportError("send chunk", context.DeadlineExceeded)
	if !errors.Is(deadline, services.ErrTimeout) {
		t.Fatalf("deadline expiry should classify as timeout, got %v", deadline)
	}
	if kind, _ := classifyFailure(deadline); kind != FailureUploadTimeout {
		t.Fatalf("deadline expiry kind = %s, want %s", kind, FailureUploadTimeout)
	}

	canceled := wrapTransportError("send chunk", context.Canceled)
	if errors.Is(canceled, services.ErrTimeout) {
		t.Fatalf("cancellation must not classify as timeout: %v", canceled)
	}
	if !errors.Is(canceled, context.Canceled) {
		t.Fatalf("cancellation should stay in the chain: %v", canceled)
	}
	if kind, _ := classifyFailure(canceled); kind != FailureNetworkError {
		t.Fatalf("cancellation kind = %s, want %s", kind, FailureNetworkError)
	}
}

func TestUploaderDoesNotRetryRejectedChunk(t *testing.T) {
	puts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://"+r.Host+"/session")
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		puts++
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	u := &Uploader{
		client:    server.Client(),
		baseURL:   server.URL + "/upload",
		chunkSize: 4,
		retries:   3,
		logger:    logging.NewNop(),
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := u.Upload(context.Background(), "tok", Metadata{Title: "t"}, path)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Errorf("expected rejection error, got %v", err)
	}
	if puts != 1 {
		t.Errorf("PUT count = %d, want 1 (no retry on rejection)", puts)
	}
}
