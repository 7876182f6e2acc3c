package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Discovery.APIKey = "test"
	cfgVal.Discovery.Query = "test topic"
	cfgVal.Scoring.TopicTerms = []string{"test"}
	cfgVal.Publishing.Channels = []config.Channel{{
		Name:              "test-channel",
		ExpectedChannelID: "UCtest",
		PrivacyStatus:     "unlisted",
	}}
	cfgVal.Publishing.InterChannelDelaySeconds = 0
	cfgVal.Publishing.InterClipDelaySeconds = 0
	cfgVal.Publishing.InterVideoDelaySeconds = 0
	cfgVal.Publishing.ChunkRetryBackoffSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithChannels replaces the publish targets on the test config.
func WithChannels(channels ...config.Channel) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publishing.Channels = channels
	}
}

// WithTopicTerms overrides the scoring topic terms.
func WithTopicTerms(terms ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scoring.TopicTerms = terms
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default clipmill external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
