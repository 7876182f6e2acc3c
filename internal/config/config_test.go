package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmill/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clipmill.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
[discovery]
api_key = "k"
query = "mih lecture"

[scoring]
topic_terms = ["MIH"]

[[publishing.channels]]
name = "main"
expected_channel_id = "UCabc"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Scoring.MinClipSeconds != 15 || cfg.Scoring.MaxClipSeconds != 90 {
		t.Fatalf("expected default clip bounds, got %v/%v", cfg.Scoring.MinClipSeconds, cfg.Scoring.MaxClipSeconds)
	}
	if cfg.Scoring.ScoreThreshold != 0.1 {
		t.Fatalf("expected default score threshold, got %v", cfg.Scoring.ScoreThreshold)
	}
	if cfg.Tools.FFmpegBinary != "ffmpeg" {
		t.Fatalf("expected default ffmpeg binary, got %q", cfg.Tools.FFmpegBinary)
	}
	if cfg.Publishing.Channels[0].PrivacyStatus != "public" {
		t.Fatalf("expected default privacy status, got %q", cfg.Publishing.Channels[0].PrivacyStatus)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	body := strings.Replace(minimalConfig, `api_key = "k"`, "", 1)
	t.Setenv("YOUTUBE_API_KEY", "")
	os.Unsetenv("YOUTUBE_API_KEY")
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "discovery.api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	body := strings.Replace(minimalConfig, `api_key = "k"`, "", 1)
	t.Setenv("YOUTUBE_API_KEY", "env-key")
	cfg, _, _, err := config.Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Discovery.APIKey != "env-key" {
		t.Fatalf("expected env api key, got %q", cfg.Discovery.APIKey)
	}
}

func TestValidateRejectsInvertedClipBounds(t *testing.T) {
	body := strings.Replace(minimalConfig, `topic_terms = ["MIH"]`,
		"topic_terms = [\"MIH\"]\nmin_clip_seconds = 120\nmax_clip_seconds = 30", 1)
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "min_clip_seconds") {
		t.Fatalf("expected clip bounds error, got %v", err)
	}
}

func TestValidateRejectsDuplicateChannels(t *testing.T) {
	body := minimalConfig + `
[[publishing.channels]]
name = "main"
expected_channel_id = "UCdef"
`
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "duplicate channel name") {
		t.Fatalf("expected duplicate channel error, got %v", err)
	}
}

func TestValidateRejectsUnknownEncoder(t *testing.T) {
	body := minimalConfig + "\n[rendering]\nencoder = \"magic\"\n"
	_, _, _, err := config.Load(writeConfig(t, body))
	if err == nil || !strings.Contains(err.Error(), "unknown encoder") {
		t.Fatalf("expected encoder error, got %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
	// Sample config has no API key, so Load should fail validation, not parsing.
	t.Setenv("YOUTUBE_API_KEY", "")
	os.Unsetenv("YOUTUBE_API_KEY")
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "discovery.api_key") {
		t.Fatalf("expected validation error from sample config, got %v", err)
	}
}
