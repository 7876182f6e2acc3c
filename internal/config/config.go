package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
	ReportDir  string `toml:"report_dir"`
}

// Tools contains paths to the external binaries the pipeline shells out to.
type Tools struct {
	YtDlpBinary   string `toml:"ytdlp_binary"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Discovery contains configuration for YouTube search.
type Discovery struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	Query       string `toml:"query"`
	MaxResults  int    `toml:"max_results"`
	MinDuration int    `toml:"min_duration_seconds"`
}

// Scoring contains the segment-relevance tuning knobs.
type Scoring struct {
	TopicTerms     []string `toml:"topic_terms"`
	MinClipSeconds float64  `toml:"min_clip_seconds"`
	MaxClipSeconds float64  `toml:"max_clip_seconds"`
	StepSeconds    float64  `toml:"step_seconds"`
	ScoreThreshold float64  `toml:"score_threshold"`
	MaxCandidates  int      `toml:"max_candidates"`
}

// Rendering contains clip assembly configuration.
type Rendering struct {
	TargetWidth         int    `toml:"target_width"`
	TargetHeight        int    `toml:"target_height"`
	CaptionsEnabled     bool   `toml:"captions_enabled"`
	IntroEnabled        bool   `toml:"intro_enabled"`
	IntroText           string `toml:"intro_text"`
	IntroSeconds        int    `toml:"intro_seconds"`
	OutroEnabled        bool   `toml:"outro_enabled"`
	OutroText           string `toml:"outro_text"`
	OutroSeconds        int    `toml:"outro_seconds"`
	MinOutputBytes      int64  `toml:"min_output_bytes"`
	StageTimeoutSeconds int    `toml:"stage_timeout_seconds"`
	Encoder             string `toml:"encoder"`
}

// Channel describes one publish target.
type Channel struct {
	Name              string `toml:"name"`
	TokenFile         string `toml:"token_file"`
	ExpectedChannelID string `toml:"expected_channel_id"`
	TagPrefix         string `toml:"tag_prefix"`
	DescriptionSuffix string `toml:"description_suffix"`
	PrivacyStatus     string `toml:"privacy_status"`
}

// Publishing contains upload and pacing configuration.
type Publishing struct {
	Channels                 []Channel `toml:"channels"`
	UploadBaseURL            string    `toml:"upload_base_url"`
	Hashtags                 []string  `toml:"hashtags"`
	ChunkSizeMiB             int       `toml:"chunk_size_mib"`
	ChunkRetries             int       `toml:"chunk_retries"`
	ChunkRetryBackoffSeconds int       `toml:"chunk_retry_backoff_seconds"`
	UploadTimeoutSeconds     int       `toml:"upload_timeout_seconds"`
	InterChannelDelaySeconds int       `toml:"inter_channel_delay_seconds"`
	InterClipDelaySeconds    int       `toml:"inter_clip_delay_seconds"`
	InterVideoDelaySeconds   int       `toml:"inter_video_delay_seconds"`
}

// Workflow contains daemon timing and intervals.
type Workflow struct {
	QueuePollInterval        int `toml:"queue_poll_interval"`
	ErrorRetryInterval       int `toml:"error_retry_interval"`
	HeartbeatInterval        int `toml:"heartbeat_interval"`
	HeartbeatTimeout         int `toml:"heartbeat_timeout"`
	TranscriptTimeoutSeconds int `toml:"transcript_timeout_seconds"`
	DownloadTimeoutSeconds   int `toml:"download_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	VideoProcessed bool   `toml:"video_processed"`
	ClipPublished  bool   `toml:"clip_published"`
	Errors         bool   `toml:"errors"`
}

// Config encapsulates all configuration values for clipmill.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Discovery     Discovery     `toml:"discovery"`
	Scoring       Scoring       `toml:"scoring"`
	Rendering     Rendering     `toml:"rendering"`
	Publishing    Publishing    `toml:"publishing"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/clipmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. A .env file next to the config
// (if present) is loaded first so secrets can stay out of the TOML file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		_ = godotenv.Load(filepath.Join(filepath.Dir(resolvedPath), ".env"))

		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("clipmill.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir, c.Paths.StateDir, c.Paths.ReportDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// ExpandPath expands a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
