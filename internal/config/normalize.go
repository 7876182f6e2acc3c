package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeDiscovery()
	c.normalizeScoring()
	c.normalizeRendering()
	if err := c.normalizePublishing(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.YtDlpBinary) == "" {
		c.Tools.YtDlpBinary = defaultYtDlp
	}
	if strings.TrimSpace(c.Tools.FFmpegBinary) == "" {
		c.Tools.FFmpegBinary = defaultFFmpeg
	}
	if strings.TrimSpace(c.Tools.FFprobeBinary) == "" {
		c.Tools.FFprobeBinary = defaultFFprobe
	}
}

func (c *Config) normalizeDiscovery() {
	if c.Discovery.APIKey == "" {
		if value, ok := os.LookupEnv("YOUTUBE_API_KEY"); ok {
			c.Discovery.APIKey = value
		}
	}
	c.Discovery.BaseURL = strings.TrimSpace(c.Discovery.BaseURL)
	if c.Discovery.BaseURL == "" {
		c.Discovery.BaseURL = defaultSearchURL
	}
	if c.Discovery.MaxResults <= 0 {
		c.Discovery.MaxResults = defaultMaxResults
	}
}

func (c *Config) normalizeScoring() {
	terms := make([]string, 0, len(c.Scoring.TopicTerms))
	for _, term := range c.Scoring.TopicTerms {
		if trimmed := strings.TrimSpace(term); trimmed != "" {
			terms = append(terms, trimmed)
		}
	}
	c.Scoring.TopicTerms = terms
	if c.Scoring.MinClipSeconds <= 0 {
		c.Scoring.MinClipSeconds = defaultMinClipSeconds
	}
	if c.Scoring.MaxClipSeconds <= 0 {
		c.Scoring.MaxClipSeconds = defaultMaxClipSeconds
	}
	if c.Scoring.StepSeconds <= 0 {
		c.Scoring.StepSeconds = defaultStepSeconds
	}
	if c.Scoring.MaxCandidates <= 0 {
		c.Scoring.MaxCandidates = defaultMaxCandidates
	}
}

func (c *Config) normalizeRendering() {
	if c.Rendering.TargetWidth <= 0 {
		c.Rendering.TargetWidth = defaultTargetWidth
	}
	if c.Rendering.TargetHeight <= 0 {
		c.Rendering.TargetHeight = defaultTargetHeight
	}
	if c.Rendering.IntroSeconds <= 0 {
		c.Rendering.IntroSeconds = defaultIntroSeconds
	}
	if c.Rendering.OutroSeconds <= 0 {
		c.Rendering.OutroSeconds = defaultOutroSeconds
	}
	if c.Rendering.MinOutputBytes <= 0 {
		c.Rendering.MinOutputBytes = defaultMinOutputBytes
	}
	if c.Rendering.StageTimeoutSeconds <= 0 {
		c.Rendering.StageTimeoutSeconds = defaultStageTimeout
	}
}

func (c *Config) normalizePublishing() error {
	c.Publishing.UploadBaseURL = strings.TrimSpace(c.Publishing.UploadBaseURL)
	if c.Publishing.UploadBaseURL == "" {
		c.Publishing.UploadBaseURL = defaultUploadURL
	}
	if c.Publishing.ChunkSizeMiB <= 0 {
		c.Publishing.ChunkSizeMiB = defaultChunkSizeMiB
	}
	if c.Publishing.ChunkRetries <= 0 {
		c.Publishing.ChunkRetries = defaultChunkRetries
	}
	if c.Publishing.ChunkRetryBackoffSeconds <= 0 {
		c.Publishing.ChunkRetryBackoffSeconds = defaultChunkBackoff
	}
	if c.Publishing.UploadTimeoutSeconds <= 0 {
		c.Publishing.UploadTimeoutSeconds = defaultUploadTimeout
	}
	if c.Publishing.InterChannelDelaySeconds < 0 {
		c.Publishing.InterChannelDelaySeconds = defaultInterChannelDelay
	}
	for i := range c.Publishing.Channels {
		ch := &c.Publishing.Channels[i]
		ch.Name = strings.TrimSpace(ch.Name)
		ch.ExpectedChannelID = strings.TrimSpace(ch.ExpectedChannelID)
		if strings.TrimSpace(ch.PrivacyStatus) == "" {
			ch.PrivacyStatus = defaultPrivacyStatus
		}
		var err error
		if ch.TokenFile, err = expandPath(ch.TokenFile); err != nil {
			return fmt.Errorf("publishing.channels[%d].token_file: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if c.Workflow.TranscriptTimeoutSeconds <= 0 {
		c.Workflow.TranscriptTimeoutSeconds = defaultTranscriptTimeout
	}
	if c.Workflow.DownloadTimeoutSeconds <= 0 {
		c.Workflow.DownloadTimeoutSeconds = defaultDownloadTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CLIPMILL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = 10
	}
}
