package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateRendering(); err != nil {
		return err
	}
	if err := c.validatePublishing(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if c.Discovery.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clipmill/config.toml"
		}
		return fmt.Errorf("discovery.api_key is required. Set YOUTUBE_API_KEY env var or edit %s (create with 'clipmill config init')", defaultPath)
	}
	if strings.TrimSpace(c.Discovery.Query) == "" {
		return errors.New("discovery.query must be set")
	}
	return nil
}

func (c *Config) validateScoring() error {
	if len(c.Scoring.TopicTerms) == 0 {
		return errors.New("scoring.topic_terms must contain at least one term")
	}
	if c.Scoring.MinClipSeconds > c.Scoring.MaxClipSeconds {
		return errors.New("scoring.min_clip_seconds must not exceed scoring.max_clip_seconds")
	}
	if c.Scoring.ScoreThreshold < 0 || c.Scoring.ScoreThreshold > 1 {
		return errors.New("scoring.score_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateRendering() error {
	if c.Rendering.Encoder != "" {
		switch c.Rendering.Encoder {
		case "h264_nvenc", "h264_qsv", "h264_vaapi", "libx264":
		default:
			return fmt.Errorf("rendering.encoder: unknown encoder %q", c.Rendering.Encoder)
		}
	}
	return nil
}

func (c *Config) validatePublishing() error {
	if len(c.Publishing.Channels) == 0 {
		return errors.New("publishing.channels must contain at least one channel")
	}
	seen := make(map[string]struct{}, len(c.Publishing.Channels))
	for i, ch := range c.Publishing.Channels {
		if ch.Name == "" {
			return fmt.Errorf("publishing.channels[%d].name must be set", i)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("publishing.channels: duplicate channel name %q", ch.Name)
		}
		seen[ch.Name] = struct{}{}
		switch ch.PrivacyStatus {
		case "public", "unlisted", "private":
		default:
			return fmt.Errorf("publishing.channels[%d].privacy_status: unknown value %q", i, ch.PrivacyStatus)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
