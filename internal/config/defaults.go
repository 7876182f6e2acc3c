package config

const (
	defaultStagingDir  = "~/.local/share/clipmill/staging"
	defaultLogDir      = "~/.local/share/clipmill/logs"
	defaultStateDir    = "~/.local/share/clipmill/state"
	defaultReportDir   = "~/.local/share/clipmill/reports"
	defaultYtDlp       = "yt-dlp"
	defaultFFmpeg      = "ffmpeg"
	defaultFFprobe     = "ffprobe"
	defaultSearchURL   = "https://www.googleapis.com/youtube/v3"
	defaultUploadURL   = "https://www.googleapis.com/upload/youtube/v3/videos"
	defaultMaxResults  = 25
	defaultMinSourceDuration = 300

	defaultMinClipSeconds = 15
	defaultMaxClipSeconds = 90
	defaultStepSeconds    = 5
	defaultScoreThreshold = 0.1
	defaultMaxCandidates  = 5

	defaultTargetWidth    = 1080
	defaultTargetHeight   = 1920
	defaultIntroSeconds   = 3
	defaultOutroSeconds   = 4
	defaultMinOutputBytes = 1024
	defaultStageTimeout   = 300

	defaultChunkSizeMiB      = 8
	defaultChunkRetries      = 3
	defaultChunkBackoff      = 5
	defaultUploadTimeout     = 900
	defaultInterChannelDelay = 30
	defaultInterClipDelay    = 60
	defaultInterVideoDelay   = 120
	defaultPrivacyStatus     = "public"

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120
	defaultTranscriptTimeout  = 120
	defaultDownloadTimeout    = 900

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
			ReportDir:  defaultReportDir,
		},
		Tools: Tools{
			YtDlpBinary:   defaultYtDlp,
			FFmpegBinary:  defaultFFmpeg,
			FFprobeBinary: defaultFFprobe,
		},
		Discovery: Discovery{
			BaseURL:     defaultSearchURL,
			MaxResults:  defaultMaxResults,
			MinDuration: defaultMinSourceDuration,
		},
		Scoring: Scoring{
			MinClipSeconds: defaultMinClipSeconds,
			MaxClipSeconds: defaultMaxClipSeconds,
			StepSeconds:    defaultStepSeconds,
			ScoreThreshold: defaultScoreThreshold,
			MaxCandidates:  defaultMaxCandidates,
		},
		Rendering: Rendering{
			TargetWidth:         defaultTargetWidth,
			TargetHeight:        defaultTargetHeight,
			CaptionsEnabled:     true,
			IntroEnabled:        true,
			IntroSeconds:        defaultIntroSeconds,
			OutroEnabled:        true,
			OutroSeconds:        defaultOutroSeconds,
			MinOutputBytes:      defaultMinOutputBytes,
			StageTimeoutSeconds: defaultStageTimeout,
		},
		Publishing: Publishing{
			UploadBaseURL:            defaultUploadURL,
			ChunkSizeMiB:             defaultChunkSizeMiB,
			ChunkRetries:             defaultChunkRetries,
			ChunkRetryBackoffSeconds: defaultChunkBackoff,
			UploadTimeoutSeconds:     defaultUploadTimeout,
			InterChannelDelaySeconds: defaultInterChannelDelay,
			InterClipDelaySeconds:    defaultInterClipDelay,
			InterVideoDelaySeconds:   defaultInterVideoDelay,
		},
		Workflow: Workflow{
			QueuePollInterval:        defaultQueuePollInterval,
			ErrorRetryInterval:       defaultErrorRetryInterval,
			HeartbeatInterval:        defaultHeartbeatInterval,
			HeartbeatTimeout:         defaultHeartbeatTimeout,
			TranscriptTimeoutSeconds: defaultTranscriptTimeout,
			DownloadTimeoutSeconds:   defaultDownloadTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			VideoProcessed: true,
			ClipPublished:  true,
			Errors:         true,
		},
	}
}
