package config

const (
	defaultOutputDir        = "~/.local/share/miner/output"
	defaultLogDir           = "~/.local/share/miner/logs"
	defaultYtDlpBinary      = "yt-dlp"
	defaultFFmpegBinary     = "ffmpeg"
	defaultMaxHeight        = 720
	defaultProbeTimeout     = 60
	defaultWhisperBinary    = "whisper"
	defaultWhisperModel     = "large-v3"
	defaultLLMBaseURL       = "http://127.0.0.1:11434"
	defaultChatModel        = "llama3"
	defaultVisionModel      = "qwen2-vl"
	defaultContextWindow    = 8192
	defaultLLMTimeout       = 600
	defaultEmbeddingModel   = "bge-m3"
	defaultEmbeddingDims    = 1024
	defaultEmbeddingTimeout = 120
	defaultConnectTimeout   = 10
	defaultCancelPollMillis = 100
	defaultMinFreeDiskGiB   = 2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			YtDlpBinary:  defaultYtDlpBinary,
			FFmpegBinary: defaultFFmpegBinary,
			MaxHeight:    defaultMaxHeight,
			ProbeTimeout: defaultProbeTimeout,
		},
		Whisper: Whisper{
			Binary: defaultWhisperBinary,
			Model:  defaultWhisperModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			ChatModel:      defaultChatModel,
			VisionModel:    defaultVisionModel,
			ContextWindow:  defaultContextWindow,
			TimeoutSeconds: defaultLLMTimeout,
		},
		Embedding: Embedding{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultEmbeddingModel,
			Dimensions:     defaultEmbeddingDims,
			TimeoutSeconds: defaultEmbeddingTimeout,
		},
		Database: Database{
			ConnectTimeout: defaultConnectTimeout,
		},
		Workflow: Workflow{
			CancelPollMillis: defaultCancelPollMillis,
			MinFreeDiskGiB:   defaultMinFreeDiskGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
