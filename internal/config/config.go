package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
	ModelsDir   string `toml:"models_dir"`
	CookiesFile string `toml:"cookies_file"`
}

// Download contains configuration for the source-fetch collaborators.
type Download struct {
	YtDlpBinary  string `toml:"ytdlp_binary"`
	FFmpegBinary string `toml:"ffmpeg_binary"`
	MaxHeight    int    `toml:"max_height"`
	ProbeTimeout int    `toml:"probe_timeout"`
}

// Whisper contains configuration for speech-to-text transcription.
type Whisper struct {
	Binary      string `toml:"binary"`
	Model       string `toml:"model"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
}

// LLM contains connection settings for the local model server used by the
// metadata, audio transliteration, video, and emotion stages.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	ChatModel      string `toml:"chat_model"`
	VisionModel    string `toml:"vision_model"`
	ContextWindow  int    `toml:"context_window"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Embedding contains settings for the vector embedding collaborator.
type Embedding struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Dimensions     int    `toml:"dimensions"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Database contains connection settings for the relational+vector store.
type Database struct {
	URL            string `toml:"url"`
	ConnectTimeout int    `toml:"connect_timeout"`
}

// Workflow contains pipeline timing knobs.
type Workflow struct {
	CancelPollMillis int `toml:"cancel_poll_millis"`
	MinFreeDiskGiB   int `toml:"min_free_disk_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the miner.
//
// Configuration sections by subsystem:
//   - Paths: run output root, log directory, model cache override
//   - Download: yt-dlp and ffmpeg invocation settings
//   - Whisper: speech-to-text model selection
//   - LLM: local model server shared by the enrichment stages
//   - Embedding: vector embedding collaborator
//   - Database: relational+vector store for the sync phase
//   - Workflow: cancellation polling and preflight thresholds
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Download  Download  `toml:"download"`
	Whisper   Whisper   `toml:"whisper"`
	LLM       LLM       `toml:"llm"`
	Embedding Embedding `toml:"embedding"`
	Database  Database  `toml:"database"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/miner/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
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
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
// It refuses to overwrite an existing file.
func WriteSample(path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return "", fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write sample config: %w", err)
	}
	return expanded, nil
}

// EnsureDirectories creates the output and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	return abs, nil
}
