package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if strings.TrimSpace(c.Download.YtDlpBinary) == "" {
		return errors.New("download.ytdlp_binary must be set")
	}
	if strings.TrimSpace(c.Download.FFmpegBinary) == "" {
		return errors.New("download.ffmpeg_binary must be set")
	}
	if c.Download.MaxHeight <= 0 {
		return errors.New("download.max_height must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.ChatModel) == "" {
		return errors.New("llm.chat_model must be set")
	}
	if c.LLM.ContextWindow < 0 {
		return errors.New("llm.context_window must not be negative")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if strings.TrimSpace(c.Embedding.Model) == "" {
		return errors.New("embedding.model must be set")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
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
