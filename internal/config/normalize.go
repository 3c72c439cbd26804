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
	c.normalizeDatabase()
	c.normalizeLogging()
	c.normalizeWorkflow()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ModelsDir, err = expandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if c.Paths.CookiesFile, err = expandPath(c.Paths.CookiesFile); err != nil {
		return fmt.Errorf("paths.cookies_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	url := strings.TrimSpace(c.Database.URL)
	if url == "" {
		if env := os.Getenv("MINER_DB_URL"); env != "" {
			url = env
		} else if env := os.Getenv("DATABASE_URL"); env != "" {
			url = env
		}
	}
	// Strip driver-side query parameters the pool does not understand.
	if idx := strings.Index(url, "?"); idx >= 0 && strings.Contains(url[idx:], "pgbouncer") {
		url = url[:idx]
	}
	c.Database.URL = url
	if c.Database.ConnectTimeout <= 0 {
		c.Database.ConnectTimeout = defaultConnectTimeout
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

func (c *Config) normalizeWorkflow() {
	if c.Workflow.CancelPollMillis <= 0 {
		c.Workflow.CancelPollMillis = defaultCancelPollMillis
	}
	if c.Workflow.MinFreeDiskGiB < 0 {
		c.Workflow.MinFreeDiskGiB = 0
	}
}
