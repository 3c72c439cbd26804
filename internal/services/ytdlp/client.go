package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/calcifer-3118/yt-neural-miner/internal/services"
)

// SourceInfo is the metadata yt-dlp reports for a source URL.
type SourceInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Description string  `json:"description"`
	Channel     string  `json:"channel"`
	WebpageURL  string  `json:"webpage_url"`
}

// ProgressUpdate captures download progress output.
type ProgressUpdate struct {
	Percent float64
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp and ffmpeg CLI interactions for the source-fetch phase.
type Client struct {
	binary       string
	ffmpegBinary string
	maxHeight    int
	probeTimeout time.Duration
	cookiesFile  string
	exec         Executor
}

// New constructs a source-fetch client.
func New(binary, ffmpegBinary string, maxHeight, probeTimeoutSeconds int, cookiesFile string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:       binary,
		ffmpegBinary: ffmpegBinary,
		maxHeight:    maxHeight,
		probeTimeout: time.Duration(probeTimeoutSeconds) * time.Second,
		cookiesFile:  strings.TrimSpace(cookiesFile),
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Probe fetches source metadata without downloading media.
func (c *Client) Probe(ctx context.Context, url string) (*SourceInfo, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("source url required")
	}

	probeCtx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	args := []string{"--dump-json", "--no-download", "--no-playlist", "--no-warnings"}
	args = c.appendCookies(args)
	args = append(args, url)

	var jsonLine string
	err := c.exec.Run(probeCtx, c.binary, args, func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			jsonLine = trimmed
		}
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "Downloading", "probe", "yt-dlp failed", err)
	}
	if jsonLine == "" {
		return nil, errors.New("yt-dlp probe: no metadata returned")
	}

	var info SourceInfo
	if err := json.Unmarshal([]byte(jsonLine), &info); err != nil {
		return nil, fmt.Errorf("yt-dlp probe: decode metadata: %w", err)
	}
	return &info, nil
}

// Download fetches the source media into destDir as video.mp4, forwarding
// percent updates while the transfer runs.
func (c *Client) Download(ctx context.Context, url, destDir string, progress func(ProgressUpdate)) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	format := fmt.Sprintf(
		"bestvideo[height<=%d][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		c.maxHeight,
	)
	args := []string{
		"-f", format,
		"-o", filepath.Join(destDir, "video.%(ext)s"),
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--remux-video", "mp4",
	}
	args = c.appendCookies(args)
	args = append(args, url)

	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if update, ok := parseDownloadProgress(line); ok && progress != nil {
			progress(update)
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "Downloading", "fetch", "yt-dlp failed", err)
	}

	return normalizeVideoName(destDir)
}

// ExtractAudio strips the audio track from the downloaded video into an mp3.
func (c *Client) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		audioPath,
	}
	if err := c.exec.Run(ctx, c.ffmpegBinary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "Audio Extraction", "demux", "ffmpeg failed", err)
	}
	return nil
}

func (c *Client) appendCookies(args []string) []string {
	if c.cookiesFile == "" {
		return args
	}
	if _, err := os.Stat(c.cookiesFile); err != nil {
		return args
	}
	return append(args, "--cookies", c.cookiesFile)
}

var downloadPercentPattern = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

func parseDownloadProgress(line string) (ProgressUpdate, bool) {
	match := downloadPercentPattern.FindStringSubmatch(line)
	if match == nil {
		return ProgressUpdate{}, false
	}
	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{Percent: percent}, true
}

// normalizeVideoName makes sure the downloaded media sits at video.mp4 even
// when the source container could not be remuxed.
func normalizeVideoName(destDir string) error {
	target := filepath.Join(destDir, "video.mp4")
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(destDir, "video.*"))
	if err != nil {
		return fmt.Errorf("scan downloads: %w", err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") {
			continue
		}
		return os.Rename(match, target)
	}
	return errors.New("download finished but no video file found")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
