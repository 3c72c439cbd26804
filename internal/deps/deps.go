package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/config"
)

// Requirement defines an external tool the miner relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements derives the external tool list from configuration.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Download.YtDlpBinary, Description: "source media download"},
		{Name: "ffmpeg", Command: cfg.Download.FFmpegBinary, Description: "audio extraction and frame sampling"},
		{Name: "whisper", Command: cfg.Whisper.Binary, Description: "speech-to-text transcription"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// FirstMissing returns the first unavailable required dependency, if any.
func FirstMissing(statuses []Status) (Status, bool) {
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			return status, true
		}
	}
	return Status{}, false
}
