package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
)

const (
	// Label is the stage's name on the progress protocol.
	Label = "Metadata"

	systemPrompt = "You are a precise Data Extractor. You NEVER summarize large text fields. You output valid JSON."

	// estimatedTokens sizes the streaming progress bar. Full lyrics make
	// responses long.
	estimatedTokens = 800
)

// Record is the structured metadata the stage produces. Field names match
// the sync schema; Summary keeps its historical capitalized key.
type Record struct {
	Movie          string   `json:"movie"`
	Singers        []string `json:"singers"`
	Cast           []string `json:"cast"`
	Language       string   `json:"language"`
	Country        string   `json:"country"`
	MusicDirector  string   `json:"musicDirector"`
	Lyricist       string   `json:"lyricist"`
	OfficialLyrics string   `json:"officialLyrics"`
	Summary        string   `json:"Summary"`

	// Source facts spliced in after extraction so the record is
	// self-contained for sync.
	Title    string  `json:"title,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	ID       string  `json:"id,omitempty"`
}

// Engine extracts structured metadata with an LLM, falling back to a
// deterministic record when the model is unreachable or returns garbage.
type Engine struct {
	llm      *ollama.Client
	reporter *progress.Reporter
	logger   *slog.Logger
}

// NewEngine constructs a metadata engine.
func NewEngine(llm *ollama.Client, reporter *progress.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{llm: llm, reporter: reporter, logger: logger}
}

// Extract derives a metadata record from the source title and description.
// It never fails: any model problem degrades to the fallback record.
func (e *Engine) Extract(ctx context.Context, title, description string) Record {
	e.reporter.Status(Label, "Checking Ollama...", 100)
	if err := e.llm.Ping(ctx); err != nil {
		e.logger.Warn("ollama unreachable, using fallback metadata", logging.Error(err))
		return Fallback(title, description)
	}

	e.reporter.Status(Label, "AI Generating...", 100)

	tokenCount := 0
	content, err := e.llm.ChatStream(ctx, []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(title, description)},
	}, func(string) {
		tokenCount++
		if tokenCount%10 == 0 {
			percent := min(tokenCount*100/estimatedTokens, 99)
			e.reporter.Percent(Label, percent, 100)
		}
	})
	if err != nil {
		e.logger.Warn("metadata extraction failed", logging.Error(err))
		return Fallback(title, description)
	}
	e.reporter.Percent(Label, 100, 100)

	record, ok := parseRecord(content)
	if !ok {
		e.logger.Warn("metadata response unparseable, using fallback")
		return Fallback(title, description)
	}

	// The model sometimes refuses long lyric fields despite the prompt.
	if strings.Contains(record.OfficialLyrics, "Too long to fit") {
		record.OfficialLyrics = description
	}
	return record
}

// Fallback returns a well-formed record when extraction is impossible.
func Fallback(title, description string) Record {
	lyrics := description
	if lyrics == "" {
		lyrics = "Not Available"
	}
	return Record{
		Movie:          "Unknown",
		Singers:        []string{"Unknown"},
		Cast:           []string{},
		Language:       "Unknown",
		Country:        "Unknown",
		MusicDirector:  "Unknown",
		Lyricist:       "Unknown",
		OfficialLyrics: lyrics,
		Summary:        fmt.Sprintf("Auto-generated summary for %s", title),
	}
}

func buildPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString("Task: Extract structured metadata from this YouTube Video.\n\n")
	b.WriteString("INPUT DATA:\n")
	fmt.Fprintf(&b, "Title: %q\n", title)
	fmt.Fprintf(&b, "Description: %q\n\n", description)
	b.WriteString(`CRITICAL INSTRUCTIONS:
1. "singers": List main Vocalists.
2. "movie": Movie/Album name.
3. "cast": List of Actors.
4. "language": Main language code (e.g., "hi", "en", "es").
5. "country": Country of origin (e.g., "India", "USA").
6. "musicDirector": Composer/Music Director.
7. "lyricist": Song Writer/Lyricist.
8. "officialLyrics": EXTRACT THE FULL LYRICS VERBATIM.
   - RULE: Do NOT summarize. Do NOT truncate. Do NOT write "Too long to fit".
   - RULE: You must include EVERY SINGLE LINE of lyrics found in the input.
   - Use \n for newlines.
   - If no lyrics exist, output "Not Available".
9. "Summary": Detailed summary/synopsis.

OUTPUT FORMAT (JSON ONLY):
{
  "movie": "String",
  "singers": ["Name"],
  "cast": ["Name"],
  "language": "String",
  "country": "String",
  "musicDirector": "String",
  "lyricist": "String",
  "officialLyrics": "String",
  "Summary": "String"
}
`)
	return b.String()
}

// parseRecord recovers a metadata record from model output that may wrap
// the JSON in prose or use sloppy quoting.
func parseRecord(content string) (Record, bool) {
	window := extractObject(content)
	if window == "" {
		return Record{}, false
	}

	var record Record
	if err := json.Unmarshal([]byte(window), &record); err == nil {
		return record, true
	}

	// Common model slop: single quotes and Python literals.
	fixed := strings.NewReplacer(
		"'", `"`,
		"None", "null",
		"True", "true",
		"False", "false",
	).Replace(window)
	if err := json.Unmarshal([]byte(fixed), &record); err == nil {
		return record, true
	}
	return Record{}, false
}

// extractObject returns the outermost {...} window in the text.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
