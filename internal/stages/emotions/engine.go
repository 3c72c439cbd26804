package emotions

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
)

const (
	// Label is the stage's name on the progress protocol.
	Label = "Emotions"

	systemPrompt = "You are an emotional analysis AI. Output JSON only."

	// minContextChars short-circuits trivially small inputs.
	minContextChars = 10
	// maxContextChars caps the prompt to keep the request small.
	maxContextChars = 4000
	// estimatedTokens sizes the streaming progress bar. The tag list is
	// short.
	estimatedTokens = 50
)

// Engine derives a small set of emotional tags from whatever context text
// the earlier stages produced.
type Engine struct {
	llm      *ollama.Client
	reporter *progress.Reporter
	logger   *slog.Logger
}

// NewEngine constructs an emotions engine.
func NewEngine(llm *ollama.Client, reporter *progress.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{llm: llm, reporter: reporter, logger: logger}
}

// Derive extracts lowercase emotional tags from contextText. Inputs too
// short to carry mood return an empty list without touching the model.
func (e *Engine) Derive(ctx context.Context, contextText string) ([]string, error) {
	if len(strings.TrimSpace(contextText)) < minContextChars {
		return []string{}, nil
	}

	e.reporter.Status(Label, "Analyzing Context...", 100)
	e.reporter.Percent(Label, 0, 100)

	tokenCount := 0
	content, err := e.llm.ChatStream(ctx, []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(contextText)},
	}, func(string) {
		tokenCount++
		if tokenCount%2 == 0 {
			percent := min(tokenCount*100/estimatedTokens, 99)
			e.reporter.Percent(Label, percent, 100)
		}
	})
	if err != nil {
		return nil, err
	}
	e.reporter.Percent(Label, 100, 100)

	tags := parseTags(content)
	e.logger.Info("derived emotional tags", logging.Int("count", len(tags)))
	return tags, nil
}

func buildPrompt(contextText string) string {
	if len(contextText) > maxContextChars {
		contextText = contextText[:maxContextChars]
	}

	var b strings.Builder
	b.WriteString("Task: Analyze the following content and extract 5-8 precise emotional tags.\n\n")
	b.WriteString("INPUT CONTEXT:\n")
	b.WriteString(`"` + contextText + `"` + "\n\n")
	b.WriteString(`INSTRUCTIONS:
1. Identify the core mood (e.g., "Melancholic", "Energetic", "Romantic").
2. Identify specific feelings (e.g., "Heartbreak", "Hopeful", "Aggressive").
3. Output ONLY a JSON list of strings.
4. Do not output broad genres like "Pop" or "Rock". Focus on EMOTION.

OUTPUT FORMAT:
["Emotion1", "Emotion2", "Emotion3"]
`)
	return b.String()
}

// parseTags recovers the JSON array from model output and normalizes
// every tag to trimmed lowercase. Non-string entries are dropped.
func parseTags(content string) []string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return []string{}
	}

	var raw []any
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return []string{}
	}

	tags := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			if tag := strings.ToLower(strings.TrimSpace(s)); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
