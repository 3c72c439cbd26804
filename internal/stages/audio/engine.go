package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calcifer-3118/yt-neural-miner/internal/logging"
	"github.com/calcifer-3118/yt-neural-miner/internal/progress"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/ollama"
	"github.com/calcifer-3118/yt-neural-miner/internal/services/whisper"
)

// Label is the stage's name on the progress protocol.
const Label = "Audio"

const romanizeSystemPrompt = "You are a raw data converter. You output ONLY the processed text. You are NOT a chat assistant."

// Engine transcribes the audio track and romanizes non-Latin scripts so
// the transcript is searchable alongside the rest of the corpus.
type Engine struct {
	whisper  *whisper.Service
	llm      *ollama.Client
	reporter *progress.Reporter
	logger   *slog.Logger
}

// NewEngine constructs an audio engine.
func NewEngine(svc *whisper.Service, llm *ollama.Client, reporter *progress.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{whisper: svc, llm: llm, reporter: reporter, logger: logger}
}

// Process transcribes audioPath and returns the cleaned transcript. The
// romanization pass is best-effort: any model failure keeps the raw
// transcript rather than losing the stage.
func (e *Engine) Process(ctx context.Context, audioPath, workDir string) (string, error) {
	e.reporter.Status(Label, fmt.Sprintf("Loading Whisper (%s)...", e.whisper.Model()), 100)

	result, err := e.whisper.TranscribeFile(ctx, audioPath, workDir)
	if err != nil {
		return "", fmt.Errorf("audio: %w", err)
	}

	e.reporter.Status(Label, fmt.Sprintf("Transcribing (%s)...", result.Language), 100)
	transcript := CleanHallucinations(result.Text)
	if transcript == "" {
		return "", nil
	}

	if IsLatinScript(result.Language) {
		e.reporter.Percent(Label, 100, 100)
		return transcript, nil
	}

	romanized, err := e.romanize(ctx, result.Language, transcript)
	if err != nil {
		e.logger.Warn("romanization failed, keeping raw transcript",
			logging.String("language", result.Language), logging.Error(err))
		e.reporter.Percent(Label, 100, 100)
		return transcript, nil
	}
	e.reporter.Percent(Label, 100, 100)
	return romanized, nil
}

func (e *Engine) romanize(ctx context.Context, lang, transcript string) (string, error) {
	e.reporter.Status(Label, "Romanizing...", 100)
	e.reporter.Percent(Label, 0, 100)

	estimated := len(strings.Fields(transcript)) * 3 / 2
	if estimated < 1 {
		estimated = 1
	}

	tokenCount := 0
	content, err := e.llm.ChatStream(ctx, []ollama.Message{
		{Role: "system", Content: romanizeSystemPrompt},
		{Role: "user", Content: buildRomanizePrompt(lang, transcript)},
	}, func(string) {
		tokenCount++
		if tokenCount%10 == 0 {
			percent := min(tokenCount*100/estimated, 99)
			e.reporter.Percent(Label, percent, 100)
		}
	})
	if err != nil {
		return "", err
	}

	cleaned := CleanLLMResponse(content)
	if cleaned == "" {
		return "", fmt.Errorf("romanize: empty response")
	}
	return cleaned, nil
}

func buildRomanizePrompt(lang, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: Convert these %s lyrics to Roman/Latin script (Phonetic style).\n\n", lang)
	fmt.Fprintf(&b, "INPUT:\n%q\n\n", transcript)
	b.WriteString(`RULES:
1. OUTPUT ONLY THE LYRICS. NO "Here is..." or "Transliteration:".
2. Fix repetitions/loops.
3. Use simple English letters (No diacritics).
4. START DIRECTLY with the first word.
`)
	return b.String()
}
