package audio

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// hallucinationPhrases are boilerplate lines whisper invents over music
// beds. Matched case-insensitively against each transcript line.
var hallucinationPhrases = []string{
	"subscribe to", "subscribe channel", "like and share",
	"comment below", "thanks for watching", "copyright",
	"all rights reserved", "follow us on", "press the bell icon",
	"prastutra", "video by", "audio by", "praastuti",
}

// similarThreshold marks adjacent lines as duplicates.
const similarThreshold = 0.85

// CleanHallucinations drops spam lines, low-diversity loops and adjacent
// near-duplicate lines from a raw transcript.
func CleanHallucinations(text string) string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)

		if containsAny(lower, hallucinationPhrases) {
			continue
		}
		// Repetitive loops like "na kar de na kar de na kar de".
		if len(line) > 10 && distinctWords(line) < 4 {
			continue
		}
		if len(cleaned) > 0 && Similarity(line, cleaned[len(cleaned)-1]) > similarThreshold {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here is the transliterated text[:\s]*`),
	regexp.MustCompile(`(?i)^here is the transliteration[:\s]*`),
	regexp.MustCompile(`(?i)^here are the lyrics[:\s]*`),
	regexp.MustCompile(`(?i)^sure,? here is .*?[:\s]*`),
	regexp.MustCompile(`(?i)^transliteration[:\s]*`),
	regexp.MustCompile(`(?i)^romanized text[:\s]*`),
	regexp.MustCompile(`(?i)^output[:\s]*`),
}

// CleanLLMResponse strips conversational filler prefixes from model output.
func CleanLLMResponse(text string) string {
	text = strings.TrimSpace(text)
	for _, p := range fillerPatterns {
		text = strings.TrimSpace(p.ReplaceAllString(text, ""))
	}
	return text
}

// IsLatinScript reports whether the language code resolves to Latin
// script. Non-Latin transcripts go through romanization.
func IsLatinScript(code string) bool {
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	script, conf := tag.Script()
	if conf == language.No {
		return false
	}
	return script.String() == "Latn"
}

// Similarity returns a 0..1 score for how alike two strings are, using
// twice the longest common subsequence over the combined length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[lb]
	return float64(2*lcs) / float64(la+lb)
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

func distinctWords(line string) int {
	seen := make(map[string]struct{})
	for _, word := range strings.Fields(line) {
		seen[word] = struct{}{}
	}
	return len(seen)
}
