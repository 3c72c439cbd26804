// Package whisper runs the whisper CLI for speech-to-text and loads its
// JSON output, including the detected source language that downstream
// transliteration relies on.
package whisper
