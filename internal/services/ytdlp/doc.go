// Package ytdlp fetches source media through the yt-dlp and ffmpeg CLIs.
// It probes source metadata, downloads video capped at the configured
// resolution, and extracts the mp3 audio track used by transcription.
package ytdlp
