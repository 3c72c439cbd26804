// Package video narrates a downloaded video. It samples frames per time
// chunk with ffmpeg, asks a vision model to describe each chunk with the
// previous scene as carried context, then distills a master story summary
// over the scene log.
package video
