package runfs

import "path/filepath"

// Artifact file names are fixed per stage; their presence is the resume
// signal, so they must stay stable across versions.
const (
	MetadataFile   = "metadata.json"
	TranscriptFile = "transcript.txt"
	NarrativeFile  = "video_narrative.txt"
	EmotionsFile   = "emotions.json"
	AudioFile      = "audio.mp3"
	VideoFile      = "video.mp4"
)

// RunPaths names every artifact location for one run. One field per
// artifact kind keeps the surface static and rules out silent key
// mismatches between producers and consumers.
type RunPaths struct {
	Root       string
	Metadata   string
	Transcript string
	Narrative  string
	Emotions   string
	Audio      string
	Video      string
}

// PathsFor resolves the artifact layout for a run key under the output root.
func PathsFor(outputRoot, runKey string) RunPaths {
	root := filepath.Join(outputRoot, runKey)
	return RunPaths{
		Root:       root,
		Metadata:   filepath.Join(root, MetadataFile),
		Transcript: filepath.Join(root, TranscriptFile),
		Narrative:  filepath.Join(root, NarrativeFile),
		Emotions:   filepath.Join(root, EmotionsFile),
		Audio:      filepath.Join(root, AudioFile),
		Video:      filepath.Join(root, VideoFile),
	}
}
