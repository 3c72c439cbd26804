package stages

import (
	"github.com/calcifer-3118/yt-neural-miner/internal/runfs"
)

// Name identifies a mining stage.
type Name string

const (
	// NameMetadata extracts structured song metadata from title and description.
	NameMetadata Name = "metadata"
	// NameAudio transcribes and romanizes the audio track.
	NameAudio Name = "audio"
	// NameVideo narrates the visual content scene by scene.
	NameVideo Name = "video"
	// NameEmotions derives emotional tags from the accumulated context.
	NameEmotions Name = "emotions"
)

// Order returns stage names in their fixed execution order. Later stages
// read artifacts earlier stages produce, so the order never changes.
func Order() []Name {
	return []Name{NameMetadata, NameAudio, NameVideo, NameEmotions}
}

// Descriptor describes one stage's identity and artifact contract.
type Descriptor struct {
	Name Name
	// Label is the human-facing name used on the progress protocol.
	Label string
	// ArtifactName is the file the stage writes under the run directory.
	ArtifactName string
	// ArtifactKind selects the non-triviality check for the cache.
	ArtifactKind runfs.Kind
	// SoftDeps lists artifact files the stage reads when present. A missing
	// soft dependency never blocks the stage.
	SoftDeps []string
	// AnnounceCompletion makes the coordinator emit the final 100 event
	// after the artifact is written. The video engine reports its own
	// completion under its analysis label.
	AnnounceCompletion bool
}

var descriptors = map[Name]Descriptor{
	NameMetadata: {
		Name:               NameMetadata,
		Label:              "Metadata",
		ArtifactName:       runfs.MetadataFile,
		ArtifactKind:       runfs.KindJSON,
		AnnounceCompletion: true,
	},
	NameAudio: {
		Name:               NameAudio,
		Label:              "Audio",
		ArtifactName:       runfs.TranscriptFile,
		ArtifactKind:       runfs.KindText,
		AnnounceCompletion: true,
	},
	NameVideo: {
		Name:         NameVideo,
		Label:        "Video",
		ArtifactName: runfs.NarrativeFile,
		ArtifactKind: runfs.KindText,
	},
	NameEmotions: {
		Name:               NameEmotions,
		Label:              "Emotions",
		ArtifactName:       runfs.EmotionsFile,
		ArtifactKind:       runfs.KindJSON,
		SoftDeps:           []string{runfs.NarrativeFile},
		AnnounceCompletion: true,
	},
}

// Describe returns the descriptor for a stage name.
func Describe(name Name) (Descriptor, bool) {
	desc, ok := descriptors[name]
	return desc, ok
}

// Valid reports whether name is a known stage.
func Valid(name Name) bool {
	_, ok := descriptors[name]
	return ok
}

// Expand resolves a requested stage list into the fixed-order subset to run.
// The literal "all" selects every stage. Unknown names are dropped.
func Expand(requested []string) []Name {
	if len(requested) == 0 {
		requested = []string{"all"}
	}
	want := make(map[Name]bool, len(requested))
	for _, raw := range requested {
		if raw == "all" {
			for _, name := range Order() {
				want[name] = true
			}
			continue
		}
		if name := Name(raw); Valid(name) {
			want[name] = true
		}
	}
	var result []Name
	for _, name := range Order() {
		if want[name] {
			result = append(result, name)
		}
	}
	return result
}
