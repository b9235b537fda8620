// Package parseaudio implements the `audio` coarse-type leaf action:
// parse_audio_metadata_and_store, grounded on original_source's
// parse_audio.py (Supplemented Feature, SPEC_FULL.md §10). It has no
// workflow of its own — audio never recurses into P0.
package parseaudio

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
	"github.com/liquidinvestigations/hoover4/pkg/chstore"
	"github.com/liquidinvestigations/hoover4/pkg/model"
)

// Activities bundles the columnar store dependency.
type Activities struct {
	CH *chstore.Store
}

// Input drives the activity.
type Input struct {
	Dataset   string
	ItemHash  string
	LocalPath string
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	Duration string `json:"duration"`
}

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

// durationSeconds prefers format.duration, falling back to the max
// stream duration, mirroring parse_audio.py's _duration_seconds.
func durationSeconds(probe ffprobeOutput) float64 {
	var d float64
	if _, err := fmt.Sscanf(probe.Format.Duration, "%g", &d); err == nil && d > 0 {
		return d
	}
	var maxD float64
	for _, s := range probe.Streams {
		var sd float64
		if _, err := fmt.Sscanf(s.Duration, "%g", &sd); err == nil && sd > maxD {
			maxD = sd
		}
	}
	return maxD
}

// ParseMetadataAndStore is parse_audio_metadata_and_store.
func (a *Activities) ParseMetadataAndStore(ctx context.Context, in Input) error {
	hash, err := blob.Parse(in.ItemHash)
	if err != nil {
		return err
	}

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error", "-print_format", "json", "-show_format", "-show_streams", in.LocalPath).Output()
	if err != nil {
		return fmt.Errorf("parseaudio: ffprobe: %w", err)
	}

	var probe ffprobeOutput
	_ = json.Unmarshal(out, &probe) // malformed JSON still gets archived below.
	duration := durationSeconds(probe)

	wrapped := struct {
		FFProbe         json.RawMessage `json:"ffprobe"`
		DurationSeconds float64         `json:"duration_seconds"`
	}{FFProbe: out, DurationSeconds: duration}
	metadataJSON, err := json.Marshal(wrapped)
	if err != nil {
		return err
	}

	return a.CH.InsertAudioMetadata(ctx, model.AudioMetadata{
		Dataset: in.Dataset, Hash: hash,
		MetadataJSON: string(metadataJSON), ProcessedAt: time.Now().UTC(),
	})
}
