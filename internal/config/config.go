package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatSpec describes one target aspect ratio for export.
type FormatSpec struct {
	RatioID string
	Width   int
	Height  int
}

// FileName derives the deterministic output name for this format,
// e.g. prefix "video" and ratio "16:9" produce "video_16x9.mp4".
func (f FormatSpec) FileName(prefix string) string {
	return fmt.Sprintf("%s_%s.mp4", prefix, strings.ReplaceAll(f.RatioID, ":", "x"))
}

type Config struct {
	AssetsDir string
	OutputDir string

	// Base composition canvas.
	Width  int
	Height int
	FPS    int

	Workers int

	VideoEncoder string
	Quality      int

	// Asset layout contract.
	NarrationBase string
	MusicBase     string
	AudioExts     []string
	ImageExts     []string

	// Audio mix.
	MusicGain        float64
	NarrationFadeOut float64
	MusicFadeOut     float64

	TimelinePath string
	BaseName     string
	ExportPrefix string

	// KeepBase retains the base composition file after all exports
	// succeed; when false it is removed as an intermediate.
	KeepBase bool

	Formats []FormatSpec
}

// DefaultFormats is the fixed set of configured exports. The order is
// the render order when exports run sequentially.
func DefaultFormats() []FormatSpec {
	return []FormatSpec{
		{RatioID: "16:9", Width: 1920, Height: 1080},
		{RatioID: "9:16", Width: 1080, Height: 1920},
		{RatioID: "1:1", Width: 1080, Height: 1080},
	}
}

func Default() *Config {
	return &Config{
		AssetsDir:        "assets",
		OutputDir:        "output",
		Width:            1920,
		Height:           1080,
		FPS:              30,
		Workers:          1,
		VideoEncoder:     "libx264",
		Quality:          23,
		NarrationBase:    "narration",
		MusicBase:        "background_music",
		AudioExts:        []string{".mp3", ".wav"},
		ImageExts:        []string{".jpg", ".jpeg", ".png"},
		MusicGain:        0.2,
		NarrationFadeOut: 1.0,
		MusicFadeOut:     2.0,
		BaseName:         "base.mp4",
		ExportPrefix:     "video",
		KeepBase:         true,
		Formats:          DefaultFormats(),
	}
}

// BasePath is where the base composition is written.
func (c *Config) BasePath() string {
	return filepath.Join(c.OutputDir, c.BaseName)
}

// ResolvedTimelinePath falls back to a fixed location in the output
// directory when no explicit artifact path is configured.
func (c *Config) ResolvedTimelinePath() string {
	if c.TimelinePath != "" {
		return c.TimelinePath
	}
	return filepath.Join(c.OutputDir, "timeline.yaml")
}

// FormatByID looks up a configured format by its ratio id.
func (c *Config) FormatByID(id string) (FormatSpec, bool) {
	for _, f := range c.Formats {
		if f.RatioID == id {
			return f, true
		}
	}
	return FormatSpec{}, false
}
