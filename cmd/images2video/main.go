package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/images2video/internal/config"
	"github.com/ivlev/images2video/internal/engine"
	"github.com/ivlev/images2video/internal/logging"
	"github.com/ivlev/images2video/internal/system"
)

func main() {
	assetsPtr := flag.String("assets", "assets", "Directory with narration.*, background_music.* and image files")
	outputPtr := flag.String("output", "output", "Directory for the timeline artifact, base composition and exports")
	widthPtr := flag.Int("width", 1920, "Base composition canvas width")
	heightPtr := flag.Int("height", 1080, "Base composition canvas height")
	fpsPtr := flag.Int("fps", 30, "Output frame rate")
	workersPtr := flag.Int("workers", 0, "Export workers (0 = derive from the machine)")
	musicGainPtr := flag.Float64("music-gain", 0.2, "Background music volume relative to original")
	formatsPtr := flag.String("formats", "", "Comma-separated ratio ids to export (default: all configured)")
	timelineOnlyPtr := flag.Bool("timeline-only", false, "Stop after writing the timeline artifact")
	fromTimelinePtr := flag.String("from-timeline", "", "Render from an existing timeline artifact, skipping planning")
	keepBasePtr := flag.Bool("keep-base", true, "Keep the base composition file after exports (set =false to remove it)")
	qualityPtr := flag.Int("quality", 0, "Encoder quality (0 = encoder-appropriate default)")
	verbosePtr := flag.Bool("verbose", false, "Debug logging")

	flag.Parse()

	for _, d := range []string{*assetsPtr, *outputPtr} {
		if err := os.MkdirAll(d, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "create %q: %v\n", d, err)
			os.Exit(1)
		}
	}

	if _, err := logging.Setup(*outputPtr, *verbosePtr); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup: %v\n", err)
		os.Exit(1)
	}

	system.InitResourceLimits()

	cfg := config.Default()
	cfg.AssetsDir = *assetsPtr
	cfg.OutputDir = *outputPtr
	cfg.Width = *widthPtr
	cfg.Height = *heightPtr
	cfg.FPS = *fpsPtr
	cfg.MusicGain = *musicGainPtr
	cfg.KeepBase = *keepBasePtr

	cfg.Workers = *workersPtr
	if cfg.Workers <= 0 {
		cfg.Workers = system.DefaultWorkers()
	}

	cfg.VideoEncoder = system.BestH264Encoder()
	if cfg.VideoEncoder != "libx264" {
		log.Info().Str("encoder", cfg.VideoEncoder).Msg("hardware encoder detected")
	}
	cfg.Quality = *qualityPtr
	if cfg.Quality == 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	if *formatsPtr != "" {
		formats, err := selectFormats(cfg, *formatsPtr)
		if err != nil {
			log.Fatal().Err(err).Msg("bad -formats")
		}
		cfg.Formats = formats
	}

	project := engine.NewProject(cfg)
	ctx := context.Background()

	var err error
	switch {
	case *timelineOnlyPtr:
		var path string
		path, err = project.BuildTimeline()
		if err == nil {
			log.Info().Str("path", path).Msg("timeline artifact written")
		}
	case *fromTimelinePtr != "":
		err = project.RenderFrom(ctx, *fromTimelinePtr)
	default:
		err = project.Run(ctx)
	}

	if err != nil {
		log.Error().Err(err).Msg("pipeline failed")
		os.Exit(1)
	}
}

// selectFormats resolves a comma-separated ratio id list against the
// configured format set, preserving configured order.
func selectFormats(cfg *config.Config, list string) ([]config.FormatSpec, error) {
	wanted := map[string]bool{}
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := cfg.FormatByID(id); !ok {
			return nil, fmt.Errorf("unknown format %q", id)
		}
		wanted[id] = true
	}
	if len(wanted) == 0 {
		return nil, fmt.Errorf("no formats selected")
	}

	var formats []config.FormatSpec
	for _, f := range cfg.Formats {
		if wanted[f.RatioID] {
			formats = append(formats, f)
		}
	}
	return formats, nil
}
