package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/images2video/internal/assets"
	"github.com/ivlev/images2video/internal/composer"
	"github.com/ivlev/images2video/internal/config"
	"github.com/ivlev/images2video/internal/exporter"
	"github.com/ivlev/images2video/internal/geometry"
	"github.com/ivlev/images2video/internal/logging"
	"github.com/ivlev/images2video/internal/timeline"
)

// Project runs the pipeline: validate, probe, plan, compose, export.
// Each stage's output is the next stage's sole input; the persisted
// timeline artifact is the only hand-off between planning and render.
type Project struct {
	Config *config.Config
	Assets *assets.Store
	log    zerolog.Logger
}

func NewProject(cfg *config.Config) *Project {
	return &Project{
		Config: cfg,
		Assets: assets.NewStore(cfg),
		log:    logging.WithComponent("engine"),
	}
}

// Run executes the full pipeline. Validation problems are reported as
// a complete list before anything is processed; once processing starts
// any failure aborts the run and no partial output is valid.
func (p *Project) Run(ctx context.Context) error {
	start := time.Now()

	if err := p.validate(); err != nil {
		return err
	}

	artifactPath, tracks, err := p.buildTimeline()
	if err != nil {
		return err
	}

	if err := p.render(ctx, artifactPath, tracks); err != nil {
		return err
	}

	p.log.Info().Dur("elapsed", time.Since(start)).Msg("pipeline complete")
	return nil
}

// BuildTimeline runs only the planning half: probe assets and write the
// timeline artifact. The render half can be re-run from the artifact
// later without recomputation. Probing reads headers only, so there is
// nothing long-running to cancel.
func (p *Project) BuildTimeline() (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	path, _, err := p.buildTimeline()
	return path, err
}

// RenderFrom runs only the render half against an existing artifact.
func (p *Project) RenderFrom(ctx context.Context, artifactPath string) error {
	if err := p.validate(); err != nil {
		return err
	}
	tracks, err := p.probeTracks()
	if err != nil {
		return err
	}
	return p.render(ctx, artifactPath, tracks)
}

func (p *Project) validate() error {
	problems := p.Assets.Validate()
	if len(problems) == 0 {
		return nil
	}
	for _, err := range problems {
		p.log.Error().Err(err).Msg("asset validation")
	}
	return fmt.Errorf("asset validation failed with %d problem(s): %w",
		len(problems), errors.Join(problems...))
}

func (p *Project) probeTracks() (composer.Tracks, error) {
	narration, err := p.Assets.ProbeNarration()
	if err != nil {
		return composer.Tracks{}, err
	}
	music, err := p.Assets.ProbeMusic()
	if err != nil {
		return composer.Tracks{}, err
	}
	return composer.Tracks{Narration: narration, Music: music}, nil
}

func (p *Project) buildTimeline() (string, composer.Tracks, error) {
	stageStart := time.Now()

	tracks, err := p.probeTracks()
	if err != nil {
		return "", composer.Tracks{}, err
	}
	images, err := p.Assets.ProbeImages()
	if err != nil {
		return "", composer.Tracks{}, err
	}
	p.log.Info().
		Float64("narration", tracks.Narration.Duration).
		Float64("music", tracks.Music.Duration).
		Int("images", len(images)).
		Msg("assets probed")

	canvas := geometry.Size{Width: p.Config.Width, Height: p.Config.Height}
	tl, err := timeline.Build(tracks.Narration.Duration, images, canvas, nil)
	if err != nil {
		return "", composer.Tracks{}, err
	}

	path := p.Config.ResolvedTimelinePath()
	if err := tl.Write(path); err != nil {
		return "", composer.Tracks{}, fmt.Errorf("write timeline artifact: %w", err)
	}

	p.log.Info().Str("path", path).Int("entries", len(tl.Entries)).
		Dur("elapsed", time.Since(stageStart)).Msg("timeline written")
	return path, tracks, nil
}

func (p *Project) render(ctx context.Context, artifactPath string, tracks composer.Tracks) error {
	// The render half only ever sees the persisted form; reading the
	// artifact back is the contract, not an optimization.
	tl, err := timeline.Read(artifactPath)
	if err != nil {
		return err
	}

	composeStart := time.Now()
	base, err := composer.New(p.Config).AssembleBase(ctx, tl, tracks)
	if err != nil {
		return err
	}
	p.log.Info().Dur("elapsed", time.Since(composeStart)).Msg("composition stage done")

	exportStart := time.Now()
	artifacts, err := exporter.New(p.Config).Export(ctx, base, p.Config.Formats)
	if err != nil {
		return err
	}
	p.log.Info().Int("formats", len(artifacts)).
		Dur("elapsed", time.Since(exportStart)).Msg("export stage done")

	return p.cleanupBase(base)
}

// cleanupBase removes the base composition once every export has
// succeeded, unless it is configured to be kept as an output artifact.
// Never called on a failed run: a partial run leaves no valid outputs
// either way.
func (p *Project) cleanupBase(base *composer.BaseComposition) error {
	if p.Config.KeepBase {
		return nil
	}
	if err := os.Remove(base.Path); err != nil {
		return fmt.Errorf("remove base composition: %w", err)
	}
	p.log.Debug().Str("path", base.Path).Msg("base composition removed")
	return nil
}
