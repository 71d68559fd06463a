package exporter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/images2video/internal/composer"
	"github.com/ivlev/images2video/internal/config"
	"github.com/ivlev/images2video/internal/geometry"
	"github.com/ivlev/images2video/internal/logging"
)

// Artifact is one rendered export.
type Artifact struct {
	RatioID string
	Path    string
	Width   int
	Height  int
}

// exportPlan is the pure per-format plan: everything about an export
// except actually running it. Keeping it side-effect free is what makes
// exports independent and safely parallel.
type exportPlan struct {
	Spec   config.FormatSpec
	Path   string
	Filter string
}

type Exporter struct {
	cfg *config.Config
	log zerolog.Logger
}

func New(cfg *config.Config) *Exporter {
	return &Exporter{cfg: cfg, log: logging.WithComponent("exporter")}
}

// Export re-frames the base composition into every requested format.
// Each format derives a fresh fill geometry from the base canvas, runs
// independently, and writes only its own artifact; the base is never
// touched. Any single failure fails the whole run.
func (e *Exporter) Export(ctx context.Context, base *composer.BaseComposition, formats []config.FormatSpec) ([]Artifact, error) {
	plans, err := e.plan(base, formats)
	if err != nil {
		return nil, err
	}

	workers := e.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	artifacts := make([]Artifact, len(plans))
	for i, p := range plans {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.render(base, p); err != nil {
				return fmt.Errorf("format %s: %w", p.Spec.RatioID, err)
			}
			e.log.Info().Str("format", p.Spec.RatioID).Str("path", p.Path).Msg("export rendered")
			artifacts[i] = Artifact{
				RatioID: p.Spec.RatioID,
				Path:    p.Path,
				Width:   p.Spec.Width,
				Height:  p.Spec.Height,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// plan computes every format's output path and filter up front,
// rejecting name collisions before anything renders.
func (e *Exporter) plan(base *composer.BaseComposition, formats []config.FormatSpec) ([]exportPlan, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no export formats configured")
	}

	seen := map[string]string{}
	plans := make([]exportPlan, 0, len(formats))
	for _, spec := range formats {
		name := spec.FileName(e.cfg.ExportPrefix)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("formats %s and %s collide on output name %q", prev, spec.RatioID, name)
		}
		seen[name] = spec.RatioID

		filter, err := fillFilter(
			geometry.Size{Width: base.Width, Height: base.Height},
			geometry.Size{Width: spec.Width, Height: spec.Height},
		)
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", spec.RatioID, err)
		}

		plans = append(plans, exportPlan{
			Spec:   spec,
			Path:   filepath.Join(e.cfg.OutputDir, name),
			Filter: filter,
		})
	}
	return plans, nil
}

// fillFilter expresses a fill plan as an ffmpeg video filter: scale to
// the plan's scaled size, then crop the centered canvas window.
func fillFilter(src, target geometry.Size) (string, error) {
	plan, err := geometry.ComputeFill(src, target)
	if err != nil {
		return "", err
	}
	scaled := plan.ScaledSize(src)
	return fmt.Sprintf("scale=%d:%d,crop=%d:%d:%d:%d",
		scaled.Width, scaled.Height,
		plan.Crop.Dx(), plan.Crop.Dy(), plan.Crop.X0, plan.Crop.Y0,
	), nil
}

// render runs one export. The audio stream is copied from the base
// unchanged; only the video is re-framed.
func (e *Exporter) render(base *composer.BaseComposition, p exportPlan) error {
	kwargs := ffmpeg.KwArgs{
		"vf":       p.Filter,
		"c:v":      e.cfg.VideoEncoder,
		"pix_fmt":  "yuv420p",
		"c:a":      "copy",
		"movflags": "+faststart",
	}
	for k, v := range qualityKwArgs(e.cfg.VideoEncoder, e.cfg.Quality) {
		kwargs[k] = v
	}

	err := ffmpeg.Input(base.Path).
		Output(p.Path, kwargs).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("%w: %v", composer.ErrEncode, err)
	}
	return nil
}

func qualityKwArgs(encoder string, quality int) ffmpeg.KwArgs {
	switch encoder {
	case "h264_videotoolbox":
		return ffmpeg.KwArgs{"b:v": fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return ffmpeg.KwArgs{"cq": quality}
	default:
		return ffmpeg.KwArgs{"crf": quality, "preset": "medium"}
	}
}
