package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/images2video/internal/assets"
	"github.com/ivlev/images2video/internal/geometry"
)

// Version of the persisted artifact schema.
const Version = "1.0"

var ErrEmptyImageSet = errors.New("empty image set")

// contiguityTol absorbs float error between adjacent entries; totalTol
// absorbs it over the whole timeline.
const (
	contiguityTol = 1e-6
	totalTol      = 1e-3
)

// Entry is one image's slot on the timeline: a half-open [Start, End)
// interval plus the geometry that maps the image onto the canvas.
type Entry struct {
	Image    string        `yaml:"image"`
	Source   geometry.Size `yaml:"source"`
	Start    float64       `yaml:"start"`
	End      float64       `yaml:"end"`
	Duration float64       `yaml:"duration"`
	Geometry geometry.Plan `yaml:"geometry"`
}

// Timeline is the hand-off artifact between planning and rendering.
// Created fresh per run, never mutated after it is written.
type Timeline struct {
	Version string        `yaml:"version"`
	Canvas  geometry.Size `yaml:"canvas"`
	Total   float64       `yaml:"total_duration"`
	Entries []Entry       `yaml:"entries"`
}

// Allocator splits a total duration across n images. It must return n
// positive values. The equal split is the default; content-aware pacing
// would slot in here without touching the builder.
type Allocator func(total float64, n int) []float64

// EqualAllocation gives every image the same share of the narration.
func EqualAllocation(total float64, n int) []float64 {
	durations := make([]float64, n)
	per := total / float64(n)
	for i := range durations {
		durations[i] = per
	}
	return durations
}

// Build computes the display plan: one contiguous entry per image in
// slice order, covering [0, narrationDuration). A nil allocator means
// equal allocation.
func Build(narrationDuration float64, images []assets.ImageDescriptor, canvas geometry.Size, alloc Allocator) (*Timeline, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: nothing to sequence", ErrEmptyImageSet)
	}
	if narrationDuration <= 0 {
		return nil, fmt.Errorf("narration duration must be positive, got %f", narrationDuration)
	}
	if alloc == nil {
		alloc = EqualAllocation
	}

	durations := alloc(narrationDuration, len(images))
	if len(durations) != len(images) {
		return nil, fmt.Errorf("allocator returned %d durations for %d images", len(durations), len(images))
	}

	tl := &Timeline{
		Version: Version,
		Canvas:  canvas,
		Total:   narrationDuration,
		Entries: make([]Entry, 0, len(images)),
	}

	start := 0.0
	for i, img := range images {
		if durations[i] <= 0 {
			return nil, fmt.Errorf("allocator returned non-positive duration %f for image %d", durations[i], i)
		}
		src := geometry.Size{Width: img.Width, Height: img.Height}
		plan, err := geometry.ComputeFill(src, canvas)
		if err != nil {
			return nil, fmt.Errorf("image %q: %w", img.Path, err)
		}

		end := start + durations[i]
		tl.Entries = append(tl.Entries, Entry{
			Image:    img.Path,
			Source:   src,
			Start:    start,
			End:      end,
			Duration: durations[i],
			Geometry: plan,
		})
		start = end
	}

	return tl, nil
}

// Validate checks the schema and the timing invariants: version match,
// positive durations, entry zero starting at zero, contiguous
// non-overlapping intervals, the last entry ending at the total, and
// every crop box sized exactly to the canvas.
func (t *Timeline) Validate() error {
	if t.Version != Version {
		return fmt.Errorf("unsupported timeline version %q (want %q)", t.Version, Version)
	}
	if len(t.Entries) == 0 {
		return fmt.Errorf("%w: timeline has no entries", ErrEmptyImageSet)
	}
	if t.Canvas.Width <= 0 || t.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", t.Canvas.Width, t.Canvas.Height)
	}
	if t.Total <= 0 {
		return fmt.Errorf("invalid total duration %f", t.Total)
	}

	if math.Abs(t.Entries[0].Start) > contiguityTol {
		return fmt.Errorf("entry 0 starts at %f, want 0", t.Entries[0].Start)
	}
	for i, e := range t.Entries {
		if e.Image == "" {
			return fmt.Errorf("entry %d has no image reference", i)
		}
		if e.Duration <= 0 || e.End <= e.Start {
			return fmt.Errorf("entry %d has non-positive duration", i)
		}
		if math.Abs((e.End-e.Start)-e.Duration) > contiguityTol {
			return fmt.Errorf("entry %d duration %f disagrees with interval [%f, %f)", i, e.Duration, e.Start, e.End)
		}
		if i > 0 && math.Abs(e.Start-t.Entries[i-1].End) > contiguityTol {
			return fmt.Errorf("entries %d and %d are not contiguous", i-1, i)
		}
		if e.Geometry.Crop.Dx() != t.Canvas.Width || e.Geometry.Crop.Dy() != t.Canvas.Height {
			return fmt.Errorf("entry %d crop box %dx%d does not match canvas %dx%d",
				i, e.Geometry.Crop.Dx(), e.Geometry.Crop.Dy(), t.Canvas.Width, t.Canvas.Height)
		}
	}

	last := t.Entries[len(t.Entries)-1]
	if math.Abs(last.End-t.Total) > totalTol {
		return fmt.Errorf("timeline ends at %f, want %f", last.End, t.Total)
	}

	return nil
}
