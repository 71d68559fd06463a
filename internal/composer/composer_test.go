package composer

import (
	"image"
	"strings"
	"testing"

	"github.com/ivlev/images2video/internal/config"
	"github.com/ivlev/images2video/internal/geometry"
	"github.com/ivlev/images2video/internal/timeline"
)

func entryFor(t *testing.T, srcW, srcH int, canvas geometry.Size) timeline.Entry {
	t.Helper()
	src := geometry.Size{Width: srcW, Height: srcH}
	plan, err := geometry.ComputeFill(src, canvas)
	if err != nil {
		t.Fatal(err)
	}
	return timeline.Entry{
		Image:    "test.png",
		Source:   src,
		Start:    0,
		End:      2,
		Duration: 2,
		Geometry: plan,
	}
}

func TestRenderFrameCanvasSized(t *testing.T) {
	canvas := geometry.Size{Width: 192, Height: 108}
	sizes := [][2]int{
		{400, 300},
		{300, 400},
		{192, 108},
		{50, 50},
		{1000, 100},
	}

	for _, s := range sizes {
		src := image.NewRGBA(image.Rect(0, 0, s[0], s[1]))
		entry := entryFor(t, s[0], s[1], canvas)

		frame := renderFrame(src, entry, canvas)
		if frame.Bounds().Dx() != canvas.Width || frame.Bounds().Dy() != canvas.Height {
			t.Errorf("source %dx%d: frame %dx%d, want %dx%d",
				s[0], s[1], frame.Bounds().Dx(), frame.Bounds().Dy(), canvas.Width, canvas.Height)
		}
		if frame.Stride != canvas.Width*4 {
			t.Errorf("source %dx%d: stride %d, want %d (raw encode assumes packed rows)",
				s[0], s[1], frame.Stride, canvas.Width*4)
		}
	}
}

func TestFrameCountsSumExactly(t *testing.T) {
	// 7 entries over 10s at 30fps: per-entry rounding must not drift
	// the total frame count.
	const fps = 30
	const total = 10.0
	const n = 7

	per := total / n
	sum := 0
	for i := 0; i < n; i++ {
		e := timeline.Entry{
			Start:    float64(i) * per,
			End:      float64(i+1) * per,
			Duration: per,
		}
		sum += frameCount(e, fps)
	}

	if sum != 300 {
		t.Errorf("frames sum to %d, want 300", sum)
	}
}

func TestFrameCountMinimum(t *testing.T) {
	e := timeline.Entry{Start: 1.0, End: 1.001, Duration: 0.001}
	if got := frameCount(e, 30); got != 1 {
		t.Errorf("frameCount = %d, want 1 for a sub-frame entry", got)
	}
}

func TestAudioFilterGraph(t *testing.T) {
	cfg := config.Default()
	c := New(cfg)

	filter := c.audioFilter(10.0)

	for _, want := range []string{
		"volume=0.200",
		"afade=t=out:st=9.000:d=1.000", // narration fade
		"afade=t=out:st=8.000:d=2.000", // music fade
		"amix=inputs=2:duration=first",
		"normalize=0",
		"[aout]",
	} {
		if !strings.Contains(filter, want) {
			t.Errorf("filter missing %q:\n%s", want, filter)
		}
	}
}

func TestFadeWindowClamped(t *testing.T) {
	st, d := fadeWindow(0.5, 2.0)
	if st != 0 || d != 0.5 {
		t.Errorf("fadeWindow(0.5, 2.0) = (%f, %f), want (0, 0.5)", st, d)
	}

	st, d = fadeWindow(10, 2)
	if st != 8 || d != 2 {
		t.Errorf("fadeWindow(10, 2) = (%f, %f), want (8, 2)", st, d)
	}
}
