package composer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ivlev/images2video/internal/assets"
	"github.com/ivlev/images2video/internal/config"
	"github.com/ivlev/images2video/internal/logging"
	"github.com/ivlev/images2video/internal/timeline"
)

var ErrEncode = errors.New("encode failed")

// BaseComposition is the handle to the assembled video+audio sequence,
// the canonical master every export is re-framed from.
type BaseComposition struct {
	Path     string
	Width    int
	Height   int
	Duration float64
}

// Tracks carries the located audio assets into the mix.
type Tracks struct {
	Narration assets.AudioTrack
	Music     assets.AudioTrack
}

type Composer struct {
	cfg *config.Config
	log zerolog.Logger
}

func New(cfg *config.Config) *Composer {
	return &Composer{cfg: cfg, log: logging.WithComponent("composer")}
}

// AssembleBase renders every timeline entry to a canvas-sized segment,
// concatenates the segments in order with straight cuts, and mixes the
// narration with the looped, attenuated background music. The result is
// written to the configured base path.
func (c *Composer) AssembleBase(ctx context.Context, tl *timeline.Timeline, tracks Tracks) (*BaseComposition, error) {
	tempDir, err := os.MkdirTemp("", "images2video_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	segments := make([]string, len(tl.Entries))
	for i, entry := range tl.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := loadImage(entry.Image)
		if err != nil {
			return nil, err
		}
		frame := renderFrame(img, entry, tl.Canvas)

		segPath := filepath.Join(tempDir, fmt.Sprintf("s%d.mp4", i))
		frames := frameCount(entry, c.cfg.FPS)
		if err := c.encodeSegment(ctx, frame, frames, segPath); err != nil {
			return nil, fmt.Errorf("segment %d (%s): %w", i, entry.Image, err)
		}
		segments[i] = segPath
		c.log.Debug().Int("segment", i+1).Int("of", len(tl.Entries)).
			Float64("duration", entry.Duration).Msg("segment encoded")
	}

	basePath := c.cfg.BasePath()
	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return nil, err
	}
	if err := c.mux(ctx, segments, tracks, tl.Total, tempDir, basePath); err != nil {
		return nil, err
	}

	c.log.Info().Str("path", basePath).Float64("duration", tl.Total).Msg("base composition assembled")
	return &BaseComposition{
		Path:     basePath,
		Width:    tl.Canvas.Width,
		Height:   tl.Canvas.Height,
		Duration: tl.Total,
	}, nil
}

// loadImage reloads a source image at render time. A file that probed
// fine but no longer decodes means the run itself is corrupted, so this
// is fatal and non-retriable.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", assets.ErrDecode, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", assets.ErrDecode, path, err)
	}
	return img, nil
}

// encodeSegment streams the frame as raw RGBA over stdin, repeated
// once per output frame, so the segment duration is frame-exact.
func (c *Composer) encodeSegment(ctx context.Context, frame *image.RGBA, frames int, segPath string) error {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", frame.Bounds().Dx(), frame.Bounds().Dy()),
		"-framerate", fmt.Sprintf("%d", c.cfg.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", c.cfg.VideoEncoder,
	}
	args = append(args, qualityArgs(c.cfg.VideoEncoder, c.cfg.Quality)...)
	args = append(args, segPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrEncode, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: ffmpeg start: %v", ErrEncode, err)
	}

	writeErr := func() error {
		defer stdin.Close()
		for i := 0; i < frames; i++ {
			if _, err := stdin.Write(frame.Pix); err != nil {
				return err
			}
		}
		return nil
	}()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%w: ffmpeg: %v\n%s", ErrEncode, err, out.String())
	}
	if writeErr != nil {
		return fmt.Errorf("%w: write raw frames: %v", ErrEncode, writeErr)
	}
	return nil
}

// mux concatenates the segments and attaches the mixed audio track.
// The music input is looped without end; the mix graph trims it to the
// narration, which covers both the short and the long music case.
func (c *Composer) mux(ctx context.Context, segments []string, tracks Tracks, total float64, tempDir, outPath string) error {
	listPath := filepath.Join(tempDir, "inputs.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return err
	}
	for _, p := range segments {
		abs, err := filepath.Abs(p)
		if err != nil {
			f.Close()
			return err
		}
		fmt.Fprintf(f, "file '%s'\n", abs)
	}
	if err := f.Close(); err != nil {
		return err
	}

	if tracks.Music.Duration < total {
		c.log.Debug().Float64("music", tracks.Music.Duration).Float64("video", total).
			Msg("music shorter than video, looping")
	} else {
		c.log.Debug().Float64("music", tracks.Music.Duration).Float64("video", total).
			Msg("music longer than video, trimming")
	}

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", tracks.Narration.Path,
		"-stream_loop", "-1", "-i", tracks.Music.Path,
		"-filter_complex", c.audioFilter(total),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-t", fmt.Sprintf("%.3f", total),
		outPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: ffmpeg mux: %v\n%s", ErrEncode, err, string(out))
	}
	return nil
}

// audioFilter builds the mix graph: narration ([1:a]) with a fade-out,
// music ([2:a]) attenuated and faded, summed additively (normalize=0)
// and trimmed to the narration length (duration=first).
func (c *Composer) audioFilter(total float64) string {
	voiceSt, voiceD := fadeWindow(total, c.cfg.NarrationFadeOut)
	bgSt, bgD := fadeWindow(total, c.cfg.MusicFadeOut)

	return fmt.Sprintf(
		"[1:a]afade=t=out:st=%.3f:d=%.3f[voice];"+
			"[2:a]volume=%.3f,afade=t=out:st=%.3f:d=%.3f[bg];"+
			"[voice][bg]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]",
		voiceSt, voiceD, c.cfg.MusicGain, bgSt, bgD,
	)
}

// fadeWindow clamps a fade-out to fit inside the track.
func fadeWindow(total, fade float64) (start, dur float64) {
	if fade > total {
		fade = total
	}
	return total - fade, fade
}

func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default:
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}
