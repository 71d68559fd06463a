package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/images2video/internal/config"
)

var (
	ErrAssetNotFound     = errors.New("asset not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecode            = errors.New("decode failed")
)

// ImageDescriptor is one probed source image. Immutable once created;
// the slice order is the display order.
type ImageDescriptor struct {
	Path   string
	Width  int
	Height int
}

// AudioTrack is a located and probed audio asset.
type AudioTrack struct {
	Path     string
	Duration float64
}

// Store reads assets from the configured layout. It never mutates
// source files; probing touches headers and metadata only.
type Store struct {
	cfg *config.Config
}

func NewStore(cfg *config.Config) *Store {
	return &Store{cfg: cfg}
}

// Validate checks the whole input layout up front and returns every
// problem found, not just the first, so all of them can be fixed in one
// pass. An empty slice means the layout is ready for processing.
func (s *Store) Validate() []error {
	var errs []error

	if _, err := os.Stat(s.cfg.AssetsDir); err != nil {
		return []error{fmt.Errorf("%w: assets directory %q", ErrAssetNotFound, s.cfg.AssetsDir)}
	}

	if _, err := s.locateAudio(s.cfg.NarrationBase); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.locateAudio(s.cfg.MusicBase); err != nil {
		errs = append(errs, err)
	}
	if paths := s.imagePaths(); len(paths) == 0 {
		errs = append(errs, fmt.Errorf("%w: no image files (%s) in %q",
			ErrAssetNotFound, strings.Join(s.cfg.ImageExts, ", "), s.cfg.AssetsDir))
	}
	if _, err := os.Stat(s.cfg.OutputDir); err != nil {
		errs = append(errs, fmt.Errorf("%w: output directory %q", ErrAssetNotFound, s.cfg.OutputDir))
	}

	return errs
}

// locateAudio finds the single audio file with the given base name.
// The layout contract is exactly one such file: several recognized
// matches are ambiguous, and a file with the right base name but a
// foreign extension is reported as unsupported rather than missing.
func (s *Store) locateAudio(base string) (string, error) {
	entries, err := os.ReadDir(s.cfg.AssetsDir)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrAssetNotFound, s.cfg.AssetsDir, err)
	}

	var foreign string
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) != base {
			continue
		}
		if s.recognizedAudio(strings.ToLower(filepath.Ext(name))) {
			matches = append(matches, name)
		} else {
			foreign = name
		}
	}

	switch len(matches) {
	case 1:
		return filepath.Join(s.cfg.AssetsDir, matches[0]), nil
	case 0:
		if foreign != "" {
			return "", fmt.Errorf("%w: %q must use one of %s",
				ErrUnsupportedFormat, foreign, strings.Join(s.cfg.AudioExts, ", "))
		}
		return "", fmt.Errorf("%w: no %s.* audio file in %q", ErrAssetNotFound, base, s.cfg.AssetsDir)
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("ambiguous %s asset: %s all match, keep exactly one",
			base, strings.Join(matches, ", "))
	}
}

func (s *Store) recognizedAudio(ext string) bool {
	for _, e := range s.cfg.AudioExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (s *Store) recognizedImage(ext string) bool {
	for _, e := range s.cfg.ImageExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (s *Store) imagePaths() []string {
	entries, err := os.ReadDir(s.cfg.AssetsDir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if s.recognizedImage(strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(s.cfg.AssetsDir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// ProbeNarration locates the narration track and reads its duration.
func (s *Store) ProbeNarration() (AudioTrack, error) {
	return s.probeAudio(s.cfg.NarrationBase)
}

// ProbeMusic locates the background-music track and reads its duration.
func (s *Store) ProbeMusic() (AudioTrack, error) {
	return s.probeAudio(s.cfg.MusicBase)
}

func (s *Store) probeAudio(base string) (AudioTrack, error) {
	path, err := s.locateAudio(base)
	if err != nil {
		return AudioTrack{}, err
	}
	dur, err := probeDuration(path)
	if err != nil {
		return AudioTrack{}, err
	}
	return AudioTrack{Path: path, Duration: dur}, nil
}

// ffprobe's -show_format JSON, reduced to the fields we read.
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func probeDuration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe %q: %v", ErrDecode, path, err)
	}
	var pr probeResult
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return 0, fmt.Errorf("%w: ffprobe output for %q: %v", ErrDecode, path, err)
	}
	dur, err := strconv.ParseFloat(pr.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("%w: no usable duration for %q", ErrDecode, path)
	}
	return dur, nil
}

// ProbeImages discovers all recognized images under the assets
// directory, ordered by path for deterministic sequencing, and reads
// each one's natural size from its header.
func (s *Store) ProbeImages() ([]ImageDescriptor, error) {
	paths := s.imagePaths()
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no image files in %q", ErrAssetNotFound, s.cfg.AssetsDir)
	}

	descs := make([]ImageDescriptor, 0, len(paths))
	for _, p := range paths {
		w, h, err := probeImageSize(p)
		if err != nil {
			return nil, err
		}
		descs = append(descs, ImageDescriptor{Path: p, Width: w, Height: h})
	}
	return descs, nil
}

func probeImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrAssetNotFound, path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrDecode, path, err)
	}
	return cfg.Width, cfg.Height, nil
}
