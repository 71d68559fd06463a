package assets

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/images2video/internal/config"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	cfg := config.Default()
	cfg.AssetsDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	return NewStore(cfg), cfg.AssetsDir
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	store, _ := testStore(t)

	problems := store.Validate()
	if len(problems) != 3 {
		t.Fatalf("got %d problems, want 3 (narration, music, images): %v", len(problems), problems)
	}
	for _, err := range problems {
		if !errors.Is(err, ErrAssetNotFound) {
			t.Errorf("problem %v, want ErrAssetNotFound", err)
		}
	}
}

func TestValidateMissingAssetsDir(t *testing.T) {
	cfg := config.Default()
	cfg.AssetsDir = filepath.Join(t.TempDir(), "does-not-exist")
	problems := NewStore(cfg).Validate()

	if len(problems) != 1 || !errors.Is(problems[0], ErrAssetNotFound) {
		t.Errorf("got %v, want a single ErrAssetNotFound for the directory", problems)
	}
}

func TestValidateMissingOutputDir(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "narration.mp3", []byte("x"))
	writeFile(t, dir, "background_music.wav", []byte("x"))
	writePNG(t, dir, "a.png", 10, 10)
	store.cfg.OutputDir = filepath.Join(t.TempDir(), "no-such-output")

	problems := store.Validate()
	if len(problems) != 1 || !errors.Is(problems[0], ErrAssetNotFound) {
		t.Errorf("got %v, want a single ErrAssetNotFound for the output directory", problems)
	}
}

func TestValidateUnsupportedAudio(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "narration.ogg", []byte("x"))
	writeFile(t, dir, "background_music.mp3", []byte("x"))
	writePNG(t, dir, "a.png", 10, 10)

	problems := store.Validate()
	if len(problems) != 1 || !errors.Is(problems[0], ErrUnsupportedFormat) {
		t.Errorf("got %v, want a single ErrUnsupportedFormat for narration.ogg", problems)
	}
}

func TestValidateCleanLayout(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "narration.mp3", []byte("x"))
	writeFile(t, dir, "background_music.wav", []byte("x"))
	writePNG(t, dir, "a.png", 10, 10)

	if problems := store.Validate(); len(problems) != 0 {
		t.Errorf("unexpected problems: %v", problems)
	}
}

func TestLocateAudioAmbiguous(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "narration.wav", []byte("x"))
	writeFile(t, dir, "narration.mp3", []byte("x"))

	if _, err := store.locateAudio("narration"); err == nil {
		t.Error("expected error when two recognized narration files exist")
	}
}

func TestValidateAmbiguousNarration(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "narration.wav", []byte("x"))
	writeFile(t, dir, "narration.mp3", []byte("x"))
	writeFile(t, dir, "background_music.wav", []byte("x"))
	writePNG(t, dir, "a.png", 10, 10)

	problems := store.Validate()
	if len(problems) != 1 {
		t.Fatalf("got %d problems, want 1 (ambiguous narration): %v", len(problems), problems)
	}
	if !strings.Contains(problems[0].Error(), "ambiguous") {
		t.Errorf("problem %v, want an ambiguity report", problems[0])
	}
}

func TestProbeImagesOrderAndSizes(t *testing.T) {
	store, dir := testStore(t)
	// Written out of order on purpose; discovery must sort by path.
	writePNG(t, dir, "c.png", 30, 10)
	writePNG(t, dir, "a.png", 10, 20)
	writePNG(t, dir, "b.png", 20, 10)
	writeFile(t, dir, "notes.txt", []byte("ignored"))

	images, err := store.ProbeImages()
	if err != nil {
		t.Fatal(err)
	}
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}

	wantNames := []string{"a.png", "b.png", "c.png"}
	wantSizes := [][2]int{{10, 20}, {20, 10}, {30, 10}}
	for i, img := range images {
		if filepath.Base(img.Path) != wantNames[i] {
			t.Errorf("image %d = %q, want %q", i, filepath.Base(img.Path), wantNames[i])
		}
		if img.Width != wantSizes[i][0] || img.Height != wantSizes[i][1] {
			t.Errorf("image %d size = %dx%d, want %dx%d",
				i, img.Width, img.Height, wantSizes[i][0], wantSizes[i][1])
		}
	}
}

func TestProbeImagesEmpty(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "notes.txt", []byte("not an image"))

	if _, err := store.ProbeImages(); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("error = %v, want ErrAssetNotFound", err)
	}
}

func TestProbeImagesUndecodable(t *testing.T) {
	store, dir := testStore(t)
	writeFile(t, dir, "broken.png", []byte("this is not a png"))

	if _, err := store.ProbeImages(); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}
