package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/images2video/internal/composer"
	"github.com/ivlev/images2video/internal/config"
)

func writtenBase(t *testing.T) *composer.BaseComposition {
	t.Helper()
	path := filepath.Join(t.TempDir(), "base.mp4")
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return &composer.BaseComposition{Path: path, Width: 1920, Height: 1080, Duration: 10}
}

func TestCleanupBaseKeeps(t *testing.T) {
	cfg := config.Default()
	cfg.KeepBase = true
	p := NewProject(cfg)

	base := writtenBase(t)
	if err := p.cleanupBase(base); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base.Path); err != nil {
		t.Errorf("base composition should survive with KeepBase set: %v", err)
	}
}

func TestCleanupBaseRemoves(t *testing.T) {
	cfg := config.Default()
	cfg.KeepBase = false
	p := NewProject(cfg)

	base := writtenBase(t)
	if err := p.cleanupBase(base); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(base.Path); !os.IsNotExist(err) {
		t.Errorf("base composition should be removed, stat returned %v", err)
	}
}
