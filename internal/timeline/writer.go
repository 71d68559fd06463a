package timeline

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/images2video/internal/assets"
)

// Write persists the timeline as a human-readable YAML artifact. The
// marshalled form is deterministic, so identical inputs produce
// byte-identical artifacts.
func (t *Timeline) Write(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Read loads and validates a persisted timeline. A malformed artifact
// is a decode failure, not a crash later in the render: a corrupted
// artifact means the pipeline run itself is broken.
func Read(path string) (*Timeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: timeline artifact %q: %v", assets.ErrDecode, path, err)
	}

	var tl Timeline
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("%w: timeline artifact %q: %v", assets.ErrDecode, path, err)
	}
	if err := tl.Validate(); err != nil {
		return nil, fmt.Errorf("%w: timeline artifact %q: %v", assets.ErrDecode, path, err)
	}
	return &tl, nil
}
