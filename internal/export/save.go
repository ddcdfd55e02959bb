package export

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Save writes the artifact into dir and returns the path written.
func Save(dir string, a Artifact) (string, error) {
	if a.Filename == "" {
		return "", errors.New("artifact has no filename")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create export dir %s", dir)
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
