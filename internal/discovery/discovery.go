package discovery

import (
	"fmt"
	"os"
	"path/filepath"
)

// DenDirName is the per-project directory holding the care config and
// state snapshot.
const DenDirName = ".hatchling"

// FindDen walks up from startDir looking for a den directory.
func FindDen(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}

	for {
		den := filepath.Join(dir, DenDirName)
		if info, err := os.Stat(den); err == nil && info.IsDir() {
			return den, true, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", false, nil
}

// GlobalDen returns the home-directory den path.
func GlobalDen() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DenDirName)
}

// CarePath returns the care config path inside a den.
func CarePath(den string) string {
	return filepath.Join(den, "care.toml")
}
