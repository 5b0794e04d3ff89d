package install

import (
	"fmt"
	"os"
	"path/filepath"

	"northpm/internal/modstring"
	"northpm/internal/staging"
)

// findConflicts returns every installed directory whose parsed
// package name matches name. Author and version are ignored: an
// upgrade or an author change still claims the same logical slot.
// Directories that do not parse as package identifiers are not
// managed by this tool and are left untouched.
func findConflicts(pluginsDir, name string) ([]string, error) {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		return nil, fmt.Errorf("INS_CONFLICT_SCAN: %w", err)
	}
	var matches []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == staging.DirName {
			continue
		}
		parsed, parseErr := modstring.Parse(e.Name())
		if parseErr != nil {
			continue
		}
		if parsed.Name == name {
			matches = append(matches, filepath.Join(pluginsDir, e.Name()))
		}
	}
	return matches, nil
}
