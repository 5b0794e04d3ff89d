package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// pluginExt identifies native plugin binaries. Detection is purely
// extension based; plugin content is never inspected or executed.
const pluginExt = ".dll"

// detectPlugins lists the plugin binaries staged directly under
// plugins/. A package without a plugins directory detects none; a
// package with no content at all is malformed.
func detectPlugins(stagingPath string) ([]string, error) {
	pluginsPath := filepath.Join(stagingPath, "plugins")
	entries, err := os.ReadDir(pluginsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("INS_DETECT: %w", err)
		}
		rootEntries, rootErr := os.ReadDir(stagingPath)
		if rootErr != nil {
			return nil, fmt.Errorf("INS_DETECT: %w", rootErr)
		}
		if len(rootEntries) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, pluginsPath)
		}
		return nil, nil
	}
	var plugins []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), pluginExt) {
			plugins = append(plugins, filepath.Join(pluginsPath, e.Name()))
		}
	}
	return plugins, nil
}
