package store

import (
	"fmt"
	"os"
	"sort"

	"northpm/internal/modstring"
	"northpm/internal/staging"
)

// ListInstalled scans the immediate subdirectories of the live
// plugins directory and returns the ones that parse as package
// identifiers. The reserved staging directory and directories not
// managed by this tool are skipped. Filesystem truth beats the state
// file, so this is the authoritative inventory.
func ListInstalled(pluginsDir string) ([]modstring.Mod, error) {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("STORE_LIST: %w", err)
	}
	var mods []modstring.Mod
	for _, e := range entries {
		if !e.IsDir() || e.Name() == staging.DirName {
			continue
		}
		mod, parseErr := modstring.Parse(e.Name())
		if parseErr != nil {
			continue
		}
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Name != mods[j].Name {
			return mods[i].Name < mods[j].Name
		}
		return modstring.CompareVersions(mods[i].Version, mods[j].Version) < 0
	})
	return mods, nil
}
