// Package northstar inspects an installed Northstar profile. The
// core mods shipped with every release carry the release version in
// their mod.json; when they disagree the install is in a mixed state
// and should not be trusted.
package northstar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"northpm/internal/gameinstall"
)

// CoreMods are installed by every Northstar release, in the order
// they are checked.
var CoreMods = []string{
	"Northstar.Client",
	"Northstar.Custom",
	"Northstar.CustomServers",
}

var (
	ErrNoVersion       = errors.New("NS_VERSION: mod.json has no Version field")
	ErrVersionMismatch = errors.New("NS_VERSION: core mods disagree on version")
)

// ModVersion reads the Version field from a mod directory's mod.json.
func ModVersion(modDir string) (string, error) {
	blob, err := os.ReadFile(filepath.Join(modDir, "mod.json"))
	if err != nil {
		return "", err
	}
	v := gjson.GetBytes(blob, "Version")
	if !v.Exists() || v.String() == "" {
		return "", fmt.Errorf("%w: %s", ErrNoVersion, modDir)
	}
	return v.String(), nil
}

// VersionNumber returns the Northstar version of a game install,
// failing when any core mod reports a different version than the
// first one.
func VersionNumber(game gameinstall.GameInstall) (string, error) {
	modsDir := game.ModsDir()
	initial, err := ModVersion(filepath.Join(modsDir, CoreMods[0]))
	if err != nil {
		return "", err
	}
	for _, name := range CoreMods[1:] {
		current, err := ModVersion(filepath.Join(modsDir, name))
		if err != nil {
			return "", err
		}
		if current != initial {
			return "", fmt.Errorf("%w: %s=%s %s=%s", ErrVersionMismatch, CoreMods[0], initial, name, current)
		}
	}
	return initial, nil
}
