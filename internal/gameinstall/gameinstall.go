// Package gameinstall describes a validated Titanfall 2 install.
// Detection and validation of game directories happen in the
// front-end; this package only derives the Northstar profile layout.
package gameinstall

import "path/filepath"

// InstallType identifies the store front a game install came from.
type InstallType string

const (
	Steam   InstallType = "STEAM"
	Origin  InstallType = "ORIGIN"
	EAPlay  InstallType = "EAPLAY"
	Unknown InstallType = "UNKNOWN"
)

// ProfileDir is the Northstar profile directory under the game root.
const ProfileDir = "R2Northstar"

type GameInstall struct {
	GamePath    string
	InstallType InstallType
}

// ProfilePath is the Northstar profile root for this install.
func (g GameInstall) ProfilePath() string {
	return filepath.Join(g.GamePath, ProfileDir)
}

// PluginsDir is where native plugin packages are installed.
func (g GameInstall) PluginsDir() string {
	return filepath.Join(g.GamePath, ProfileDir, "plugins")
}

// ModsDir is where regular (non-plugin) mods live, including the
// Northstar core mods.
func (g GameInstall) ModsDir() string {
	return filepath.Join(g.GamePath, ProfileDir, "mods")
}
