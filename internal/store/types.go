package store

import "time"

const StateVersion = 1

type State struct {
	Version   int                `toml:"version"`
	Installed []InstalledPackage `toml:"installed"`
}

// InstalledPackage records one committed plugin package. Identity is
// the Name field alone: installing any version of a package replaces
// every other record (and directory) carrying the same name.
type InstalledPackage struct {
	ModString   string    `toml:"mod_string"`
	Author      string    `toml:"author"`
	Name        string    `toml:"name"`
	Version     string    `toml:"version"`
	Digest      string    `toml:"digest,omitempty"`
	HasPlugins  bool      `toml:"has_plugins"`
	InstalledAt time.Time `toml:"installed_at"`
}
