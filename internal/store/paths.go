package store

import "path/filepath"

// Paths are all derived from the Northstar profile root
// (<game_root>/R2Northstar). The plugins directory itself is the
// source of truth for what is installed; the state file and audit log
// are advisory records kept next to it.

func StatePath(profileRoot string) string {
	return filepath.Join(profileRoot, "northpm-state.toml")
}

func AuditPath(profileRoot string) string {
	return filepath.Join(profileRoot, "northpm-audit.log")
}

func PluginsDir(profileRoot string) string {
	return filepath.Join(profileRoot, "plugins")
}

func ModsDir(profileRoot string) string {
	return filepath.Join(profileRoot, "mods")
}
