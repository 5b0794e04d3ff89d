package config

// Config is the v1 schema for the northpm config file.
type Config struct {
	Version int           `toml:"version"`
	Game    GameConfig    `toml:"game"`
	Plugins PluginsConfig `toml:"plugins"`
	Logging LoggingConfig `toml:"logging"`
}

type GameConfig struct {
	Path        string `toml:"path" json:"path"`
	InstallType string `toml:"install_type" json:"installType"`
}

// PluginsConfig gates native plugin installs. Allowed defaults to
// false: plugins run with full privileges inside the game process, so
// installing them is opt-in.
type PluginsConfig struct {
	Allowed        bool   `toml:"allowed" json:"allowed"`
	ConsentTimeout string `toml:"consent_timeout" json:"consentTimeout"`
}

type LoggingConfig struct {
	AuditPath string `toml:"audit_path,omitempty" json:"auditPath,omitempty"`
}
