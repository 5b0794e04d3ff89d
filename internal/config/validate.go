package config

import (
	"fmt"
	"time"
)

var allowedInstallTypes = map[string]struct{}{
	"STEAM":   {},
	"ORIGIN":  {},
	"EAPLAY":  {},
	"UNKNOWN": {},
}

func Validate(cfg Config) error {
	if cfg.Version != SchemaVersion {
		return fmt.Errorf("CFG_VERSION: unsupported version %d", cfg.Version)
	}
	if _, ok := allowedInstallTypes[cfg.Game.InstallType]; !ok {
		return fmt.Errorf("CFG_GAME: unsupported install type %q", cfg.Game.InstallType)
	}
	if cfg.Plugins.ConsentTimeout != "" {
		if _, err := time.ParseDuration(cfg.Plugins.ConsentTimeout); err != nil {
			return fmt.Errorf("CFG_PLUGINS: invalid consent timeout %q: %w", cfg.Plugins.ConsentTimeout, err)
		}
	}
	return nil
}

// ConsentTimeout parses the configured timeout; 0 means wait forever.
func (c Config) ConsentTimeout() time.Duration {
	d, err := time.ParseDuration(c.Plugins.ConsentTimeout)
	if err != nil {
		return 0
	}
	return d
}
