package config

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Game.InstallType == "" {
		cfg.Game.InstallType = "UNKNOWN"
	}
	if cfg.Plugins.ConsentTimeout == "" {
		cfg.Plugins.ConsentTimeout = "5m"
	}
	return cfg
}
