package config

const (
	SchemaVersion = 1
)

// DefaultConfig returns a fully-populated v1 config document.
func DefaultConfig() Config {
	return Config{
		Version: SchemaVersion,
		Game: GameConfig{
			InstallType: "UNKNOWN",
		},
		Plugins: PluginsConfig{
			Allowed:        false,
			ConsentTimeout: "5m",
		},
	}
}
