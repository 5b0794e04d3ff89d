package store

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"northpm/internal/fsutil"
)

func EnsureLayout(profileRoot string) error {
	dirs := []string{profileRoot, PluginsDir(profileRoot), ModsDir(profileRoot)}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func LoadState(profileRoot string) (State, error) {
	blob, err := os.ReadFile(StatePath(profileRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return State{Version: StateVersion}, nil
		}
		return State{}, err
	}
	var st State
	if err := toml.Unmarshal(blob, &st); err != nil {
		return State{}, fmt.Errorf("STORE_STATE_PARSE: %w", err)
	}
	if st.Version == 0 {
		st.Version = StateVersion
	}
	if st.Version != StateVersion {
		return State{}, fmt.Errorf("STORE_STATE_VERSION: unsupported state version %d", st.Version)
	}
	for i := range st.Installed {
		if st.Installed[i].Name == "" {
			return State{}, fmt.Errorf("STORE_STATE_SCHEMA: installed entry missing name")
		}
	}
	return st, nil
}

func SaveState(profileRoot string, st State) error {
	if err := EnsureLayout(profileRoot); err != nil {
		return err
	}
	st.Version = StateVersion
	sort.Slice(st.Installed, func(i, j int) bool {
		return st.Installed[i].Name < st.Installed[j].Name
	})
	blob, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("STORE_STATE_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(StatePath(profileRoot), blob, 0o644)
}

// UpsertInstalled replaces any record sharing the package name.
func UpsertInstalled(st *State, rec InstalledPackage) {
	for i := range st.Installed {
		if st.Installed[i].Name == rec.Name {
			st.Installed[i] = rec
			return
		}
	}
	st.Installed = append(st.Installed, rec)
}

// RemoveInstalled drops the record for the named package, reporting
// whether one existed.
func RemoveInstalled(st *State, name string) bool {
	for i := range st.Installed {
		if st.Installed[i].Name == name {
			st.Installed = append(st.Installed[:i], st.Installed[i+1:]...)
			return true
		}
	}
	return false
}
