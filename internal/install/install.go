// Package install implements the plugin package install pipeline:
// stage the archive, detect native plugin payloads, gate them behind
// explicit user consent, replace any prior version of the same
// package, and commit. Package identity is the parsed mod name alone;
// a same-named package from a different author or version claims the
// same slot (one canonical slot per logical mod name).
package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"northpm/internal/audit"
	"northpm/internal/consent"
	"northpm/internal/gameinstall"
	"northpm/internal/modstring"
	"northpm/internal/staging"
	"northpm/internal/store"
)

const manifestName = "manifest.json"

type Service struct {
	Consent        *consent.Broker
	Audit          *audit.Logger
	ConsentTimeout time.Duration

	// Progress, when set, is called once per archive entry during
	// extraction.
	Progress func(done, total int)
}

// Install stages the archive into the reserved staging directory,
// detects plugin payloads, runs the consent gate when needed, and
// commits the package with arena-then-swap semantics. The staging
// directory is removed on every return path.
func (s *Service) Install(ctx context.Context, game gameinstall.GameInstall, archive *os.File, modString string, pluginsAllowed bool) (err error) {
	mod, err := modstring.Parse(modString)
	if err != nil {
		return err
	}
	pluginsDir := game.PluginsDir()
	if err := os.MkdirAll(pluginsDir, 0o755); err != nil {
		return fmt.Errorf("INS_PLUGINS_DIR: %w", err)
	}

	stage, recovered, err := staging.Create(pluginsDir)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := stage.Remove(); rmErr != nil && err == nil {
			err = fmt.Errorf("INS_TEARDOWN: %w", rmErr)
		}
		s.log(audit.Event{Operation: "install", Step: "teardown", Status: status(err), Package: mod.String()})
	}()
	if recovered {
		s.log(audit.Event{Operation: "install", Step: "stage", Status: "ok", Package: mod.String(), Message: "removed leftover staging directory"})
	}

	info, err := archive.Stat()
	if err != nil {
		return fmt.Errorf("INS_ARCHIVE_STAT: %w", err)
	}
	digest, err := staging.Digest(archive, info.Size())
	if err != nil {
		return err
	}
	if err := staging.ExtractZip(archive, info.Size(), stage, s.Progress); err != nil {
		return err
	}
	s.log(audit.Event{Operation: "install", Step: "extract", Status: "ok", Package: mod.String(), Fields: map[string]string{"digest": digest}})

	plugins, err := detectPlugins(stage.Path())
	if err != nil {
		return err
	}

	if len(plugins) > 0 {
		if !pluginsAllowed {
			return ErrPluginsDisabled
		}
		s.log(audit.Event{Operation: "install", Step: "consent", Status: "pending", Package: mod.String(), Message: fmt.Sprintf("plugins=%d", len(plugins))})
		approved, waitErr := s.Consent.Await(ctx, s.ConsentTimeout)
		if waitErr != nil {
			return fmt.Errorf("INS_CONSENT: %w", waitErr)
		}
		if !approved {
			s.log(audit.Event{Operation: "install", Step: "consent", Status: "denied", Package: mod.String()})
			return ErrUserDenied
		}
		s.log(audit.Event{Operation: "install", Step: "consent", Status: "approved", Package: mod.String()})
	}

	if err := s.commit(stage, pluginsDir, mod, plugins); err != nil {
		return err
	}
	s.log(audit.Event{Operation: "install", Step: "commit", Status: "ok", Package: mod.String()})

	s.record(game, mod, digest, len(plugins) > 0)
	return nil
}

// commit assembles the destination directory content inside the
// staging area, renames conflicting prior installs aside, swaps the
// arena into place, and only then deletes the old versions. Any
// failure restores the renamed directories.
func (s *Service) commit(stage *staging.Dir, pluginsDir string, mod modstring.Mod, plugins []string) error {
	arena := stage.Join(mod.DirName())
	if err := os.MkdirAll(arena, 0o755); err != nil {
		return fmt.Errorf("INS_COMMIT_ARENA: %w", err)
	}
	if err := copyFile(stage.Join(manifestName), filepath.Join(arena, manifestName)); err != nil {
		return fmt.Errorf("INS_COMMIT_MANIFEST: %w", err)
	}
	// Plugin binaries land flat in the package directory, original
	// subdirectory structure discarded.
	for _, src := range plugins {
		if err := copyFile(src, filepath.Join(arena, filepath.Base(src))); err != nil {
			return fmt.Errorf("INS_COMMIT_PLUGIN: %w", err)
		}
	}

	conflicts, err := findConflicts(pluginsDir, mod.Name)
	if err != nil {
		return err
	}
	backups := map[string]string{}
	rollback := func() {
		for dir, backup := range backups {
			_ = os.RemoveAll(dir)
			_ = os.Rename(backup, dir)
		}
	}
	for _, dir := range conflicts {
		backup := fmt.Sprintf("%s.old-%d", dir, time.Now().UnixNano())
		if err := os.Rename(dir, backup); err != nil {
			rollback()
			return fmt.Errorf("INS_CONFLICT_REMOVE: %w", err)
		}
		backups[dir] = backup
		s.log(audit.Event{Operation: "install", Step: "conflict", Status: "ok", Package: mod.String(), Message: "replacing " + filepath.Base(dir)})
	}

	if err := os.Rename(arena, filepath.Join(pluginsDir, mod.DirName())); err != nil {
		rollback()
		return fmt.Errorf("INS_COMMIT_SWAP: %w", err)
	}
	for _, backup := range backups {
		_ = os.RemoveAll(backup)
	}
	return nil
}

// record updates the advisory state file. The plugins directory is
// the source of truth, so a state write failure does not fail an
// install that already committed; it is logged instead.
func (s *Service) record(game gameinstall.GameInstall, mod modstring.Mod, digest string, hasPlugins bool) {
	profileRoot := game.ProfilePath()
	st, err := store.LoadState(profileRoot)
	if err == nil {
		store.UpsertInstalled(&st, store.InstalledPackage{
			ModString:   mod.String(),
			Author:      mod.Author,
			Name:        mod.Name,
			Version:     mod.Version,
			Digest:      digest,
			HasPlugins:  hasPlugins,
			InstalledAt: time.Now().UTC(),
		})
		err = store.SaveState(profileRoot, st)
	}
	if err != nil {
		s.log(audit.Event{Operation: "install", Step: "state", Status: "error", Package: mod.String(), Message: err.Error()})
	}
}

// Uninstall removes every installed version of the named package and
// reports the directory names it removed.
func (s *Service) Uninstall(game gameinstall.GameInstall, name string) ([]string, error) {
	matches, err := findConflicts(game.PluginsDir(), name)
	if err != nil {
		return nil, err
	}
	removed := make([]string, 0, len(matches))
	for _, dir := range matches {
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("INS_UNINSTALL: %w", err)
		}
		removed = append(removed, filepath.Base(dir))
	}
	if len(removed) > 0 {
		profileRoot := game.ProfilePath()
		if st, stErr := store.LoadState(profileRoot); stErr == nil && store.RemoveInstalled(&st, name) {
			if saveErr := store.SaveState(profileRoot, st); saveErr != nil {
				s.log(audit.Event{Operation: "uninstall", Step: "state", Status: "error", Package: name, Message: saveErr.Error()})
			}
		}
	}
	s.log(audit.Event{Operation: "uninstall", Step: "commit", Status: "ok", Package: name, Message: fmt.Sprintf("removed=%d", len(removed))})
	sort.Strings(removed)
	return removed, nil
}

func (s *Service) log(ev audit.Event) {
	if s.Audit != nil {
		_ = s.Audit.Log(ev)
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
