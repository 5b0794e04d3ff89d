package install

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"northpm/internal/consent"
	"northpm/internal/gameinstall"
	"northpm/internal/modstring"
	"northpm/internal/staging"
	"northpm/internal/store"
)

func writeArchive(t *testing.T, entries map[string]string) *os.File {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %q: %v", name, err)
		}
		if _, err := f.Write([]byte(body)); err != nil {
			t.Fatalf("write entry %q: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	path := filepath.Join(t.TempDir(), "package.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func pluginArchive(t *testing.T) *os.File {
	return writeArchive(t, map[string]string{
		"manifest.json":      `{"name":"TestPlugin"}`,
		"plugins/plugin.dll": "MZ\x90\x00",
		"mods/readme.txt":    "bundled mod content",
	})
}

func approvingBroker(decision bool) *consent.Broker {
	b := consent.NewBroker()
	b.Subscribe(consent.NotifierFunc(func(id uint64) {
		_ = b.SubmitTo(id, decision)
	}))
	return b
}

func newGame(t *testing.T) gameinstall.GameInstall {
	return gameinstall.GameInstall{GamePath: t.TempDir(), InstallType: gameinstall.Steam}
}

func assertNoStaging(t *testing.T, game gameinstall.GameInstall) {
	t.Helper()
	stagePath := filepath.Join(game.PluginsDir(), staging.DirName)
	if _, err := os.Stat(stagePath); !os.IsNotExist(err) {
		t.Fatal("staging directory should be torn down")
	}
}

func TestInstallCommitsPluginPackage(t *testing.T) {
	game := newGame(t)
	svc := &Service{Consent: approvingBroker(true)}

	err := svc.Install(context.Background(), game, pluginArchive(t), "author-TestPlugin-1.0.0", true)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	assertNoStaging(t, game)

	dest := filepath.Join(game.PluginsDir(), "author-TestPlugin-1.0.0")
	for _, name := range []string{"manifest.json", "plugin.dll"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Fatalf("expected %s in destination: %v", name, err)
		}
	}
	// Plugins are copied flat; the bundled mods tree is not committed.
	if _, err := os.Stat(filepath.Join(dest, "mods")); !os.IsNotExist(err) {
		t.Fatal("only manifest and plugin binaries should be committed")
	}

	st, err := store.LoadState(game.ProfilePath())
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if len(st.Installed) != 1 || st.Installed[0].Name != "TestPlugin" || !st.Installed[0].HasPlugins {
		t.Fatalf("unexpected state records: %+v", st.Installed)
	}
	if st.Installed[0].Digest == "" {
		t.Fatal("expected archive digest in state record")
	}
}

func TestInstallRejectsMalformedModString(t *testing.T) {
	game := newGame(t)
	svc := &Service{}
	err := svc.Install(context.Background(), game, pluginArchive(t), "onlyonehyphen", true)
	var parseErr *modstring.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *modstring.ParseError, got %v", err)
	}
}

func TestInstallPluginsDisabled(t *testing.T) {
	game := newGame(t)
	svc := &Service{Consent: approvingBroker(true)}

	err := svc.Install(context.Background(), game, pluginArchive(t), "author-TestPlugin-1.0.0", false)
	if !errors.Is(err, ErrPluginsDisabled) {
		t.Fatalf("expected ErrPluginsDisabled, got %v", err)
	}
	assertNoStaging(t, game)
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "author-TestPlugin-1.0.0")); !os.IsNotExist(err) {
		t.Fatal("no destination directory should be created")
	}
}

func TestInstallUserDenied(t *testing.T) {
	game := newGame(t)
	broker := consent.NewBroker()
	// Decision delivered before the gate starts waiting.
	if err := broker.Submit(false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	svc := &Service{Consent: broker}

	err := svc.Install(context.Background(), game, pluginArchive(t), "author-TestPlugin-1.0.0", true)
	if !errors.Is(err, ErrUserDenied) {
		t.Fatalf("expected ErrUserDenied, got %v", err)
	}
	assertNoStaging(t, game)
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "author-TestPlugin-1.0.0")); !os.IsNotExist(err) {
		t.Fatal("no destination directory should be created after denial")
	}
}

func TestInstallConsentTimeout(t *testing.T) {
	game := newGame(t)
	svc := &Service{Consent: consent.NewBroker(), ConsentTimeout: 10 * time.Millisecond}

	err := svc.Install(context.Background(), game, pluginArchive(t), "author-TestPlugin-1.0.0", true)
	if !errors.Is(err, consent.ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	assertNoStaging(t, game)
}

func TestInstallEmptyArchive(t *testing.T) {
	game := newGame(t)
	svc := &Service{}

	err := svc.Install(context.Background(), game, writeArchive(t, nil), "author-Empty-1.0.0", true)
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
	assertNoStaging(t, game)
}

func TestInstallManifestOnlyPackage(t *testing.T) {
	game := newGame(t)
	// No consent broker wired: a pluginless package never reaches the gate.
	svc := &Service{}

	archive := writeArchive(t, map[string]string{"manifest.json": `{"name":"Plain"}`})
	if err := svc.Install(context.Background(), game, archive, "author-Plain-1.0.0", false); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "author-Plain-1.0.0", "manifest.json")); err != nil {
		t.Fatalf("expected committed manifest: %v", err)
	}
	assertNoStaging(t, game)
}

func TestInstallSkipsUnsafeArchiveEntries(t *testing.T) {
	game := newGame(t)
	svc := &Service{Consent: approvingBroker(true)}

	archive := writeArchive(t, map[string]string{
		"manifest.json":      `{"name":"TestPlugin"}`,
		"plugins/plugin.dll": "MZ",
		"../escape.txt":      "outside",
		".hidden":            "junk",
	})
	if err := svc.Install(context.Background(), game, archive, "author-TestPlugin-1.0.0", true); err != nil {
		t.Fatalf("Install should still succeed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(game.GamePath, "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("traversal entry must never be written")
	}
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "escape.txt")); !os.IsNotExist(err) {
		t.Fatal("traversal entry must never be written into the plugins dir")
	}
}

func TestInstallReplacesPriorVersionsAcrossAuthors(t *testing.T) {
	game := newGame(t)
	old := filepath.Join(game.PluginsDir(), "authorA-TestPlugin-1.0.0")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(old, "manifest.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(game.PluginsDir(), "other-Different-3.0.0")
	if err := os.MkdirAll(unrelated, 0o755); err != nil {
		t.Fatal(err)
	}

	svc := &Service{Consent: approvingBroker(true)}
	if err := svc.Install(context.Background(), game, pluginArchive(t), "authorB-TestPlugin-2.0.0", true); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("prior version from a different author should be removed")
	}
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "authorB-TestPlugin-2.0.0")); err != nil {
		t.Fatalf("new version should be installed: %v", err)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Fatalf("unrelated package should be untouched: %v", err)
	}
}

func TestInstallSwapFailureRestoresPriorVersion(t *testing.T) {
	game := newGame(t)
	old := filepath.Join(game.PluginsDir(), "authorA-TestPlugin-1.0.0")
	if err := os.MkdirAll(old, 0o755); err != nil {
		t.Fatal(err)
	}
	// A plain file squatting on the destination name makes the final
	// rename fail after the conflict backups were taken.
	if err := os.MkdirAll(game.PluginsDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(game.PluginsDir(), "authorB-TestPlugin-2.0.0"), []byte("squatter"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := &Service{Consent: approvingBroker(true)}
	err := svc.Install(context.Background(), game, pluginArchive(t), "authorB-TestPlugin-2.0.0", true)
	if err == nil {
		t.Fatal("expected commit swap failure")
	}
	if _, statErr := os.Stat(old); statErr != nil {
		t.Fatalf("prior version should be restored after failed swap: %v", statErr)
	}
	assertNoStaging(t, game)
}

func TestUninstallRemovesAllVersions(t *testing.T) {
	game := newGame(t)
	for _, name := range []string{"authorA-Foo-1.0.0", "authorB-Foo-2.0.0", "other-Bar-1.0.0"} {
		if err := os.MkdirAll(filepath.Join(game.PluginsDir(), name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	svc := &Service{}
	removed, err := svc.Uninstall(game, "Foo")
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", removed)
	}
	if _, err := os.Stat(filepath.Join(game.PluginsDir(), "other-Bar-1.0.0")); err != nil {
		t.Fatalf("unrelated package should remain: %v", err)
	}
}
