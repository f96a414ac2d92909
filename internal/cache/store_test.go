package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("artifact"), 0o755); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestOpenEmptyDir(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(store.Entries()) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(store.Entries()))
	}
}

func TestAddFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	artifact := writeArtifact(t, dir, "tool-1.0.0.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.AddFile("tool", "1.0.0", artifact, "https://example.test/tool.phar", "abc", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	// A fresh store must see the persisted entry.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, ok, err := reopened.Get("tool", "1.0.0")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit after reopen")
	}
	if entry.FilePath != artifact || entry.Size != 8 {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestAddOverwritesSameKey(t *testing.T) {
	dir := t.TempDir()
	first := writeArtifact(t, dir, "tool-a.phar")
	second := writeArtifact(t, dir, "tool-b.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.AddFile("tool", "latest", first, "https://example.test/a", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := store.AddFile("tool", "latest", second, "https://example.test/b", "", 8); err != nil {
		t.Fatalf("AddFile overwrite: %v", err)
	}

	entry, ok, err := store.Get("tool", "latest")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if entry.FilePath != second {
		t.Fatalf("expected overwrite to win, got %s", entry.FilePath)
	}
	if len(store.Entries()) != 1 {
		t.Fatalf("expected a single entry, got %d", len(store.Entries()))
	}
}

func TestGetBumpsLastAccessed(t *testing.T) {
	dir := t.TempDir()
	artifact := writeArtifact(t, dir, "tool.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	store.SetClock(func() time.Time { return base })
	if err := store.AddFile("tool", "1.0.0", artifact, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	store.SetClock(func() time.Time { return base.Add(time.Hour) })
	entry, ok, err := store.Get("tool", "1.0.0")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if entry.LastAccessed != base.Add(time.Hour).Unix() {
		t.Fatalf("expected bumped last access, got %d", entry.LastAccessed)
	}

	// The bump must survive a reopen.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entry, _, _ = reopened.Get("tool", "1.0.0")
	if entry.LastAccessed < base.Add(time.Hour).Unix() {
		t.Fatalf("bump not persisted, got %d", entry.LastAccessed)
	}
}

func TestRemoveSingleVersion(t *testing.T) {
	dir := t.TempDir()
	artifact := writeArtifact(t, dir, "tool-1.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.AddFile("tool", "1.0.0", artifact, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := store.Remove("tool", "1.0.0"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if _, ok, _ := store.Get("tool", "1.0.0"); ok {
		t.Fatal("expected entry to be gone")
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Fatal("expected backing file to be deleted")
	}
}

func TestRemoveAllVersionsOfTool(t *testing.T) {
	dir := t.TempDir()
	a := writeArtifact(t, dir, "tool-1.phar")
	b := writeArtifact(t, dir, "tool-2.phar")
	other := writeArtifact(t, dir, "other.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.AddFile("tool", "1.0.0", a, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := store.AddFile("tool", "2.0.0", b, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if err := store.AddFile("other", "1.0.0", other, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	if err := store.Remove("tool", ""); err != nil {
		t.Fatalf("Remove all: %v", err)
	}

	if len(store.EntriesFor("tool")) != 0 {
		t.Fatal("expected all tool versions removed")
	}
	if len(store.EntriesFor("other")) != 1 {
		t.Fatal("expected unrelated tool untouched")
	}
}

func TestRemoveComposerEntryRecursive(t *testing.T) {
	dir := t.TempDir()
	install := filepath.Join(dir, "composer", "rector-rector-0.15.2")
	if err := os.MkdirAll(filepath.Join(install, "vendor", "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(install, "vendor", "bin", "rector"), []byte("#!"), 0o755); err != nil {
		t.Fatalf("write bin: %v", err)
	}

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.AddComposer("rector/rector", "0.15.2", install, "rector"); err != nil {
		t.Fatalf("AddComposer: %v", err)
	}
	if err := store.Remove("rector/rector", "0.15.2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(install); !os.IsNotExist(err) {
		t.Fatal("expected install directory to be deleted")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	stale := writeArtifact(t, dir, "stale.phar")
	fresh := writeArtifact(t, dir, "fresh.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	store.SetClock(func() time.Time { return base })
	if err := store.AddFile("stale", "1.0.0", stale, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	store.SetClock(func() time.Time { return base.Add(6 * 24 * time.Hour) })
	if err := store.AddFile("fresh", "1.0.0", fresh, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	store.SetClock(func() time.Time { return base.Add(7*24*time.Hour + time.Second) })
	if err := store.Sweep(7 * 24 * time.Hour); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if _, ok, _ := store.Get("stale", "1.0.0"); ok {
		t.Fatal("expected stale entry swept")
	}
	if _, ok, _ := store.Get("fresh", "1.0.0"); !ok {
		t.Fatal("expected fresh entry kept")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("expected stale backing file deleted")
	}
}

func TestSweepBoundaryIsExclusive(t *testing.T) {
	dir := t.TempDir()
	artifact := writeArtifact(t, dir, "tool.phar")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	base := time.Unix(1_700_000_000, 0)
	store.SetClock(func() time.Time { return base })
	if err := store.AddFile("tool", "1.0.0", artifact, "", "", 8); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	// An entry exactly at the TTL boundary survives.
	store.SetClock(func() time.Time { return base.Add(time.Hour) })
	if err := store.Sweep(time.Hour); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if _, ok, _ := store.Get("tool", "1.0.0"); !ok {
		t.Fatal("expected boundary entry kept")
	}
}
