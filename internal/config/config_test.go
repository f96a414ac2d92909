package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != 7*24*time.Hour {
		t.Fatalf("expected default TTL, got %v", cfg.CacheTTL)
	}
	if cfg.CacheDir == "" {
		t.Fatal("expected a default cache dir")
	}
}

func TestLoadMalformedFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("cache_ttl = [not toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != Default().CacheTTL {
		t.Fatalf("expected default TTL for malformed config, got %v", cfg.CacheTTL)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := "cache_dir = \"" + filepath.ToSlash(dir) + "\"\ncache_ttl = 3600\nskip_verify = true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", cfg.CacheTTL)
	}
	if !cfg.SkipVerify {
		t.Fatal("expected skip_verify set")
	}
	if len(cfg.DownloadMirrors) == 0 {
		t.Fatal("expected default mirrors preserved")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.CacheTTL = 2 * time.Hour
	cfg.ComposerPath = "/opt/composer.phar"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.CacheTTL != 2*time.Hour {
		t.Fatalf("expected 2h TTL, got %v", loaded.CacheTTL)
	}
	if loaded.ComposerPath != "/opt/composer.phar" {
		t.Fatalf("expected composer path, got %q", loaded.ComposerPath)
	}
}

func TestGetSetKeys(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("cache_ttl", "60"); err != nil {
		t.Fatalf("Set cache_ttl: %v", err)
	}
	got, err := cfg.Get("cache_ttl")
	if err != nil {
		t.Fatalf("Get cache_ttl: %v", err)
	}
	if got != "60" {
		t.Fatalf("expected 60, got %q", got)
	}

	if err := cfg.Set("skip_verify", "yes"); err != nil {
		t.Fatalf("Set skip_verify: %v", err)
	}
	if !cfg.SkipVerify {
		t.Fatal("expected skip_verify true")
	}

	if err := cfg.Set("cache_ttl", "banana"); err == nil {
		t.Fatal("expected error for non-numeric TTL")
	}
	if _, err := cfg.Get("unknown_key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	if got := ExpandTilde("~/x"); got != filepath.Join(home, "x") {
		t.Fatalf("expected home expansion, got %q", got)
	}
	if got := ExpandTilde("/abs/path"); got != "/abs/path" {
		t.Fatalf("expected absolute path untouched, got %q", got)
	}
}
