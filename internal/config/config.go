package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// Config captures the runtime settings for phpx. Paths are absolute after
// loading; tilde prefixes in the file are expanded against the user home.
type Config struct {
	CacheDir        string
	CacheTTL        time.Duration
	MaxCacheSize    int64
	SkipVerify      bool
	DefaultPHPPath  string
	ComposerPath    string
	DownloadMirrors []string
}

// fileConfig is the on-disk TOML shape. Durations are plain seconds and paths
// are strings so the file stays hand-editable.
type fileConfig struct {
	CacheDir        *string  `toml:"cache_dir"`
	CacheTTL        *int64   `toml:"cache_ttl"`
	MaxCacheSize    *int64   `toml:"max_cache_size"`
	SkipVerify      *bool    `toml:"skip_verify"`
	DefaultPHPPath  *string  `toml:"default_php_path"`
	ComposerPath    *string  `toml:"composer_path"`
	DownloadMirrors []string `toml:"download_mirrors"`
}

// Default returns the baseline configuration: cache under ~/.cache/phpx, a
// seven day TTL, and a 1GB cache ceiling.
func Default() Config {
	cacheDir := filepath.Join(".cache", "phpx")
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".cache", "phpx")
	}
	return Config{
		CacheDir:     cacheDir,
		CacheTTL:     7 * 24 * time.Hour,
		MaxCacheSize: 1024 * 1024 * 1024,
		SkipVerify:   false,
		DownloadMirrors: []string{
			"https://packagist.org",
			"https://github.com",
		},
	}
}

// DefaultPath returns the conventional config file location
// (~/.config/phpx/config.toml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}
	return filepath.Join(home, ".config", "phpx", "config.toml"), nil
}

// Load reads the TOML configuration from overridePath, or the default path
// when empty. A missing file yields the defaults; a malformed file logs a
// warning and also yields the defaults so a bad edit never blocks a run.
func Load(overridePath string) (Config, error) {
	path := overridePath
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return Default(), nil
		}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var file fileConfig
	if err := toml.Unmarshal(contents, &file); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("malformed config, using defaults")
		return Default(), nil
	}

	cfg := Default()
	if file.CacheDir != nil && *file.CacheDir != "" {
		cfg.CacheDir = ExpandTilde(*file.CacheDir)
	}
	if file.CacheTTL != nil {
		cfg.CacheTTL = time.Duration(*file.CacheTTL) * time.Second
	}
	if file.MaxCacheSize != nil {
		cfg.MaxCacheSize = *file.MaxCacheSize
	}
	if file.SkipVerify != nil {
		cfg.SkipVerify = *file.SkipVerify
	}
	if file.DefaultPHPPath != nil && *file.DefaultPHPPath != "" {
		cfg.DefaultPHPPath = ExpandTilde(*file.DefaultPHPPath)
	}
	if file.ComposerPath != nil && *file.ComposerPath != "" {
		cfg.ComposerPath = ExpandTilde(*file.ComposerPath)
	}
	if file.DownloadMirrors != nil {
		cfg.DownloadMirrors = file.DownloadMirrors
	}
	return cfg, nil
}

// Save writes the configuration to path (or the default path when empty),
// creating the containing directory if needed.
func (c Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare config directory: %w", err)
	}

	ttl := int64(c.CacheTTL / time.Second)
	file := fileConfig{
		CacheDir:        &c.CacheDir,
		CacheTTL:        &ttl,
		MaxCacheSize:    &c.MaxCacheSize,
		SkipVerify:      &c.SkipVerify,
		DownloadMirrors: c.DownloadMirrors,
	}
	if c.DefaultPHPPath != "" {
		file.DefaultPHPPath = &c.DefaultPHPPath
	}
	if c.ComposerPath != "" {
		file.ComposerPath = &c.ComposerPath
	}

	buf, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Get returns the printable value for a config key, mirroring the TOML names.
func (c Config) Get(key string) (string, error) {
	switch key {
	case "cache_dir":
		return c.CacheDir, nil
	case "cache_ttl":
		return fmt.Sprintf("%d", int64(c.CacheTTL/time.Second)), nil
	case "max_cache_size":
		return fmt.Sprintf("%d", c.MaxCacheSize), nil
	case "skip_verify":
		return fmt.Sprintf("%t", c.SkipVerify), nil
	case "default_php_path":
		return c.DefaultPHPPath, nil
	case "composer_path":
		return c.ComposerPath, nil
	case "download_mirrors":
		return strings.Join(c.DownloadMirrors, ","), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a config key from its string form.
func (c *Config) Set(key, value string) error {
	switch key {
	case "cache_dir":
		c.CacheDir = ExpandTilde(value)
	case "cache_ttl":
		var secs int64
		if _, err := fmt.Sscanf(value, "%d", &secs); err != nil || secs < 0 {
			return fmt.Errorf("cache_ttl must be a non-negative number of seconds")
		}
		c.CacheTTL = time.Duration(secs) * time.Second
	case "max_cache_size":
		var size int64
		if _, err := fmt.Sscanf(value, "%d", &size); err != nil || size < 0 {
			return fmt.Errorf("max_cache_size must be a non-negative byte count")
		}
		c.MaxCacheSize = size
	case "skip_verify":
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			c.SkipVerify = true
		case "false", "0", "no":
			c.SkipVerify = false
		default:
			return fmt.Errorf("skip_verify must be true or false")
		}
	case "default_php_path":
		c.DefaultPHPPath = ExpandTilde(value)
	case "composer_path":
		c.ComposerPath = ExpandTilde(value)
	case "download_mirrors":
		c.DownloadMirrors = strings.Split(value, ",")
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// ExpandTilde resolves "~" and "~/path" against the user home directory.
func ExpandTilde(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	for _, prefix := range []string{"~/", `~\`} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			if home, err := os.UserHomeDir(); err == nil {
				return filepath.Join(home, rest)
			}
		}
	}
	return path
}
