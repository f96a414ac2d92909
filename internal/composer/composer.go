package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"phpx/internal/cache"
	"phpx/internal/executor"
)

// Installer performs isolated composer installs under the cache root. Each
// package version lands in its own directory with a synthetic manifest, so
// installs never touch the surrounding project and versions never collide.
type Installer struct {
	cacheDir     string
	store        *cache.Store
	composerPath string
	phpOverride  string
}

// NewInstaller returns an installer rooted at cacheDir. composerPath, when
// set, pins the composer binary instead of discovering one.
func NewInstaller(cacheDir string, store *cache.Store, composerPath, phpOverride string) *Installer {
	return &Installer{
		cacheDir:     cacheDir,
		store:        store,
		composerPath: composerPath,
		phpOverride:  phpOverride,
	}
}

// Slug flattens a package name into a path-safe directory component.
func Slug(pkg string) string {
	return strings.ReplaceAll(pkg, "/", "-")
}

// BinName picks the executable name for a package. The first declared bin
// wins; a package that declares none conventionally ships a stub named after
// its final path segment.
func BinName(pkg string, binNames []string) string {
	if len(binNames) > 0 {
		return binNames[0]
	}
	return path.Base(pkg)
}

// InstallTool installs pkg at version into an isolated directory and returns
// the directory and the vendor/bin path of its executable. An already
// complete install is reused as is.
func (i *Installer) InstallTool(ctx context.Context, pkg, version string, binNames []string) (string, string, error) {
	dir := filepath.Join(i.cacheDir, "composer", Slug(pkg)+"-"+version)
	bin := BinName(pkg, binNames)
	binPath := filepath.Join(dir, "vendor", "bin", bin)

	if dirExists(dir) && fileExists(binPath) {
		return dir, binPath, nil
	}

	if err := i.install(ctx, dir, pkg, version); err != nil {
		return "", "", err
	}
	if !fileExists(binPath) {
		return "", "", fmt.Errorf("install of %s@%s produced no executable at %s", pkg, version, binPath)
	}
	return dir, binPath, nil
}

// InstallOverride installs a library package for autoload injection and
// returns its directory. Completion is judged by the generated autoloader
// rather than a bin stub, because libraries need not ship one.
func (i *Installer) InstallOverride(ctx context.Context, pkg, version string) (string, error) {
	dir := filepath.Join(i.cacheDir, "override", Slug(pkg)+"-"+version)
	autoload := filepath.Join(dir, "vendor", "autoload.php")

	if fileExists(autoload) {
		return dir, nil
	}

	if err := i.install(ctx, dir, pkg, version); err != nil {
		return "", err
	}
	if !fileExists(autoload) {
		return "", fmt.Errorf("install of %s@%s produced no autoloader", pkg, version)
	}
	return dir, nil
}

func (i *Installer) install(ctx context.Context, dir, pkg, version string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare install dir: %w", err)
	}

	manifest, err := json.MarshalIndent(map[string]any{
		"require": map[string]string{pkg: version},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "composer.json"), manifest, 0o644); err != nil {
		return fmt.Errorf("write install manifest: %w", err)
	}

	cmd, err := i.composerCommand(ctx, "install", "--no-interaction", "--no-dev")
	if err != nil {
		return err
	}
	cmd.Dir = dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	log.Debug().Str("package", pkg).Str("version", version).Str("dir", dir).Msg("running composer install")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("composer install of %s@%s: %w", pkg, version, err)
	}
	return nil
}

// composerCommand builds a composer invocation with its state confined to
// the cache root. The inherited COMPOSER variable is dropped so a project
// level manifest override cannot redirect the install.
func (i *Installer) composerCommand(ctx context.Context, args ...string) (*exec.Cmd, error) {
	binary, viaPHP, err := i.resolveComposerBinary()
	if err != nil {
		return nil, err
	}

	var cmd *exec.Cmd
	if viaPHP {
		php, err := executor.FindPHP(i.phpOverride)
		if err != nil {
			return nil, err
		}
		cmd = exec.CommandContext(ctx, php, append([]string{binary}, args...)...)
	} else {
		cmd = exec.CommandContext(ctx, binary, args...)
	}

	env := os.Environ()
	filtered := env[:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, "COMPOSER=") {
			continue
		}
		filtered = append(filtered, kv)
	}
	cmd.Env = append(filtered,
		"COMPOSER_HOME="+filepath.Join(i.cacheDir, "composer_home"),
		"COMPOSER_CACHE_DIR="+filepath.Join(i.cacheDir, "composer_cache"),
	)
	return cmd, nil
}

// resolveComposerBinary locates composer. Order: configured path, a cached
// composer phar, composer on PATH, then a bare composer.phar on PATH. Phars
// run through PHP.
func (i *Installer) resolveComposerBinary() (string, bool, error) {
	if i.composerPath != "" {
		if _, err := os.Stat(i.composerPath); err != nil {
			return "", false, fmt.Errorf("configured composer %s: %w", i.composerPath, err)
		}
		return i.composerPath, strings.HasSuffix(i.composerPath, ".phar"), nil
	}

	if i.store != nil {
		for _, version := range []string{"latest", "stable"} {
			entry, ok, err := i.store.Get("composer", version)
			if err == nil && ok && fileExists(entry.FilePath) {
				return entry.FilePath, true, nil
			}
		}
	}

	if p, err := exec.LookPath("composer"); err == nil {
		return p, false, nil
	}
	if p, err := exec.LookPath("composer.phar"); err == nil {
		return p, true, nil
	}
	return "", false, errors.New("composer not found; run a composer tool once to cache it or install composer")
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
