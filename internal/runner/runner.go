package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"phpx/internal/cache"
	"phpx/internal/composer"
	"phpx/internal/config"
	"phpx/internal/download"
	"phpx/internal/executor"
	"phpx/internal/resolver"
	"phpx/internal/security"
)

// Options carries per-invocation flags through the run pipeline.
type Options struct {
	ClearCache    bool
	NoCache       bool
	SkipVerify    bool
	NoLocal       bool
	NoInteraction bool
	PHPPath       string
}

// Runner wires resolution, caching, verification, installation, and
// execution into the single resolve-and-run flow.
type Runner struct {
	cfg        config.Config
	store      *cache.Store
	resolver   *resolver.Resolver
	downloader *download.Downloader
}

// New loads configuration, opens the cache store, and sweeps entries past
// their TTL. configPath overrides the default config location when non-empty.
func New(configPath string) (*Runner, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	if err := store.Sweep(cfg.CacheTTL); err != nil {
		log.Warn().Err(err).Msg("cache sweep failed")
	}

	return &Runner{
		cfg:        cfg,
		store:      store,
		resolver:   resolver.New(),
		downloader: download.New(),
	}, nil
}

// Config exposes the loaded configuration.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// RunTool resolves identifier, makes the tool locally available, and executes
// it with args. The returned error is an *executor.ExitError when the tool
// ran but exited non-zero.
func (r *Runner) RunTool(ctx context.Context, identifier string, args []string, opts Options) error {
	id, err := resolver.ParseIdentifier(identifier)
	if err != nil {
		return err
	}

	if opts.NoInteraction {
		args = append(args, "--no-interaction")
	}

	php := opts.PHPPath
	if php == "" {
		php = r.cfg.DefaultPHPPath
	}

	if !opts.NoLocal {
		if local, ok := findLocalTool(id.Name); ok {
			log.Debug().Str("tool", id.Name).Str("path", local).Msg("using locally installed tool")
			return executor.RunScript(local, args, php)
		}
	}

	if opts.ClearCache {
		if err := r.store.Remove(id.Name, ""); err != nil {
			return err
		}
	}

	verifier := security.NewVerifier(opts.SkipVerify || r.cfg.SkipVerify)

	// Resolution can be needed twice, once to learn the concrete version for
	// the cache key and once on a miss, so the result is memoized.
	var memo resolver.ResolvedTool
	resolve := func() (resolver.ResolvedTool, error) {
		if memo != nil {
			return memo, nil
		}
		rt, err := r.resolver.Resolve(ctx, id)
		if err != nil {
			return nil, err
		}
		memo = rt
		return rt, nil
	}

	if !opts.NoCache {
		if entry, ok := r.lookupCached(id, resolve); ok {
			if err := r.verifyEntry(entry, verifier); err == nil {
				return runCached(entry, args, php)
			}
			log.Warn().Str("tool", id.Name).Msg("cached artifact failed verification, refetching")
			if err := r.store.Remove(entry.ToolName, entry.Version); err != nil {
				return err
			}
		}
	}

	resolved, err := resolve()
	if err != nil {
		return err
	}

	switch t := resolved.(type) {
	case resolver.Phar:
		path, err := r.downloadAndCache(ctx, t.Tool, verifier)
		if err != nil {
			return err
		}
		return executor.RunPhar(path, args, php)

	case resolver.ComposerPackage:
		installer := composer.NewInstaller(r.cfg.CacheDir, r.store, r.cfg.ComposerPath, php)
		dir, binPath, err := installer.InstallTool(ctx, t.Package, t.Version, t.BinNames)
		if err != nil {
			return err
		}
		if err := r.store.AddComposer(t.Package, t.Version, dir, composer.BinName(t.Package, t.BinNames)); err != nil {
			return err
		}
		return executor.RunScript(binPath, args, php)

	default:
		return fmt.Errorf("unsupported resolution for %s", id.Name)
	}
}

// lookupCached finds a cached entry for the identifier. An unpinned or range
// request carries no usable key, so it is resolved first and the concrete
// version looked up; a resolution failure here is just a miss and the main
// path surfaces it. A pinned request is never satisfied by a floating
// "latest" entry: that entry may point at an arbitrary older fetch.
func (r *Runner) lookupCached(id resolver.ToolIdentifier, resolve func() (resolver.ResolvedTool, error)) (cache.Entry, bool) {
	target := id.Version
	if target == "" {
		rt, err := resolve()
		if err != nil {
			return cache.Entry{}, false
		}
		target = resolvedVersion(rt)
	}
	if target == "" {
		return cache.Entry{}, false
	}

	entry, ok, err := r.store.Get(id.Name, target)
	if err != nil || !ok {
		return cache.Entry{}, false
	}
	if id.WantsSpecificVersion() && entry.Version == "latest" {
		return cache.Entry{}, false
	}
	return entry, true
}

func resolvedVersion(rt resolver.ResolvedTool) string {
	switch t := rt.(type) {
	case resolver.Phar:
		return t.Tool.Version
	case resolver.ComposerPackage:
		return t.Version
	}
	return ""
}

// verifyEntry checks that a cached entry's backing storage is still intact.
func (r *Runner) verifyEntry(entry cache.Entry, verifier *security.Verifier) error {
	if entry.IsComposer {
		if _, err := os.Stat(entry.BinPath()); err != nil {
			return fmt.Errorf("cached install incomplete: %w", err)
		}
		return nil
	}

	info, err := os.Stat(entry.FilePath)
	if err != nil {
		return fmt.Errorf("cached file missing: %w", err)
	}
	if verifier.SkipVerification() {
		return nil
	}
	if entry.Size > 0 && info.Size() != entry.Size {
		return fmt.Errorf("cached file size changed: expected %d, got %d", entry.Size, info.Size())
	}
	return verifier.VerifyHash(entry.FilePath, entry.FileHash)
}

func runCached(entry cache.Entry, args []string, php string) error {
	if entry.IsComposer {
		return executor.RunScript(entry.BinPath(), args, php)
	}
	return executor.RunPhar(entry.FilePath, args, php)
}

// downloadAndCache fetches a phar into the cache, verifies it, and records
// the entry. The entry is always recorded; disabling the cache for a run only
// bypasses the lookup, a later run may still use what this one fetched.
func (r *Runner) downloadAndCache(ctx context.Context, tool resolver.ToolInfo, verifier *security.Verifier) (string, error) {
	dest := filepath.Join(r.cfg.CacheDir, fmt.Sprintf("%s-%s.phar", composer.Slug(tool.Name), tool.Version))

	if err := r.downloader.Fetch(ctx, tool.DownloadURL, dest); err != nil {
		return "", err
	}
	if err := verifier.VerifySignature(dest, tool.SignatureURL); err != nil {
		return "", err
	}
	if err := verifier.VerifyHash(dest, tool.Hash); err != nil {
		return "", err
	}

	hash := tool.Hash
	if hash == "" && !verifier.SkipVerification() {
		computed, err := security.HashFile(dest)
		if err != nil {
			return "", err
		}
		hash = computed
	}

	var size int64
	if info, err := os.Stat(dest); err == nil {
		size = info.Size()
	}

	if err := r.store.AddFile(tool.Name, tool.Version, dest, tool.DownloadURL, hash, size); err != nil {
		return "", err
	}
	return dest, nil
}

// findLocalTool checks the project vendor bin directory and the global
// composer bin directory for an already installed tool.
func findLocalTool(name string) (string, bool) {
	candidates := []string{filepath.Join("vendor", "bin", name)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".composer", "vendor", "bin", name),
			filepath.Join(home, ".config", "composer", "vendor", "bin", name),
		)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// CleanCache removes cached artifacts, all of them when tool is empty.
func (r *Runner) CleanCache(tool string) error {
	if tool == "" {
		for _, entry := range r.store.Entries() {
			if err := r.store.Remove(entry.ToolName, entry.Version); err != nil {
				return err
			}
		}
		return nil
	}

	id, err := resolver.ParseIdentifier(tool)
	if err != nil {
		return err
	}
	return r.store.Remove(id.Name, id.Version)
}

// CacheEntries lists every cached entry.
func (r *Runner) CacheEntries() []cache.Entry {
	return r.store.Entries()
}

// CacheInfo lists the cached entries for one tool.
func (r *Runner) CacheInfo(tool string) []cache.Entry {
	return r.store.EntriesFor(tool)
}

// InstallOverridePackage installs a library package for autoload override
// and optionally regenerates the bootstrap file in the working directory.
func (r *Runner) InstallOverridePackage(ctx context.Context, identifier string, bootstrap bool, opts Options) error {
	id, err := resolver.ParseIdentifier(identifier)
	if err != nil {
		return err
	}

	resolved, err := r.resolver.Resolve(ctx, id)
	if err != nil {
		return err
	}

	pkg, ok := resolved.(resolver.ComposerPackage)
	if !ok {
		return fmt.Errorf("%s resolves to a standalone phar; overrides only support library packages", id.Name)
	}

	php := opts.PHPPath
	if php == "" {
		php = r.cfg.DefaultPHPPath
	}

	installer := composer.NewInstaller(r.cfg.CacheDir, r.store, r.cfg.ComposerPath, php)
	if _, err := installer.InstallOverride(ctx, pkg.Package, pkg.Version); err != nil {
		return err
	}

	if bootstrap {
		overrides, err := composer.ListOverrides(r.cfg.CacheDir)
		if err != nil {
			return err
		}
		if err := composer.WriteOverrideBootstrap(r.cfg.CacheDir, "override_autoload.php", overrides); err != nil {
			return err
		}
	}
	return nil
}

// ListOverridePackages enumerates installed override packages.
func (r *Runner) ListOverridePackages() ([]composer.Override, error) {
	return composer.ListOverrides(r.cfg.CacheDir)
}

// RemoveOverridePackage deletes installed overrides for a package, every
// version of it when version is empty. It returns the removed directories.
func (r *Runner) RemoveOverridePackage(pkg, version string) ([]string, error) {
	return composer.RemoveOverride(r.cfg.CacheDir, pkg, version)
}
