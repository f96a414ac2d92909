package composer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Override describes an installed override package.
type Override struct {
	Package string
	Version string
	Dir     string
}

// ListOverrides enumerates the installed override packages under cacheDir.
func ListOverrides(cacheDir string) ([]Override, error) {
	root := filepath.Join(cacheDir, "override")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list overrides: %w", err)
	}

	var out []Override
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkg, version, ok := ParseOverrideDirName(entry.Name())
		if !ok {
			continue
		}
		out = append(out, Override{
			Package: pkg,
			Version: version,
			Dir:     filepath.Join(root, entry.Name()),
		})
	}
	return out, nil
}

// RemoveOverride deletes the override installs for pkg, matching one version
// or, when version is empty, every installed version of the package. It
// returns the removed directories; nothing matching is not an error.
func RemoveOverride(cacheDir, pkg, version string) ([]string, error) {
	root := filepath.Join(cacheDir, "override")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan overrides: %w", err)
	}

	prefix := Slug(pkg) + "-"
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(entry.Name(), prefix)
		if !ok {
			continue
		}
		if version != "" && rest != version {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("remove override: %w", err)
		}
		removed = append(removed, dir)
	}
	return removed, nil
}

// ParseOverrideDirName splits a "<vendor>-<name>-<version>" directory name
// back into package and version. The version starts at the first hyphen
// segment that leads with a digit, so names with embedded hyphens and
// versions with pre-release suffixes both survive the round trip.
func ParseOverrideDirName(name string) (pkg, version string, ok bool) {
	segments := strings.Split(name, "-")
	if len(segments) < 2 {
		return "", "", false
	}

	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" || seg[0] < '0' || seg[0] > '9' {
			continue
		}
		slug := strings.Join(segments[:i], "-")
		pkg = strings.Replace(slug, "-", "/", 1)
		version = strings.Join(segments[i:], "-")
		return pkg, version, true
	}
	return "", "", false
}

// WriteOverrideBootstrap writes a PHP bootstrap that pulls in the override
// autoloaders ahead of the project's own, so the overridden packages win
// class resolution.
func WriteOverrideBootstrap(cacheDir, dest string, overrides []Override) error {
	var b strings.Builder
	b.WriteString("<?php\n\n")
	b.WriteString("// Loads pinned package overrides before the project autoloader.\n")
	for _, o := range overrides {
		fmt.Fprintf(&b, "require_once %s;\n", phpString(filepath.Join(o.Dir, "vendor", "autoload.php")))
	}
	b.WriteString("\n$projectAutoload = __DIR__ . '/vendor/autoload.php';\n")
	b.WriteString("if (file_exists($projectAutoload)) {\n")
	b.WriteString("    require_once $projectAutoload;\n")
	b.WriteString("}\n")

	if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write override bootstrap: %w", err)
	}
	return nil
}

func phpString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
