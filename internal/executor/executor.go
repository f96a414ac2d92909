package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// ExitError carries a child process exit code. The caller is expected to
// terminate with the same code, so the tool behaves like running the child
// directly.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with status %d", e.Code)
}

// RunPhar executes a phar archive through the PHP interpreter with the
// caller's stdio attached.
func RunPhar(pharPath string, args []string, phpOverride string) error {
	return run(pharPath, args, phpOverride)
}

// RunScript executes an installed vendor/bin script through PHP. Composer bin
// stubs are PHP scripts, so the same invocation shape applies.
func RunScript(scriptPath string, args []string, phpOverride string) error {
	return run(scriptPath, args, phpOverride)
}

func run(path string, args []string, phpOverride string) error {
	php, err := FindPHP(phpOverride)
	if err != nil {
		return err
	}

	checkProjectConstraint(php, phpOverride)

	cmdArgs := append([]string{path}, args...)
	cmd := exec.Command(php, cmdArgs...)
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

// FindPHP locates a usable PHP interpreter. An explicit override must exist;
// otherwise the conventional candidates are probed with --version.
func FindPHP(override string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("php interpreter %s: %w", override, err)
		}
		return override, nil
	}

	candidates := []string{"php", "/usr/bin/php", "/usr/local/bin/php"}
	for _, candidate := range candidates {
		if exec.Command(candidate, "--version").Run() == nil {
			return candidate, nil
		}
	}
	return "", errors.New("no PHP interpreter found; install php or set a path with --php")
}

// PHPVersion asks the interpreter for its version string.
func PHPVersion(php string) (string, error) {
	out, err := exec.Command(php, "-r", "echo PHP_VERSION;").Output()
	if err != nil {
		return "", fmt.Errorf("query php version: %w", err)
	}
	return trimVersion(string(out)), nil
}

// trimVersion keeps the leading digits-and-dots prefix, dropping suffixes
// such as "-dev" or distro build markers.
func trimVersion(raw string) string {
	raw = strings.TrimSpace(raw)
	end := len(raw)
	for i, r := range raw {
		if (r < '0' || r > '9') && r != '.' {
			end = i
			break
		}
	}
	return raw[:end]
}

type composerManifest struct {
	Require map[string]string `json:"require"`
	Config  struct {
		Platform map[string]string `json:"platform"`
	} `json:"config"`
}

// DetectProjectPHPConstraint walks from the working directory upward looking
// for a composer.json and returns its PHP requirement. A platform override in
// config.platform.php wins over require.php because that is what composer
// itself resolves against.
func DetectProjectPHPConstraint() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for {
		manifestPath := filepath.Join(dir, "composer.json")
		if data, err := os.ReadFile(manifestPath); err == nil {
			var manifest composerManifest
			if err := json.Unmarshal(data, &manifest); err == nil {
				if platform := manifest.Config.Platform["php"]; platform != "" {
					return platform, true
				}
				if req := manifest.Require["php"]; req != "" {
					return req, true
				}
			}
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// VersionMatchesConstraint reports whether the interpreter version satisfies
// a composer-style PHP requirement. A plain version string is treated as a
// minimum, matching how composer interprets platform versions.
func VersionMatchesConstraint(version, constraint string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}

	if c, err := semver.NewConstraint(constraint); err == nil {
		return c.Check(v)
	}
	if min, err := semver.NewVersion(constraint); err == nil {
		return !v.LessThan(min)
	}
	return false
}

// checkProjectConstraint warns when the chosen interpreter does not satisfy
// the surrounding project's PHP requirement. It never blocks execution; the
// user may know better, and an explicit --php override is taken as exactly
// that.
func checkProjectConstraint(php, override string) {
	if override != "" {
		return
	}
	constraint, ok := DetectProjectPHPConstraint()
	if !ok {
		return
	}
	version, err := PHPVersion(php)
	if err != nil {
		return
	}
	if !VersionMatchesConstraint(version, constraint) {
		log.Warn().
			Str("php_version", version).
			Str("project_requirement", constraint).
			Msg("interpreter does not satisfy the project PHP requirement")
	}
}
