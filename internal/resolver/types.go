package resolver

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrToolNotFound is returned when every resolution stage has been exhausted.
var ErrToolNotFound = errors.New("tool not found")

// ErrNoMatchingVersion is returned when a source lists versions but none
// satisfies the requested constraint or exact version.
var ErrNoMatchingVersion = errors.New("no matching version")

// InvalidIdentifierError reports a malformed tool identifier.
type InvalidIdentifierError struct {
	Raw string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid tool identifier: %s", e.Raw)
}

// ToolIdentifier is a parsed tool request. At most one of Constraint and
// Version is meaningful; both empty means "latest available".
type ToolIdentifier struct {
	Name       string
	Constraint *semver.Constraints
	// Version holds either the literal "latest" or an exact version string.
	// Exact versions are kept verbatim because many real-world tags are not
	// valid ranges.
	Version string
}

// WantsSpecificVersion reports whether the caller pinned a concrete version
// or range, as opposed to any form of "give me the latest".
func (id ToolIdentifier) WantsSpecificVersion() bool {
	if id.Constraint != nil {
		return true
	}
	return id.Version != "" && id.Version != "latest"
}

// ToolInfo describes a resolved single-file artifact.
type ToolInfo struct {
	Name         string
	Version      string
	DownloadURL  string
	SignatureURL string
	Hash         string
}

// ResolvedTool is the tagged union threaded from resolution through caching
// to execution: either a phar to download or a composer package to install.
type ResolvedTool interface {
	resolvedTool()
}

// Phar is a self-contained executable archive runnable directly by PHP.
type Phar struct {
	Tool ToolInfo
}

// ComposerPackage is a package installed through composer into an isolated
// per-version directory.
type ComposerPackage struct {
	Package  string
	Version  string
	BinNames []string
}

func (Phar) resolvedTool()            {}
func (ComposerPackage) resolvedTool() {}
