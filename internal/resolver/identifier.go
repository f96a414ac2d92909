package resolver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseIdentifier parses a raw identifier of the form "name", "name@latest",
// "name@constraint" or "name@version". A second segment that fails range
// parsing is not an error; it is stored as an exact version literal.
func ParseIdentifier(raw string) (ToolIdentifier, error) {
	parts := strings.Split(raw, "@")

	switch len(parts) {
	case 1:
		return ToolIdentifier{Name: parts[0]}, nil
	case 2:
		name, versionStr := parts[0], parts[1]
		if versionStr == "latest" {
			return ToolIdentifier{Name: name, Version: "latest"}, nil
		}
		if constraint, err := semver.NewConstraint(versionStr); err == nil {
			return ToolIdentifier{Name: name, Constraint: constraint}, nil
		}
		return ToolIdentifier{Name: name, Version: versionStr}, nil
	default:
		return ToolIdentifier{}, &InvalidIdentifierError{Raw: raw}
	}
}
