package resolver

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// candidate pairs a parsed version with the original key it came from, so the
// caller can index back into the source's version map or tag list.
type candidate struct {
	version *semver.Version
	key     string
}

// selectVersion applies the shared version-selection policy: sort parseable
// versions descending, then pick the highest satisfying a constraint, the
// highest overall for "latest"/unspecified, or the exact match for a literal.
// Keys that do not parse as semantic versions only participate in exact-literal
// matching.
func selectVersion(keys []string, id ToolIdentifier) (string, error) {
	candidates := make([]candidate, 0, len(keys))
	for _, key := range keys {
		v, err := semver.NewVersion(normalizeVersionKey(key))
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{version: v, key: key})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version.GreaterThan(candidates[j].version)
	})

	switch {
	case id.Constraint != nil:
		for _, c := range candidates {
			if id.Constraint.Check(c.version) {
				return c.key, nil
			}
		}
	case id.Version == "" || id.Version == "latest":
		if len(candidates) > 0 {
			return candidates[0].key, nil
		}
	default:
		if wanted, err := semver.NewVersion(normalizeVersionKey(id.Version)); err == nil {
			for _, c := range candidates {
				if c.version.Equal(wanted) {
					return c.key, nil
				}
			}
		}
		for _, key := range keys {
			if key == id.Version || key == "v"+id.Version {
				return key, nil
			}
		}
	}

	return "", fmt.Errorf("%w for %s", ErrNoMatchingVersion, id.Name)
}

// normalizeVersionKey strips the conventional leading "v" from tags so
// "v1.2.3" and "1.2.3" compare equal.
func normalizeVersionKey(key string) string {
	if len(key) > 1 && key[0] == 'v' {
		return key[1:]
	}
	return key
}
