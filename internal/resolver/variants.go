package resolver

import "strings"

// nameCasings generates repository name-casing variants for a hyphenated
// name: the exact form, segment title-case, and all-caps for segments of
// three characters or fewer. GitHub repository names are matched
// case-insensitively by the API but release asset conventions are not, and
// some projects only publish under their stylized name.
func nameCasings(name string) []string {
	segments := strings.Split(name, "-")

	title := make([]string, len(segments))
	caps := make([]string, len(segments))
	for i, seg := range segments {
		title[i] = titleSegment(seg)
		if len(seg) <= 3 {
			caps[i] = strings.ToUpper(seg)
		} else {
			caps[i] = titleSegment(seg)
		}
	}

	return dedupe([]string{
		name,
		strings.Join(title, "-"),
		strings.Join(caps, "-"),
	})
}

// repoVariants crosses a casing variant with the conventional PHP repository
// naming patterns: bare, "php-" prefixed, and "-php" suffixed.
func repoVariants(name string) []string {
	return []string{name, "php-" + name, name + "-php"}
}

// repoCandidates produces the ordered owner/repo pairs probed by the
// release-listing stage.
func repoCandidates(name string) [][2]string {
	var out [][2]string
	seen := map[string]bool{}
	add := func(owner, repo string) {
		key := owner + "/" + repo
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, [2]string{owner, repo})
	}

	for _, casing := range nameCasings(name) {
		for _, repo := range repoVariants(casing) {
			add(name, repo)
		}
	}
	add("php-"+name, name)
	return out
}

func titleSegment(seg string) string {
	if seg == "" {
		return seg
	}
	return strings.ToUpper(seg[:1]) + seg[1:]
}

func dedupe(values []string) []string {
	seen := map[string]bool{}
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
