package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
)

type packagistResponse struct {
	Package packagistPackage `json:"package"`
}

type packagistPackage struct {
	Versions map[string]packagistVersion `json:"versions"`
}

type packagistVersion struct {
	Dist packagistDist `json:"dist"`
	Bin  []string      `json:"bin"`
}

type packagistDist struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// resolveFromPackagist queries the Packagist metadata endpoint. An unscoped
// name tries the conventional "name/name" repository form before the bare
// name. The distribution type decides the artifact kind: "phar" is a
// single-file tool, "zip" is a source archive installed through composer.
func (r *Resolver) resolveFromPackagist(ctx context.Context, id ToolIdentifier) (ResolvedTool, error) {
	var candidates []string
	if strings.Contains(id.Name, "/") {
		candidates = []string{id.Name}
	} else {
		candidates = []string{id.Name + "/" + id.Name, id.Name}
	}

	var lastErr error
	for _, pkg := range candidates {
		resolved, err := r.resolvePackagistPackage(ctx, id, pkg)
		if err == nil {
			return resolved, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *Resolver) resolvePackagistPackage(ctx context.Context, id ToolIdentifier, pkg string) (ResolvedTool, error) {
	url := fmt.Sprintf("%s/packages/%s.json", r.PackagistBase, pkg)
	req, err := r.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query packagist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("packagist returned %s for %s", resp.Status, pkg)
	}

	var payload packagistResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode packagist response: %w", err)
	}
	if len(payload.Package.Versions) == 0 {
		return nil, fmt.Errorf("packagist lists no versions for %s", pkg)
	}

	keys := make([]string, 0, len(payload.Package.Versions))
	for key := range payload.Package.Versions {
		keys = append(keys, key)
	}
	version, err := selectVersion(keys, id)
	if err != nil {
		return nil, err
	}

	info := payload.Package.Versions[version]
	switch info.Dist.Type {
	case "phar":
		return Phar{Tool: ToolInfo{
			Name:        id.Name,
			Version:     strings.TrimPrefix(version, "v"),
			DownloadURL: info.Dist.URL,
		}}, nil
	case "zip":
		return ComposerPackage{
			Package:  pkg,
			Version:  version,
			BinNames: binNames(pkg, info.Bin),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported dist type %q for %s", info.Dist.Type, pkg)
	}
}

// binNames normalizes declared bin entries (which may carry a leading
// directory such as "bin/") and falls back to the package's final path
// segment when the metadata declares none.
func binNames(pkg string, declared []string) []string {
	if len(declared) == 0 {
		return []string{path.Base(pkg)}
	}
	names := make([]string, 0, len(declared))
	for _, bin := range declared {
		if name := path.Base(strings.TrimSpace(bin)); name != "" && name != "." {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []string{path.Base(pkg)}
	}
	return names
}
