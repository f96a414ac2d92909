package resolver

import (
	"context"
	"fmt"
	"net/http"
)

// resolveFromDirectURL probes conventional release-asset URL patterns with a
// HEAD request. This path only ever reaches an unversioned "latest" alias, so
// it is skipped entirely when the caller pinned a version or range: running
// the wrong version silently is worse than failing resolution.
func (r *Resolver) resolveFromDirectURL(ctx context.Context, id ToolIdentifier) (ResolvedTool, error) {
	if id.WantsSpecificVersion() {
		return nil, fmt.Errorf("direct URL stage cannot satisfy a pinned version for %s", id.Name)
	}

	urls := []string{
		fmt.Sprintf("%s/%s/%s/releases/latest/download/%s.phar", r.GitHubBase, id.Name, id.Name, id.Name),
		fmt.Sprintf("%s/%s/php-%s/releases/latest/download/%s.phar", r.GitHubBase, id.Name, id.Name, id.Name),
		fmt.Sprintf("%s/php-%s/%s/releases/latest/download/%s.phar", r.GitHubBase, id.Name, id.Name, id.Name),
	}

	var lastErr error
	for _, url := range urls {
		ok, err := r.urlExists(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return Phar{Tool: ToolInfo{
				Name:         id.Name,
				Version:      "latest",
				DownloadURL:  url,
				SignatureURL: url + ".asc",
			}}, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrToolNotFound, id.Name)
	}
	return nil, lastErr
}

func (r *Resolver) urlExists(ctx context.Context, url string) (bool, error) {
	req, err := r.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
