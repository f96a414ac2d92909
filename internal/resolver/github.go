package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type githubRelease struct {
	TagName string        `json:"tag_name"`
	Assets  []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// resolveFromGitHub walks the owner/repo candidates produced by the casing
// and naming variants, fetches each repository's release list, and accepts
// the first release that matches the version policy and ships a phar asset.
func (r *Resolver) resolveFromGitHub(ctx context.Context, id ToolIdentifier) (ResolvedTool, error) {
	var lastErr error
	for _, pair := range repoCandidates(id.Name) {
		owner, repo := pair[0], pair[1]
		releases, err := r.fetchReleases(ctx, owner, repo)
		if err != nil {
			lastErr = err
			continue
		}

		release, ok := matchRelease(releases, id)
		if !ok {
			lastErr = fmt.Errorf("%w in %s/%s releases", ErrNoMatchingVersion, owner, repo)
			continue
		}

		asset, ok := pharAsset(release.Assets)
		if !ok {
			lastErr = fmt.Errorf("release %s of %s/%s has no phar asset", release.TagName, owner, repo)
			continue
		}

		return Phar{Tool: ToolInfo{
			Name:         id.Name,
			Version:      strings.TrimPrefix(release.TagName, "v"),
			DownloadURL:  asset.BrowserDownloadURL,
			SignatureURL: signatureAssetURL(release.Assets),
		}}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: %s", ErrToolNotFound, id.Name)
	}
	return nil, lastErr
}

func (r *Resolver) fetchReleases(ctx context.Context, owner, repo string) ([]githubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases", r.GitHubAPIBase, owner, repo)
	req, err := r.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query releases: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release listing returned %s for %s/%s", resp.Status, owner, repo)
	}

	var releases []githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode release listing: %w", err)
	}
	return releases, nil
}

// matchRelease applies the shared version-selection policy against the
// release tags, with the conventional leading "v" stripped for comparison.
func matchRelease(releases []githubRelease, id ToolIdentifier) (githubRelease, bool) {
	if len(releases) == 0 {
		return githubRelease{}, false
	}

	tags := make([]string, len(releases))
	byTag := make(map[string]githubRelease, len(releases))
	for i, rel := range releases {
		tags[i] = rel.TagName
		byTag[rel.TagName] = rel
	}

	tag, err := selectVersion(tags, id)
	if err != nil {
		return githubRelease{}, false
	}
	rel, ok := byTag[tag]
	return rel, ok
}

func pharAsset(assets []githubAsset) (githubAsset, bool) {
	for _, asset := range assets {
		if strings.HasSuffix(asset.Name, ".phar") {
			return asset, true
		}
	}
	return githubAsset{}, false
}

func signatureAssetURL(assets []githubAsset) string {
	for _, asset := range assets {
		if strings.HasSuffix(asset.Name, ".asc") || strings.HasSuffix(asset.Name, ".sig") {
			return asset.BrowserDownloadURL
		}
	}
	return ""
}
