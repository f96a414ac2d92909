package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// composerPharURL is the well-known bootstrap artifact for composer itself.
// Installing any library package depends on composer being available, so the
// resolver short-circuits it ahead of every remote stage.
const composerPharURL = "https://getcomposer.org/download/latest-stable/composer.phar"

const userAgent = "phpx/1.0"

// stage is one resolution strategy. A stage failing for any reason falls
// through to the next; only exhausting every stage yields ErrToolNotFound.
type stage func(ctx context.Context, id ToolIdentifier) (ResolvedTool, error)

// Resolver resolves tool identifiers against Packagist, GitHub releases, and
// conventional direct download URLs, in that order. The base URLs are
// overridable for tests.
type Resolver struct {
	PackagistBase string
	GitHubAPIBase string
	GitHubBase    string

	client *http.Client
	stages []stage
}

// New returns a resolver with the production endpoints.
func New() *Resolver {
	r := &Resolver{
		PackagistBase: "https://packagist.org",
		GitHubAPIBase: "https://api.github.com",
		GitHubBase:    "https://github.com",
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	r.stages = []stage{
		r.resolveFromPackagist,
		r.resolveFromGitHub,
		r.resolveFromDirectURL,
	}
	return r
}

// Resolve walks the stage list and returns the first successful resolution.
func (r *Resolver) Resolve(ctx context.Context, id ToolIdentifier) (ResolvedTool, error) {
	if id.Name == "composer" {
		return Phar{Tool: ToolInfo{
			Name:        "composer",
			Version:     "stable",
			DownloadURL: composerPharURL,
		}}, nil
	}

	var versionErr error
	for _, s := range r.stages {
		resolved, err := s(ctx, id)
		if err == nil {
			return resolved, nil
		}
		if errors.Is(err, ErrNoMatchingVersion) {
			versionErr = err
		}
		log.Debug().Str("tool", id.Name).Err(err).Msg("resolution stage failed")
	}

	if versionErr != nil {
		return nil, versionErr
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, id.Name)
}

func (r *Resolver) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
