package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const userAgent = "phpx/1.0"

// Downloader fetches artifacts over HTTP into the local filesystem.
type Downloader struct {
	client *http.Client
}

// New returns a downloader with a sane request timeout.
func New() *Downloader {
	return &Downloader{client: &http.Client{Timeout: 5 * time.Minute}}
}

// Fetch downloads url into dest. The body streams into a temp file in the
// destination directory and only a fully written file is renamed into place,
// so a failed download never leaves a truncated artifact at dest.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	log.Debug().Str("url", url).Str("dest", dest).Msg("downloading artifact")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp download file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("mark download executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp download file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move download into place: %w", err)
	}
	return nil
}
