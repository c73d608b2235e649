package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "calgrid/internal/log"
)

// cacheMeta holds HTTP cache metadata for a single URL.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher performs GETs with ETag / Last-Modified conditional requests
// and a disk-backed body cache, falling back to the cached body when the
// network fails. Both the upstream API client and the ICS feed source
// fetch through it.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		// Relative fallback so development runs without root permissions.
		cacheDir = "./var/source-cache"
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 15 * time.Second},
		cacheDir: cacheDir,
	}
}

// Get fetches rawURL, honoring cache validators. FromCache in the return
// is true when the body came from disk (304 or network failure).
func (f *Fetcher) Get(ctx context.Context, rawURL string) (body []byte, fromCache bool, err error) {
	if rawURL == "" {
		return nil, false, errors.New("source: empty url")
	}

	cachePath := f.cachePathFor(rawURL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return nil, false, err
	}

	meta, _ := loadMeta(cachePath)
	cached, _ := os.ReadFile(filepath.Join(cachePath, "body"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("fetch network error, using cached body", err, "url", RedactURL(rawURL))
			return cached, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		fresh, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, false, readErr
		}
		newMeta := cacheMeta{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, fresh); err != nil {
			appLog.Error("fetch cache save failed", err, "url", RedactURL(rawURL))
		}
		return fresh, false, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return nil, false, errors.New("source: 304 Not Modified but no cached body")
		}
		return cached, true, nil

	default:
		if len(cached) > 0 {
			appLog.Error("fetch non-OK status, using cached body", errors.New(resp.Status), "url", RedactURL(rawURL), "status", resp.StatusCode)
			return cached, true, nil
		}
		return nil, false, errors.New(resp.Status)
	}
}

func (f *Fetcher) cachePathFor(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(cachePath string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheMeta, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// RedactURL strips path and query from a URL for logging. Feed URLs
// routinely carry access tokens.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
