// Package output collects file URLs from prediction output and downloads
// them.
package output

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentDownloads = 4

// URLs walks output in order and returns every http(s) URL it contains.
// Output is whatever the model returned: a string, a list, or an object.
func URLs(output any) []string {
	var urls []string
	var walk func(v any)
	walk = func(v any) {
		switch x := v.(type) {
		case string:
			if strings.HasPrefix(x, "http://") || strings.HasPrefix(x, "https://") {
				urls = append(urls, x)
			}
		case []string:
			for _, s := range x {
				walk(s)
			}
		case []any:
			for _, e := range x {
				walk(e)
			}
		case map[string]any:
			for _, k := range sortedKeys(x) {
				walk(x[k])
			}
		}
	}
	walk(output)
	return urls
}

// Downloader fetches output files into a directory.
type Downloader struct {
	client *http.Client
	logger *zap.Logger
}

func NewDownloader(client *http.Client, logger *zap.Logger) *Downloader {
	return &Downloader{
		client: client,
		logger: logger.Named("output"),
	}
}

// Download fetches every URL into dir and returns the written paths in
// the same order as urls.
func (d *Downloader) Download(ctx context.Context, urls []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	names := fileNames(urls)
	paths := make([]string, len(urls))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentDownloads)
	for i, u := range urls {
		p := filepath.Join(dir, names[i])
		paths[i] = p
		eg.Go(func() error {
			return d.fetch(egCtx, u, p)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (d *Downloader) fetch(ctx context.Context, u, p string) error {
	log := d.logger.Sugar()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: status %d", u, resp.StatusCode)
	}

	f, err := os.Create(p) //nolint:gosec // path built from output dir
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	log.Infow("downloaded output", "url", u, "path", p, "bytes", n)
	return nil
}

// fileNames derives a local name from each URL path, prefixing an index
// when two URLs share a base name.
func fileNames(urls []string) []string {
	names := make([]string, len(urls))
	seen := make(map[string]int)
	for i, u := range urls {
		name := "output"
		if parsed, err := url.Parse(u); err == nil {
			if base := path.Base(parsed.Path); base != "/" && base != "." && base != "" {
				name = base
			}
		}
		names[i] = name
		seen[name]++
	}
	for i, name := range names {
		if seen[name] > 1 {
			names[i] = fmt.Sprintf("%d-%s", i, name)
		}
	}
	return names
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
