package output

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output any
		want   []string
	}{
		{"nil", nil, nil},
		{"plain text", "a cat on a mat", nil},
		{"single url", "https://example.com/out.png", []string{"https://example.com/out.png"}},
		{
			"list",
			[]any{"https://example.com/0.png", 42.0, "https://example.com/1.png"},
			[]string{"https://example.com/0.png", "https://example.com/1.png"},
		},
		{
			"object sorted by key",
			map[string]any{
				"mask":  "https://example.com/mask.png",
				"image": "https://example.com/image.png",
				"score": 0.9,
			},
			[]string{"https://example.com/image.png", "https://example.com/mask.png"},
		},
		{
			"nested",
			map[string]any{"frames": []any{"http://example.com/f0.jpg", map[string]any{"u": "http://example.com/f1.jpg"}}},
			[]string{"http://example.com/f0.jpg", "http://example.com/f1.jpg"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, URLs(tt.output))
		})
	}
}

func TestFileNames(t *testing.T) {
	t.Parallel()

	got := fileNames([]string{
		"https://example.com/a/out-0.png",
		"https://example.com/b/out-0.png",
		"https://example.com/c/mask.png",
		"https://example.com/",
	})
	assert.Equal(t, []string{"0-out-0.png", "1-out-0.png", "mask.png", "output"}, got)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files/{name}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content of " + r.PathValue("name")))
	})
	mux.HandleFunc("GET /missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)

	d := NewDownloader(s.Client(), zaptest.NewLogger(t))

	t.Run("writes files in order", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		urls := []string{s.URL + "/files/a.txt", s.URL + "/files/b.txt"}

		paths, err := d.Download(context.Background(), urls, dir)
		require.NoError(t, err)
		require.Len(t, paths, 2)
		assert.Equal(t, filepath.Join(dir, "a.txt"), paths[0])

		bs, err := os.ReadFile(paths[1])
		require.NoError(t, err)
		assert.Equal(t, "content of b.txt", string(bs))
	})

	t.Run("fails on non-200", func(t *testing.T) {
		t.Parallel()
		_, err := d.Download(context.Background(), []string{s.URL + "/missing"}, t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})
}
