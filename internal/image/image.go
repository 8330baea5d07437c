// Package image finds lead images in feed markup, downloads them under a size
// cap and clears the download folder between runs.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the largest image the channel accepts for photo posts.
const DefaultMaxBytes int64 = 10 << 20

var (
	ErrNotImage = errors.New("resource is not an image")
	ErrTooLarge = errors.New("image exceeds size limit")
)

// ExtractURL returns the src of the first img element in an HTML fragment,
// or an empty string when there is none.
func ExtractURL(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}

type Downloader struct {
	client    *http.Client
	dir       string
	maxBytes  int64
	userAgent string
}

func NewDownloader(dir string, maxBytes int64, timeout time.Duration, userAgent string) *Downloader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Downloader{
		client:    &http.Client{Timeout: timeout},
		dir:       dir,
		maxBytes:  maxBytes,
		userAgent: userAgent,
	}
}

// Download streams rawURL into the download folder and returns the local path.
// A body larger than the cap is abandoned part way and the partial file removed.
func (d *Downloader) Download(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	if resp.ContentLength > d.maxBytes {
		return "", fmt.Errorf("%w: declared %s", ErrTooLarge, humanize.IBytes(uint64(resp.ContentLength)))
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	path := filepath.Join(d.dir, uuid.NewString()+extension(contentType))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(resp.Body, d.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > d.maxBytes {
		err = fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(uint64(d.maxBytes)))
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	slog.Debug("image downloaded", "url", rawURL, "size", humanize.IBytes(uint64(n)))
	return path, nil
}

func extension(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".img"
	}
	switch mediaType {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".img"
	}
}

// Cleanup deletes the regular files in dir and leaves the folder itself.
// A missing folder is not an error.
func Cleanup(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read image dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
