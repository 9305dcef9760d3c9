package bingart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Downloader saves generated media from the CDN to disk. The CDN does not
// check the browser fingerprint, so a plain resty client is enough.
type Downloader struct {
	client *resty.Client
	logger Logger
}

// NewDownloader returns a Downloader with sane timeouts and retries.
func NewDownloader(logger Logger) *Downloader {
	if logger == nil {
		logger = noopLogger{}
	}
	client := resty.New().
		SetTimeout(60*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetHeader("User-Agent", chrome143UserAgent)
	return &Downloader{client: client, logger: logger}
}

// Save writes every file of res into dir and returns the paths in result order.
func (d *Downloader) Save(ctx context.Context, res *Result, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var urls []string
	ext := ".jpg"
	if res.Video != nil {
		urls = append(urls, res.Video.VideoURL)
		ext = ".mp4"
	}
	for _, img := range res.Images {
		urls = append(urls, img.URL)
	}

	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		path := filepath.Join(dir, uuid.NewString()+ext)
		if err := d.fetch(ctx, u, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (d *Downloader) fetch(ctx context.Context, mediaURL, path string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetOutput(path).
		Get(mediaURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", mediaURL, err)
	}
	if resp.IsError() {
		os.Remove(path)
		return fmt.Errorf("failed to download %s: status %d", mediaURL, resp.StatusCode())
	}
	d.logger.Log("Saved %s (%d bytes)", path, resp.Size())
	return nil
}
