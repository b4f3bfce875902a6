package crawler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageChecker probes whether a URL serves an actual image. Image hosts are
// inconsistent about HEAD, so a failed HEAD falls back to a ranged GET and a
// magic-byte sniff.
type ImageChecker struct {
	client *http.Client
}

func NewImageChecker() *ImageChecker {
	return &ImageChecker{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// IsReachableImage reports whether the URL serves an image, and the content
// type observed if any.
func (c *ImageChecker) IsReachableImage(ctx context.Context, rawURL string) (bool, string) {
	if rawURL == "" {
		return false, ""
	}

	if req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil); err == nil {
		if resp, err := c.client.Do(req); err == nil {
			contentType := resp.Header.Get("Content-Type")
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && strings.HasPrefix(contentType, "image/") {
				return true, contentType
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, ""
	}
	req.Header.Set("Range", "bytes=0-1023")
	resp, err := c.client.Do(req)
	if err != nil {
		return false, ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return false, ""
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "image/") {
		return true, contentType
	}

	head, _ := io.ReadAll(io.LimitReader(resp.Body, 10))
	if isImageMagic(head) {
		return true, contentType
	}
	return false, contentType
}

func isImageMagic(head []byte) bool {
	return bytes.HasPrefix(head, []byte("\x89PNG")) ||
		bytes.HasPrefix(head, []byte("\xff\xd8\xff")) ||
		bytes.HasPrefix(head, []byte("GIF8")) ||
		bytes.HasPrefix(head, []byte("RIFF"))
}
