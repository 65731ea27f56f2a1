package downloader

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/util"
)

const maxThumbnailBytes = 16 << 20

// Thumbnail downloads the video's thumbnail to dst as JPEG. WebP and PNG
// thumbnails are converted; JPEG bytes are written unchanged.
func (c *Client) Thumbnail(ctx context.Context, url, dst string) (string, error) {
	const stage = model.StageDownloading
	info, err := c.fetchMetadata(ctx, url)
	if err != nil {
		return "", err
	}
	if info.Thumbnail == "" {
		return "", errs.Collaborator(stage, "video has no thumbnail", nil)
	}

	data, contentType, err := c.fetch(ctx, info.Thumbnail)
	if err != nil {
		if ctx.Err() != nil {
			return "", errs.Cancelled(stage, ctx.Err())
		}
		return "", errs.Collaborator(stage, "thumbnail download failed", err)
	}

	if err := util.EnsureDir(filepath.Dir(dst)); err != nil {
		return "", errs.Validation(stage, "cannot create %s: %v", filepath.Dir(dst), err)
	}
	if err := writeJPEG(dst, data, contentType); err != nil {
		_ = util.RemoveIfExists(dst)
		return "", errs.Collaborator(stage, "thumbnail conversion failed", err)
	}
	c.logger.Debug("thumbnail saved", "path", dst, "bytes", len(data))
	return dst, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func writeJPEG(dst string, data []byte, contentType string) error {
	if isJPEG(data) {
		return os.WriteFile(dst, data, 0o644)
	}
	var (
		img image.Image
		err error
	)
	if isWebP(data) || strings.Contains(contentType, "webp") {
		img, err = webp.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return err
	}
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isJPEG(b []byte) bool {
	return len(b) > 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF
}

func isWebP(b []byte) bool {
	return len(b) > 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP"
}
