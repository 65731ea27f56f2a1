// Package downloader fetches remote videos, stream URLs and thumbnails
// through yt-dlp.
package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/progress"
	"clipforge/internal/util"
)

const (
	// mp4 first so the transcoder rarely has to deal with odd containers.
	formatSelector = "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b"
	streamSelector = "b[ext=mp4]/b"
)

// Options controls downloader behavior.
type Options struct {
	DownloaderPath string // Path to yt-dlp or youtube-dl
	Verbose        bool
	Runner         util.CmdRunner
	HTTPClient     *http.Client
	Logger         hclog.Logger
}

// Client talks to yt-dlp.
type Client struct {
	opts   Options
	runner util.CmdRunner
	http   *http.Client
	logger hclog.Logger
}

// New returns a Client. Nil runner, client and logger get defaults.
func New(opts Options) *Client {
	c := &Client{opts: opts, runner: opts.Runner, http: opts.HTTPClient, logger: opts.Logger}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	if c.runner == nil {
		c.runner = util.NewDefaultRunner(util.WithRunnerLogger(c.logger))
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// Download fetches metadata, then the media itself into workdir. onProgress
// may be nil. Failures are collaborator errors carrying yt-dlp's last line.
func (c *Client) Download(ctx context.Context, url, workdir string, onProgress func(progress.Update)) (model.DownloadedVideo, error) {
	const stage = model.StageDownloading
	if c.opts.DownloaderPath == "" {
		return model.DownloadedVideo{}, errs.Validation(stage, "downloader path is required")
	}

	info, err := c.fetchMetadata(ctx, url)
	if err != nil {
		return model.DownloadedVideo{}, err
	}

	outTemplate := filepath.Join(workdir, "%(id)s.%(ext)s")
	args := []string{
		"-f", formatSelector,
		"--merge-output-format", "mp4",
		"--newline",
		"--no-playlist",
		"-o", outTemplate,
		url,
	}
	res, runErr := c.runner.Run(ctx, util.CmdSpec{
		Path:    c.opts.DownloaderPath,
		Args:    args,
		Dir:     workdir,
		Verbose: c.opts.Verbose,
		StdoutLine: func(line string) {
			if u, ok := ParseProgress(line); ok && onProgress != nil {
				onProgress(u)
			}
		},
	})
	if runErr != nil {
		return model.DownloadedVideo{}, collaboratorErr(ctx, stage, "download failed", res, runErr)
	}

	input, err := SelectDownloadedFile(workdir, info.ID)
	if err != nil {
		return model.DownloadedVideo{}, errs.Collaborator(stage, "download succeeded but no output file found", err)
	}
	dv := info.toModel(url)
	dv.InputPath = input
	return dv, nil
}

// Metadata returns the video's metadata without downloading it.
func (c *Client) Metadata(ctx context.Context, url string) (model.DownloadedVideo, error) {
	info, err := c.fetchMetadata(ctx, url)
	if err != nil {
		return model.DownloadedVideo{}, err
	}
	return info.toModel(url), nil
}

// ResolveStream returns a direct, playable media URL for previews.
func (c *Client) ResolveStream(ctx context.Context, url string) (string, error) {
	const stage = model.StageDownloading
	res, runErr := c.runner.Run(ctx, util.CmdSpec{
		Path:          c.opts.DownloaderPath,
		Args:          []string{"-g", "-f", streamSelector, "--no-playlist", url},
		Verbose:       c.opts.Verbose,
		CaptureStdout: true,
	})
	if runErr != nil {
		return "", collaboratorErr(ctx, stage, "resolve stream failed", res, runErr)
	}
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); util.IsRemote(line) {
			return line, nil
		}
	}
	return "", errs.Collaborator(stage, "no stream URL returned", nil)
}

func (c *Client) fetchMetadata(ctx context.Context, url string) (YTDLPInfo, error) {
	const stage = model.StageDownloading
	args := []string{
		"--dump-json",
		"-f", formatSelector,
		"--no-playlist",
		url,
	}
	res, runErr := c.runner.Run(ctx, util.CmdSpec{
		Path:          c.opts.DownloaderPath,
		Args:          args,
		Verbose:       c.opts.Verbose,
		CaptureStdout: true,
	})
	if runErr != nil && len(res.Stdout) == 0 {
		return YTDLPInfo{}, collaboratorErr(ctx, stage, "metadata fetch failed", res, runErr)
	}

	info, err := parseInfo(res.Stdout)
	if err != nil {
		return YTDLPInfo{}, errs.Collaborator(stage, "parse metadata JSON", err)
	}
	return info, nil
}

// parseInfo decodes yt-dlp JSON. When stdout holds several objects the
// last complete one with an id wins.
func parseInfo(stdout []byte) (YTDLPInfo, error) {
	data := strings.TrimSpace(string(stdout))
	var info YTDLPInfo
	err := json.Unmarshal([]byte(data), &info)
	if err == nil && info.ID != "" {
		return info, nil
	}
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var tmp YTDLPInfo
		if json.Unmarshal([]byte(line), &tmp) == nil && tmp.ID != "" {
			return tmp, nil
		}
	}
	if err == nil {
		err = errors.New("no video id in metadata")
	}
	return YTDLPInfo{}, err
}

func (i YTDLPInfo) toModel(url string) model.DownloadedVideo {
	return model.DownloadedVideo{
		DurationSec:  i.Duration,
		Title:        i.Title,
		Uploader:     i.Uploader,
		ID:           i.ID,
		Width:        i.Width,
		Height:       i.Height,
		ThumbnailURL: i.Thumbnail,
		URL:          url,
	}
}

// collaboratorErr turns a failed yt-dlp run into a cancelled or
// collaborator error whose reason is yt-dlp's last diagnostic line.
func collaboratorErr(ctx context.Context, stage model.Stage, what string, res util.CmdResult, err error) error {
	if res.Canceled || ctx.Err() != nil {
		return errs.Cancelled(stage, context.Canceled)
	}
	reason := what
	for i := len(res.Tail) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(res.Tail[i]); l != "" {
			reason = fmt.Sprintf("%s: %s", what, l)
			break
		}
	}
	return errs.Collaborator(stage, reason, err)
}
