package downloader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/errs"
	"clipforge/internal/progress"
	"clipforge/internal/util"
)

type fakeYTDLP struct {
	t        *testing.T
	metaJSON string
	stream   string
	failTail []string
}

func (f *fakeYTDLP) Run(ctx context.Context, spec util.CmdSpec) (util.CmdResult, error) {
	switch {
	case contains(spec.Args, "--dump-json"):
		return util.CmdResult{Stdout: []byte(f.metaJSON)}, nil
	case contains(spec.Args, "-g"):
		return util.CmdResult{Stdout: []byte(f.stream + "\n")}, nil
	}
	if f.failTail != nil {
		return util.CmdResult{Code: 1, Tail: f.failTail}, assert.AnError
	}
	require.NotEmpty(f.t, spec.Dir)
	require.NoError(f.t, os.WriteFile(filepath.Join(spec.Dir, "vid42.mp4"), []byte("video"), 0o644))
	if spec.StdoutLine != nil {
		spec.StdoutLine("[download] Destination: vid42.mp4")
		spec.StdoutLine("[download]  50.0% of 10.00MiB at  1.00MiB/s ETA 00:05")
		spec.StdoutLine("[download] 100.0% of 10.00MiB at  1.00MiB/s ETA 00:00")
	}
	return util.CmdResult{}, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

const meta = `{"id":"vid42","title":"A Title","uploader":"someone","duration":93.5,"width":1280,"height":720,"thumbnail":"THUMB"}`

func TestDownload(t *testing.T) {
	runner := &fakeYTDLP{t: t, metaJSON: meta}
	c := New(Options{DownloaderPath: "yt-dlp", Runner: runner})
	dir := t.TempDir()

	var got []float64
	dv, err := c.Download(context.Background(), "https://youtu.be/vid42", dir, func(u progress.Update) {
		got = append(got, u.StagePercent)
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "vid42.mp4"), dv.InputPath)
	assert.Equal(t, "A Title", dv.Title)
	assert.Equal(t, 93.5, dv.DurationSec)
	assert.Equal(t, 1280, dv.Width)
	assert.Equal(t, []float64{50, 100}, got)
}

func TestDownloadFailureIsCollaboratorError(t *testing.T) {
	runner := &fakeYTDLP{t: t, metaJSON: meta, failTail: []string{"ERROR: [youtube] vid42: Video unavailable", ""}}
	c := New(Options{DownloaderPath: "yt-dlp", Runner: runner})

	_, err := c.Download(context.Background(), "https://youtu.be/vid42", t.TempDir(), nil)
	require.Error(t, err)
	assert.Equal(t, errs.KindCollaborator, errs.KindOf(err))
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestParseInfoMultipleObjects(t *testing.T) {
	info, err := parseInfo([]byte("WARNING: something\n" + `{"id":"a"}` + "\n" + `{"id":"b","title":"B"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", info.ID)

	_, err = parseInfo([]byte("garbage"))
	assert.Error(t, err)
	_, err = parseInfo([]byte(`{"title":"no id"}`))
	assert.Error(t, err)
}

func TestResolveStream(t *testing.T) {
	runner := &fakeYTDLP{t: t, stream: "https://cdn.example.com/v.mp4?sig=1"}
	c := New(Options{DownloaderPath: "yt-dlp", Runner: runner})
	u, err := c.ResolveStream(context.Background(), "https://youtu.be/vid42")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v.mp4?sig=1", u)

	runner.stream = "not a url"
	_, err = c.ResolveStream(context.Background(), "https://youtu.be/vid42")
	assert.Equal(t, errs.KindCollaborator, errs.KindOf(err))
}

func TestThumbnailConvertsWebP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, img, &webp.Options{Lossless: true}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	runner := &fakeYTDLP{t: t, metaJSON: `{"id":"vid42","thumbnail":"` + srv.URL + `/t.webp"}`}
	c := New(Options{DownloaderPath: "yt-dlp", Runner: runner, HTTPClient: srv.Client()})

	dst := filepath.Join(t.TempDir(), "thumbs", "vid42.jpg")
	path, err := c.Thumbnail(context.Background(), "https://youtu.be/vid42", dst)
	require.NoError(t, err)
	assert.Equal(t, dst, path)

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), decoded.Bounds())
}

func TestThumbnailHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	runner := &fakeYTDLP{t: t, metaJSON: `{"id":"vid42","thumbnail":"` + srv.URL + `/t.jpg"}`}
	c := New(Options{DownloaderPath: "yt-dlp", Runner: runner, HTTPClient: srv.Client()})

	_, err := c.Thumbnail(context.Background(), "https://youtu.be/vid42", filepath.Join(t.TempDir(), "t.jpg"))
	require.Error(t, err)
	assert.Equal(t, errs.KindCollaborator, errs.KindOf(err))
}
