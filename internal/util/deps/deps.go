package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// find resolves customPath (a file or a name in PATH) or the first of
// candidates found in PATH.
func find(customPath, what string, candidates ...string) (string, error) {
	if customPath != "" {
		if fi, err := os.Stat(customPath); err == nil && !fi.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %s at %q", what, customPath)
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("could not find %s in PATH. Please install %s.", candidates[0], what)
}

// FindDownloader returns the path to yt-dlp or youtube-dl.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindDownloader(customPath string) (string, error) {
	return find(customPath, "yt-dlp", "yt-dlp", "youtube-dl")
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg(customPath string) (string, error) {
	return find(customPath, "ffmpeg", "ffmpeg")
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe(customPath string) (string, error) {
	return find(customPath, "ffprobe", "ffprobe")
}

// FindWhisper returns the path to a whisper.cpp command line binary.
func FindWhisper(customPath string) (string, error) {
	return find(customPath, "whisper.cpp", "whisper-cli", "whisper-cpp", "whisper")
}

// Status is one row of a dependency check.
type Status struct {
	Name     string
	Path     string
	Err      error
	Required bool
}

// OK reports whether the dependency was found.
func (s Status) OK() bool { return s.Err == nil }

// Paths carries configured overrides; empty fields mean "search PATH".
type Paths struct {
	FFmpeg       string
	FFprobe      string
	Downloader   string
	Whisper      string
	WhisperModel string
}

// Check resolves every external tool. ffmpeg is the only hard requirement;
// the others enable optional stages.
func Check(p Paths) []Status {
	out := make([]Status, 0, 5)
	add := func(name string, required bool, fn func(string) (string, error), custom string) {
		path, err := fn(custom)
		out = append(out, Status{Name: name, Path: path, Err: err, Required: required})
	}
	add("ffmpeg", true, FindFFmpeg, p.FFmpeg)
	add("ffprobe", false, FindFFprobe, p.FFprobe)
	add("yt-dlp", false, FindDownloader, p.Downloader)
	add("whisper", false, FindWhisper, p.Whisper)

	model := Status{Name: "whisper model", Path: p.WhisperModel}
	switch {
	case p.WhisperModel == "":
		model.Err = fmt.Errorf("no model configured (set whisper_model)")
	default:
		if _, err := os.Stat(p.WhisperModel); err != nil {
			model.Err = err
		}
	}
	out = append(out, model)
	return out
}
