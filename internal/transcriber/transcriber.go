// Package transcriber produces caption cues from speech with whisper.cpp.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"clipforge/internal/errs"
	"clipforge/internal/model"
	"clipforge/internal/subtitle"
	"clipforge/internal/util"
)

// Share of stage-local progress spent extracting audio.
const extractShare = 20.0

var progressRe = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

// Options controls the transcriber.
type Options struct {
	FFmpegPath  string
	WhisperPath string
	// ModelPath is a ggml model file, or a directory holding .bin/.gguf models.
	ModelPath string
	Threads   int
	Verbose   bool
	Runner    util.CmdRunner
	Logger    hclog.Logger
}

// Request is one transcription.
type Request struct {
	Input    string // local path or stream URL
	Workdir  string // scratch dir for the intermediate wav and json
	Language string // hint such as "English", "en" or "auto"
	// MaxSeconds bounds how much audio is transcribed. Zero means all of it.
	MaxSeconds float64
}

// Client runs ffmpeg and whisper.cpp.
type Client struct {
	opts   Options
	runner util.CmdRunner
	logger hclog.Logger
}

// New returns a Client. Nil runner and logger get defaults.
func New(opts Options) *Client {
	c := &Client{opts: opts, runner: opts.Runner, logger: opts.Logger}
	if c.logger == nil {
		c.logger = hclog.NewNullLogger()
	}
	if c.runner == nil {
		c.runner = util.NewDefaultRunner(util.WithRunnerLogger(c.logger))
	}
	return c
}

// Transcribe extracts mono 16 kHz audio, runs whisper.cpp over it and
// returns cleaned cues in time order. onProgress, when set, receives
// stage-local percentages. The intermediate files are removed on every
// exit path.
func (c *Client) Transcribe(ctx context.Context, req Request, onProgress func(float64)) ([]model.SubtitleCue, error) {
	const stage = model.StageTranscribing
	if strings.TrimSpace(req.Input) == "" {
		return nil, errs.Validation(stage, "input media path is required")
	}
	if c.opts.FFmpegPath == "" || c.opts.WhisperPath == "" {
		return nil, errs.Validation(stage, "ffmpeg and whisper paths are required")
	}
	modelPath, err := resolveModelPath(c.opts.ModelPath)
	if err != nil {
		return nil, errs.Validation(stage, "%v", err)
	}
	lang, ok := NormalizeLanguage(req.Language)
	if !ok {
		c.logger.Warn("unrecognised language hint, auto-detecting", "hint", req.Language)
	}
	if err := util.EnsureDir(req.Workdir); err != nil {
		return nil, errs.Validation(stage, "create scratch dir: %v", err)
	}

	base := filepath.Join(req.Workdir, "transcript")
	wav := base + ".wav"
	jsonPath := base + ".json"
	defer func() {
		_ = util.RemoveIfExists(wav)
		_ = util.RemoveIfExists(jsonPath)
	}()

	report := func(p float64) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	c.logger.Info("extracting audio", "input", req.Input)
	res, runErr := c.runner.Run(ctx, util.CmdSpec{
		Path:    c.opts.FFmpegPath,
		Args:    extractArgs(req.Input, wav, req.MaxSeconds),
		Verbose: c.opts.Verbose,
	})
	if runErr != nil {
		return nil, collaboratorErr(ctx, stage, "audio extraction failed", res, runErr)
	}
	report(extractShare)

	c.logger.Info("transcribing", "model", filepath.Base(modelPath), "language", DisplayName(lang))
	res, runErr = c.runner.Run(ctx, util.CmdSpec{
		Path:    c.opts.WhisperPath,
		Args:    whisperArgs(modelPath, wav, base, lang, c.opts.Threads),
		Verbose: c.opts.Verbose,
		StderrLine: func(line string) {
			if pct, ok := parseWhisperProgress(line); ok {
				report(extractShare + pct*(100-extractShare)/100)
			}
		},
	})
	if runErr != nil {
		return nil, collaboratorErr(ctx, stage, "whisper.cpp transcription failed", res, runErr)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, errs.Collaborator(stage, "whisper.cpp completed but transcript is missing", err)
	}
	cues, err := parseTranscript(data)
	if err != nil {
		return nil, errs.Collaborator(stage, "parse transcript", err)
	}
	report(100)
	c.logger.Info("transcribed", "cues", len(cues))
	return cues, nil
}

func extractArgs(input, out string, maxSeconds float64) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", input}
	if maxSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(maxSeconds, 'f', 3, 64))
	}
	return append(args,
		"-vn", "-sn", "-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		out,
	)
}

func whisperArgs(modelPath, wav, outBase, lang string, threads int) []string {
	args := []string{
		"-m", modelPath,
		"-f", wav,
		"-of", outBase,
		"-oj",
		"-pp",
	}
	if lang != "" {
		args = append(args, "-l", lang)
	}
	if threads > 0 {
		args = append(args, "-t", strconv.Itoa(threads))
	}
	return args
}

func parseWhisperProgress(line string) (float64, bool) {
	m := progressRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return float64(v), true
}

type whisperJSON struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseTranscript converts whisper.cpp JSON (offsets in milliseconds) into
// cleaned cues sorted by start.
func parseTranscript(data []byte) ([]model.SubtitleCue, error) {
	var doc whisperJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	cues := make([]model.SubtitleCue, 0, len(doc.Transcription))
	for _, seg := range doc.Transcription {
		cues = append(cues, model.SubtitleCue{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  seg.Text,
		})
	}
	cues = subtitle.Clean(cues)
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues, nil
}

// resolveModelPath accepts a model file or a directory and returns the
// first .bin or .gguf model in it.
func resolveModelPath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", fmt.Errorf("whisper model path is required")
	}
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("cannot access whisper model: %s", p)
	}
	if !fi.IsDir() {
		return p, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", p)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".bin", ".gguf":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", p)
	}
	sort.Strings(names)
	return filepath.Join(p, names[0]), nil
}

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
