package encoder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/internal/errs"
	"clipforge/internal/model"
)

type fixture struct {
	dir    string
	ffmpeg string
	input  string
	font   string
	music  string
	icon   string
	out    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:    dir,
		ffmpeg: filepath.Join(dir, "bin", "ffmpeg"),
		input:  filepath.Join(dir, "in.mp4"),
		font:   filepath.Join(dir, "fonts", "Arial.ttf"),
		music:  filepath.Join(dir, "music.mp3"),
		icon:   filepath.Join(dir, "logo.png"),
		out:    filepath.Join(dir, "out", "clip.mp4"),
	}
	for _, p := range []string{f.ffmpeg, f.input, f.font, f.music, f.icon} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o755))
	}
	return f
}

func (f fixture) assembler() *Assembler {
	return &Assembler{
		FFmpegPath: f.ffmpeg,
		Fonts:      FontResolver{Dirs: []string{filepath.Join(f.dir, "fonts")}, Fallback: filepath.Join(f.dir, "nope.ttf")},
	}
}

func (f fixture) request() Request {
	return Request{
		Input:  f.input,
		Output: f.out,
		Params: model.DefaultEditingParameters(),
		Encode: model.DefaultEncodeSettings(),
	}
}

func argAfter(args []string, flag string) (string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func TestAssemble(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name            string
		mutate          func(*Request)
		wantCRF         int
		wantBitrate     int
		wantContains    []string
		wantNotContains []string
	}{
		{
			name:            "defaults",
			mutate:          func(*Request) {},
			wantCRF:         23,
			wantContains:    []string{"-filter_complex", "-map [vout] -map [aout]", "-t 60", "-crf 23", "-c:a aac -b:a 128k", "-f mp4"},
			wantNotContains: []string{"-r ", "-ss", "-an", "-vf", "-af", "amix"},
		},
		{
			name:         "duration cap under 30s",
			mutate:       func(r *Request) { r.Params.DurationCap = model.CapUnder30 },
			wantCRF:      23,
			wantContains: []string{"-t 30"},
		},
		{
			name:         "fps only when requested",
			mutate:       func(r *Request) { r.Params.FPS = 30 },
			wantCRF:      23,
			wantContains: []string{"-r 30"},
		},
		{
			name: "trim window goes before the primary input",
			mutate: func(r *Request) {
				r.Params.TrimStart = 5
				r.Params.TrimEnd = 20.5
			},
			wantCRF:      23,
			wantContains: []string{"-ss 5.000 -to 20.500 -i " + f.input},
		},
		{
			name:            "size target switches to bitrate mode",
			mutate:          func(r *Request) { r.Encode.MaxSizeMB = 16 },
			wantBitrate:     2108,
			wantContains:    []string{"-b:v 2108k", "-maxrate 2108k", "-bufsize 4216k"},
			wantNotContains: []string{"-crf"},
		},
		{
			name: "probed source without audio and no music",
			mutate: func(r *Request) {
				r.Source = model.SourceInfo{Probed: true, HasAudio: false}
			},
			wantCRF:         23,
			wantContains:    []string{"-map [vout] -an"},
			wantNotContains: []string{"[aout]", "-c:a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request()
			tt.mutate(&req)
			got, err := f.assembler().Assemble(req)
			require.NoError(t, err)

			if got.UsedCRF != tt.wantCRF {
				t.Errorf("Assemble() CRF = %v, want %v", got.UsedCRF, tt.wantCRF)
			}
			if got.UsedBitrateKbps != tt.wantBitrate {
				t.Errorf("Assemble() bitrate = %v, want %v", got.UsedBitrateKbps, tt.wantBitrate)
			}

			args := got.Command.Args()
			argsStr := strings.Join(args, " ")
			for _, want := range tt.wantContains {
				if !strings.Contains(argsStr, want) {
					t.Errorf("Assemble() args missing %q, got: %v", want, args)
				}
			}
			for _, notWant := range tt.wantNotContains {
				if strings.Contains(argsStr, notWant) {
					t.Errorf("Assemble() args should not contain %q, got: %v", notWant, args)
				}
			}
			if args[len(args)-1] != f.out {
				t.Errorf("Assemble() last arg = %v, want %v", args[len(args)-1], f.out)
			}
			assert.Equal(t, f.ffmpeg, got.Command.Binary)
		})
	}
}

func TestAssembleDurationCeilingFlag(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Params.DurationCap = model.CapUnder30
	got, err := f.assembler().Assemble(req)
	require.NoError(t, err)

	v, ok := argAfter(got.Command.Args(), "-t")
	require.True(t, ok)
	assert.Equal(t, "30", v)
	assert.Equal(t, 30.0, got.Ceiling)
}

func TestAssembleFilterComplex(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Params.ColorFilter = model.ColorBright
	req.Params.BackgroundMusic = f.music
	req.Params.MusicVolume = 0.3
	req.Params.OverlayIcons = []model.OverlayIcon{
		model.StackedIcon(f.icon, 0),
		model.StackedIcon(filepath.Join(f.dir, "missing.png"), 1),
		model.StackedIcon(f.icon, 2),
	}
	req.Cues = []model.SubtitleCue{{Start: 0, End: 2.5, Text: "Hello"}}

	got, err := f.assembler().Assemble(req)
	require.NoError(t, err)
	cmd := got.Command

	require.Len(t, cmd.Inputs, 4)
	assert.Equal(t, model.RolePrimary, cmd.Inputs[0].Role)
	assert.Equal(t, model.RoleOverlay, cmd.Inputs[1].Role)
	assert.Equal(t, model.RoleOverlay, cmd.Inputs[2].Role)
	assert.Equal(t, model.RoleMusic, cmd.Inputs[3].Role)
	assert.Len(t, got.Graph.Warnings, 1)
	assert.Equal(t, f.font, got.FontFile)

	chains := strings.Split(cmd.FilterComplex, ";")
	require.Len(t, chains, 8)
	assert.True(t, strings.HasPrefix(chains[0], "[0:v]scale=1920:1080:"))
	assert.Contains(t, chains[0], ",eq=brightness=0.1,drawtext=fontfile=")
	assert.True(t, strings.HasSuffix(chains[0], "[v0]"))
	assert.Equal(t, "[1:v]scale=50:-1[ic0]", chains[1])
	assert.Equal(t, "[v0][ic0]overlay=x=10:y=10:enable='between(t,0.0,60.0)'[v1]", chains[2])
	assert.Equal(t, "[2:v]scale=50:-1[ic1]", chains[3])
	assert.Equal(t, "[v1][ic1]overlay=x=10:y=130:enable='between(t,0.0,60.0)'[vout]", chains[4])
	assert.Equal(t, "[0:a]volume=1[a0]", chains[5])
	assert.Equal(t, "[3:a]volume=0.3[music]", chains[6])
	assert.Equal(t, "[a0][music]amix=inputs=2:duration=first:dropout_transition=2[aout]", chains[7])
	assert.Equal(t, []string{"[vout]", "[aout]"}, cmd.Maps)
}

func TestAssembleMusicOnlyWhenSourceSilent(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Source = model.SourceInfo{Probed: true, HasAudio: false}
	req.Params.BackgroundMusic = f.music
	req.Params.AudioEffect = model.AudioEcho

	got, err := f.assembler().Assemble(req)
	require.NoError(t, err)
	assert.False(t, got.Command.NoAudio)
	assert.True(t, strings.HasSuffix(got.Command.FilterComplex,
		";[1:a]volume=1,volume=1,aecho=0.8:0.9:1000:0.3[aout]"), got.Command.FilterComplex)
}

func TestAssembleIsDeterministic(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Params.CaptionEffect = model.EffectFade
	req.Cues = []model.SubtitleCue{{Start: 0, End: 2.5, Text: "Hello"}, {Start: 2.5, End: 5, Text: "World"}}
	a, err := f.assembler().Assemble(req)
	require.NoError(t, err)
	b, err := f.assembler().Assemble(req)
	require.NoError(t, err)
	assert.Equal(t, a.Command.Args(), b.Command.Args())
}

func TestAssembleValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		mutate  func(*Assembler, *Request)
		wantMsg string
	}{
		{
			name:    "missing binary",
			mutate:  func(a *Assembler, _ *Request) { a.FFmpegPath = filepath.Join(f.dir, "nope") },
			wantMsg: "transcoder binary not found",
		},
		{
			name:    "missing input",
			mutate:  func(_ *Assembler, r *Request) { r.Input = filepath.Join(f.dir, "missing.mp4") },
			wantMsg: "input file not found",
		},
		{
			name:    "output dir is a file",
			mutate:  func(_ *Assembler, r *Request) { r.Output = filepath.Join(f.input, "clip.mp4") },
			wantMsg: "output directory",
		},
		{
			name: "trim end before start",
			mutate: func(_ *Assembler, r *Request) {
				r.Params.TrimStart = 10
				r.Params.TrimEnd = 5
			},
			wantMsg: "trim end",
		},
		{
			name:    "missing music",
			mutate:  func(_ *Assembler, r *Request) { r.Params.BackgroundMusic = filepath.Join(f.dir, "none.mp3") },
			wantMsg: "background music not found",
		},
		{
			name: "font and fallback missing",
			mutate: func(a *Assembler, r *Request) {
				a.Fonts.Dirs = nil
				r.Params.Font = filepath.Join(f.dir, "missing.ttf")
				r.Cues = []model.SubtitleCue{{Start: 0, End: 1, Text: "hi"}}
			},
			wantMsg: "fallback font is missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := f.assembler()
			req := f.request()
			tt.mutate(a, &req)
			_, err := a.Assemble(req)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
			assert.Equal(t, model.StageTranscoding, errs.StageOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAssembleRemoteInputSkipsExistenceCheck(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Input = "https://cdn.example.com/v.mp4"
	got, err := f.assembler().Assemble(req)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/v.mp4", got.Command.Primary().Path)
}

func TestFontResolverFallback(t *testing.T) {
	f := newFixture(t)
	fallback := filepath.Join(f.dir, "fonts", "Arial.ttf")
	r := FontResolver{Fallback: fallback}

	path, fellBack, ok := r.Resolve(filepath.Join(f.dir, "missing.ttf"))
	assert.True(t, ok)
	assert.True(t, fellBack)
	assert.Equal(t, fallback, path)

	path, fellBack, ok = FontResolver{Dirs: []string{f.dir}}.Resolve("Arial")
	assert.True(t, ok)
	assert.False(t, fellBack)
	assert.Equal(t, f.font, path)
}
