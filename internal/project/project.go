// Package project reads and writes export projects: one source, its
// editing parameters and its cues, stored as TOML.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"clipforge/internal/model"
	"clipforge/internal/subtitle"
	"clipforge/internal/util"
)

// Project is the on-disk form of an export.
type Project struct {
	Source   string `toml:"source"`
	Output   string `toml:"output,omitempty"`
	Captions bool   `toml:"captions"`
	Language string `toml:"language,omitempty"`
	// SRT names a subtitle file whose cues are appended after Cues.
	SRT string `toml:"srt,omitempty"`

	Edit model.EditingParameters `toml:"edit"`
	Cues []model.SubtitleCue     `toml:"cue,omitempty"`
}

// New returns a project for source with default editing parameters.
func New(source string) Project {
	return Project{Source: source, Edit: model.DefaultEditingParameters()}
}

// Load decodes the project at path. Missing fields keep their defaults,
// enums are normalized and relative file paths are resolved against the
// project's directory.
func Load(path string) (Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return Project{}, fmt.Errorf("open project: %w", err)
	}
	defer f.Close()

	p := New("")
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Project{}, fmt.Errorf("parse project %s: %w", path, err)
	}

	base := filepath.Dir(path)
	p.Source = resolve(base, p.Source)
	p.Output = resolve(base, p.Output)
	p.SRT = resolve(base, p.SRT)
	p.Edit.BackgroundMusic = resolve(base, p.Edit.BackgroundMusic)
	for i := range p.Edit.OverlayIcons {
		p.Edit.OverlayIcons[i].Path = resolve(base, p.Edit.OverlayIcons[i].Path)
	}
	p.Edit = p.Edit.Normalized()

	if p.SRT != "" {
		sf, err := os.Open(p.SRT)
		if err != nil {
			return Project{}, fmt.Errorf("open subtitles: %w", err)
		}
		defer sf.Close()
		cues, err := subtitle.ParseSRT(sf)
		if err != nil {
			return Project{}, fmt.Errorf("parse subtitles %s: %w", p.SRT, err)
		}
		p.Cues = append(p.Cues, cues...)
	}
	return p, nil
}

// Save writes p to path as TOML.
func Save(path string, p Project) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || util.IsRemote(p) {
		return p
	}
	return filepath.Join(base, p)
}
