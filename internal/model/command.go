package model

import "strconv"

// InputRole tells why an input was declared.
type InputRole string

const (
	RolePrimary InputRole = "primary"
	RoleMusic   InputRole = "music"
	RoleOverlay InputRole = "overlay"
)

// Input is one "-i" declaration with the options that precede it.
type Input struct {
	Path    string
	Role    InputRole
	PreArgs []string // e.g. -ss/-to for the primary input
}

// CommandDescriptor is a fully resolved transcoder invocation. It is built
// once per transcode attempt and not modified afterwards; Args always
// returns a fresh slice.
type CommandDescriptor struct {
	Binary string
	Inputs []Input // Inputs[0] is the primary input

	VideoStages []string // compiled video chain, in order
	AudioStages []string // compiled audio chain, in order
	OverlayRefs []string // overlay stages, applied after VideoStages

	FilterComplex string
	Maps          []string
	NoAudio       bool

	DurationCap int // seconds, always > 0
	FPS         int // 0 = keep source rate
	CodecArgs   []string
	Container   string
	Output      string
}

// Primary returns the primary input.
func (d CommandDescriptor) Primary() Input {
	if len(d.Inputs) == 0 {
		return Input{}
	}
	return d.Inputs[0]
}

// Args renders the ordered argument list. The output path is always last.
func (d CommandDescriptor) Args() []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	for _, in := range d.Inputs {
		args = append(args, in.PreArgs...)
		args = append(args, "-i", in.Path)
	}
	if d.FilterComplex != "" {
		args = append(args, "-filter_complex", d.FilterComplex)
	}
	for _, m := range d.Maps {
		args = append(args, "-map", m)
	}
	if d.NoAudio {
		args = append(args, "-an")
	}
	if d.DurationCap > 0 {
		args = append(args, "-t", strconv.Itoa(d.DurationCap))
	}
	if d.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(d.FPS))
	}
	args = append(args, d.CodecArgs...)
	if d.Container != "" {
		args = append(args, "-f", d.Container)
	}
	return append(args, d.Output)
}
