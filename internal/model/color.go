package model

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is a caption text colour. The chosen value is stored as-is and never
// recovered from presentation strings.
type RGB struct {
	R, G, B uint8
}

var (
	White  = RGB{255, 255, 255}
	Black  = RGB{0, 0, 0}
	Yellow = RGB{255, 255, 0}
	Red    = RGB{255, 0, 0}
)

var namedColors = map[string]RGB{
	"white":  White,
	"black":  Black,
	"yellow": Yellow,
	"red":    Red,
}

// ParseRGB accepts "#rrggbb", "rrggbb", "0xrrggbb" or a few colour names.
func ParseRGB(s string) (RGB, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	v = strings.TrimPrefix(strings.TrimPrefix(v, "#"), "0x")
	if len(v) != 6 {
		return RGB{}, fmt.Errorf("invalid colour %q", s)
	}
	n, err := strconv.ParseUint(v, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid colour %q", s)
	}
	return RGB{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

// Hex renders the colour as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Engine renders the colour in the transcoder's "0xRRGGBB" notation.
func (c RGB) Engine() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) String() string { return c.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *RGB) UnmarshalText(b []byte) error {
	v, err := ParseRGB(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
