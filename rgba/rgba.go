// Package rgba is the color arithmetic shared by the theme table and the
// renderers: hex parsing, alpha compositing and the luminance-based
// transforms used by theme filters.
//
// Every function is pure and operates on the Color value type.
package rgba

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrInvalidColorSpec is matched by every error Parse returns.
var ErrInvalidColorSpec = errors.New("invalid color spec")

// SpecError reports a color string that is not #RGB, #RRGGBB or #RRGGBBAA.
type SpecError struct {
	Spec string
}

func (e *SpecError) Error() string {
	return fmt.Sprintf("invalid color spec %q", e.Spec)
}

// Is makes errors.Is(err, ErrInvalidColorSpec) true.
func (e *SpecError) Is(target error) bool {
	return target == ErrInvalidColorSpec
}

// Color is an 8-bit-per-channel RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Common colors.
var (
	Black = Color{0x00, 0x00, 0x00, 0xFF}
	White = Color{0xFF, 0xFF, 0xFF, 0xFF}
)

var colorPattern = regexp.MustCompile(`^#(?:([A-Fa-f\d]{6})([A-Fa-f\d]{2})?|([A-Fa-f\d]{3}))$`)

// Parse reads "#RRGGBB", "#RRGGBBAA" or "#RGB" (each digit doubled).  Alpha
// defaults to 0xFF.
func Parse(spec string) (Color, error) {
	m := colorPattern.FindStringSubmatch(spec)
	if m == nil {
		return Color{}, &SpecError{Spec: spec}
	}
	if m[1] != "" {
		c := Color{R: hexByte(m[1][0:2]), G: hexByte(m[1][2:4]), B: hexByte(m[1][4:6]), A: 0xFF}
		if m[2] != "" {
			c.A = hexByte(m[2])
		}
		return c, nil
	}
	s := m[3]
	return Color{
		R: hexByte(string([]byte{s[0], s[0]})),
		G: hexByte(string([]byte{s[1], s[1]})),
		B: hexByte(string([]byte{s[2], s[2]})),
		A: 0xFF,
	}, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(spec string) Color {
	c, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// hexByte converts two hex digits already validated by colorPattern.
func hexByte(s string) uint8 {
	v, _ := strconv.ParseUint(s, 16, 8)
	return uint8(v)
}

// Opaque reports whether c has full alpha.
func (c Color) Opaque() bool {
	return c.A == 0xFF
}

// Hex returns "#RRGGBB", ignoring alpha.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// HexA returns "#RRGGBBAA".
func (c Color) HexA() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// String returns Hex for opaque colors and HexA otherwise.
func (c Color) String() string {
	if c.Opaque() {
		return c.Hex()
	}
	return c.HexA()
}

// CompositeOver flattens a translucent fg onto bg.  An opaque fg is returned
// unchanged.  The background channel is weighted by the background's own
// alpha as well as (1 - fg alpha):
//
//	out = |fg*fa + bg*ba*(1-fa)| & 0xFF
//
// Existing themes are tuned against this formula; it is not the standard
// "over" operator and must not be replaced by one.
func CompositeOver(fg, bg Color) Color {
	if fg.Opaque() {
		return fg
	}
	fa, ba := float64(fg.A), float64(bg.A)
	mix := func(f, b uint8) uint8 {
		// Scaled by 255 before dividing so exact results stay exact.
		v := math.Abs(float64(f)*fa/255 + float64(b)*ba*(255-fa)/(255*255))
		return uint8(int(v) & 0xFF)
	}
	return Color{
		R: mix(fg.R, bg.R),
		G: mix(fg.G, bg.G),
		B: mix(fg.B, bg.B),
		A: 0xFF,
	}
}

// Rec. 601 luma weights.
var weights = [3]float64{0.299, 0.587, 0.114}

func luma(r, g, b float64) float64 {
	return weights[0]*r + weights[1]*g + weights[2]*b
}

// Luminance is round(0.299r + 0.587g + 0.114b), within [0,255].
func Luminance(c Color) int {
	return clampInt(int(math.Round(luma(float64(c.R), float64(c.G), float64(c.B)))))
}

// Brightness shifts c's luminance by delta.  All three channels move by a
// common amount; a channel that would leave [0,255] is clipped and the
// luminance it could not absorb is spread as a common shift over the
// channels that have not clipped yet.  Each pass resolves at least one
// channel, so three passes always suffice.  A target luminance at or below 0
// yields black, at or above 255 white.
func Brightness(c Color, delta float64) Color {
	ch := [3]float64{float64(c.R), float64(c.G), float64(c.B)}
	target := luma(ch[0], ch[1], ch[2]) + delta
	switch {
	case target <= 0:
		return Color{0, 0, 0, c.A}
	case target >= 255:
		return Color{0xFF, 0xFF, 0xFF, c.A}
	}

	for i := range ch {
		ch[i] += delta
	}
	var clipped [3]bool
	for pass := 0; pass < 3; pass++ {
		lost := 0.0
		any := false
		for i := range ch {
			if clipped[i] {
				continue
			}
			switch {
			case ch[i] > 255:
				lost += weights[i] * (ch[i] - 255)
				ch[i] = 255
			case ch[i] < 0:
				lost += weights[i] * ch[i]
				ch[i] = 0
			default:
				continue
			}
			clipped[i] = true
			any = true
		}
		if !any {
			break
		}
		free := 0.0
		for i := range ch {
			if !clipped[i] {
				free += weights[i]
			}
		}
		if free == 0 {
			break
		}
		share := lost / free
		for i := range ch {
			if !clipped[i] {
				ch[i] += share
			}
		}
	}
	return Color{
		R: clampChannel(ch[0]),
		G: clampChannel(ch[1]),
		B: clampChannel(ch[2]),
		A: c.A,
	}
}

// Saturation scales each channel's distance from the luminance by factor.
func Saturation(c Color, factor float64) Color {
	l := float64(Luminance(c))
	adj := func(v uint8) uint8 {
		return clampChannel(l + (float64(v)-l)*factor)
	}
	return Color{R: adj(c.R), G: adj(c.G), B: adj(c.B), A: c.A}
}

// Grayscale sets every channel to the luminance.
func Grayscale(c Color) Color {
	l := uint8(Luminance(c))
	return Color{R: l, G: l, B: l, A: c.A}
}

// Sepia applies the standard sepia tone matrix.
func Sepia(c Color) Color {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	return Color{
		R: clampChannel(0.393*r + 0.769*g + 0.189*b),
		G: clampChannel(0.349*r + 0.686*g + 0.168*b),
		B: clampChannel(0.272*r + 0.534*g + 0.131*b),
		A: c.A,
	}
}

// Invert flips the color channels; alpha is kept.
func Invert(c Color) Color {
	return Color{R: c.R ^ 0xFF, G: c.G ^ 0xFF, B: c.B ^ 0xFF, A: c.A}
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clampChannel(v float64) uint8 {
	return uint8(clampInt(int(math.Round(v))))
}
