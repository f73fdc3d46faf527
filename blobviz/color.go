// Package blobviz renders debug images of compiled BlobTrees, such as horizontal
// slices of a terrain colored by distance or material.
package blobviz

import (
	"image/color"

	math "github.com/chewxy/math32"
	"github.com/soypat/blobsdf"
	"github.com/soypat/glgl/math/ms1"
)

// A great portion of logic in this file taken from Esme Lamb's (@dedelala)
// excellent color manipulation work presented at Gophercon AU 2024.
// https://github.com/dedelala/disco/tree/main/color

var red = color.RGBA{R: 255, A: 255}

// ColorConversionInigoQuilez creates a new color conversion using [Inigo Quilez]'s style.
// A good value for characteristic distance is the slice diagonal divided by 3. Returns red for NaN values.
//
// [Inigo Quilez]: https://iquilezles.org/articles/distfunctions2d/
func ColorConversionInigoQuilez(characteristicDistance float32) func(d float32, m blobsdf.Material) color.Color {
	inv := 1. / characteristicDistance
	return func(d float32, _ blobsdf.Material) color.Color {
		if math.IsNaN(d) {
			return red
		}
		d *= inv
		var r, g, b float32
		if d > 0 {
			r, g, b = 0.9, 0.6, 0.3
		} else {
			r, g, b = 0.65, 0.85, 1.0
		}
		k := (1 - math.Exp(-6*math.Abs(d))) * (0.8 + 0.2*math.Cos(150*d))
		edge := 1 - ms1.SmoothStep(0, 0.01, math.Abs(d))
		r = ms1.Interp(k*r, 1, edge)
		g = ms1.Interp(k*g, 1, edge)
		b = ms1.Interp(k*b, 1, edge)
		return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
	}
}

// ColorConversionLinearGradient creates a color conversion function that creates a gradient centered
// along d=0 that extends gradientLength.
func ColorConversionLinearGradient(gradientLength float32, c0, c1 color.Color) func(d float32, m blobsdf.Material) color.Color {
	if c0 == color.Black && c1 == color.White {
		return blackAndWhiteLinearSmooth(gradientLength)
	}
	h0, s0, v0 := colorToHSV(c0)
	h1, s1, v1 := colorToHSV(c1)
	return func(d float32, _ blobsdf.Material) color.Color {
		blend := d/gradientLength + 0.5
		if blend <= 0 {
			return c0
		} else if blend >= 1 {
			return c1
		}
		h, s, v := interpHSV(h0, s0, v0, h1, s1, v1, blend)
		r, g, b := hsvToRGB(h, s, v)
		c := rgbToC(r, g, b)
		return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
	}
}

// ColorConversionMaterial colors solid points by their material using palette and
// darkens them with depth below the surface. Empty space and materials absent
// from palette are drawn with background.
func ColorConversionMaterial(palette map[blobsdf.Material]color.Color, background color.Color, depth float32) func(d float32, m blobsdf.Material) color.Color {
	bg := colorToC(background)
	return func(d float32, m blobsdf.Material) color.Color {
		c, ok := palette[m]
		if d > 0 || m == blobsdf.MaterialEmpty || !ok {
			return background
		}
		t := ms1.Clamp(-d/depth, 0, 1)
		mixed := cInterp(colorToC(c), bg, 0.5*t)
		return color.RGBA{R: uint8(mixed >> 16), G: uint8(mixed >> 8), B: uint8(mixed), A: 255}
	}
}

func blackAndWhiteLinearSmooth(edgeSmooth float32) func(d float32, m blobsdf.Material) color.Color {
	if edgeSmooth == 0 {
		return blackAndWhiteNoSmoothing
	}
	return func(d float32, _ blobsdf.Material) color.Color {
		blend := d/edgeSmooth + 0.5
		if blend <= 0 {
			return color.Black
		} else if blend >= 1 {
			return color.White
		}
		blend = ms1.Clamp(blend, 0, 1)
		return color.Gray{Y: uint8(blend * 255)}
	}
}

func blackAndWhiteNoSmoothing(d float32, _ blobsdf.Material) color.Color {
	if d <= 0 {
		return color.Black
	}
	return color.White
}

func cInterp(c0, c1 uint32, t float32) uint32 {
	h0, s0, v0 := rgbToHSV(cToRGB(c0))
	h1, s1, v1 := rgbToHSV(cToRGB(c1))
	return rgbToC(hsvToRGB(interpHSV(h0, s0, v0, h1, s1, v1, t)))
}

func interpHSV(h0, s0, v0, h1, s1, v1, t float32) (h, s, v float32) {
	switch {
	case h1-h0 > 0.5:
		h0 += 1.0
	case h1-h0 < -0.5:
		h1 += 1.0
	}
	h = ms1.Interp(h0, h1, t)
	if h >= 1 {
		h -= 1
	}
	s = ms1.Interp(s0, s1, t)
	v = ms1.Interp(v0, v1, t)
	return h, s, v
}

func colorToHSV(c color.Color) (h, s, v float32) {
	return rgbToHSV(cToRGB(colorToC(c)))
}

func colorToC(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r>>8)<<16 | (g>>8)<<8 | b>>8
}

// cToRGB converts a 24 bit RGB value stored in the least significant bits
func cToRGB(c uint32) (r, g, b float32) {
	r = float32(uint8(c>>16)) / math.MaxUint8
	g = float32(uint8(c>>8)) / math.MaxUint8
	b = float32(uint8(c)) / math.MaxUint8
	return r, g, b
}

// rgbToC converts r, g, and b values on the range of 0.0 to 1.0 to a
// 24 bit RGB value stored in the least significant bits of a uint32. The inputs
// are clamped to the range of 0.0 to 1.0
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(ms1.Clamp(r, 0, 1)*math.MaxUint8)<<16 |
		uint32(ms1.Clamp(g, 0, 1)*math.MaxUint8)<<8 |
		uint32(ms1.Clamp(b, 0, 1)*math.MaxUint8)
}

// hsvToRGB converts hue, saturation and brightness values on the range of 0.0
// to 1.0 to RGB floating point values on the range of 0.0 to 1.0
func hsvToRGB(h, s, v float32) (r, g, b float32) {
	var (
		c = s * v
		x = c * (1 - math.Abs(math.Mod(h*6, 2)-1))
		m = v - c
	)
	switch {
	case h >= 0 && h <= 1.0/6:
		r, g, b = c, x, 0
	case h > 1.0/6 && h <= 2.0/6:
		r, g, b = x, c, 0
	case h > 2.0/6 && h <= 3.0/6:
		r, g, b = 0, c, x
	case h > 3.0/6 && h <= 4.0/6:
		r, g, b = 0, x, c
	case h > 4.0/6 && h <= 5.0/6:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// rgbToHSV converts RGB floating point values on the range of 0.0 to 1.0 to
// hue, saturation and brightness values on the range of 0.0 to 1.0
func rgbToHSV(r, g, b float32) (h, s, v float32) {
	var (
		xmax = max(r, g, b)
		xmin = min(r, g, b)
		c    = xmax - xmin
	)
	v = xmax
	switch {
	case c == 0:
		h = 0
	case v == r:
		h = (g - b) / (c * 6)
	case v == g:
		h = 1.0/3 + (b-r)/(c*6)
	case v == b:
		h = 2.0/3 + (r-g)/(c*6)
	}
	if h < 0 {
		h += 1
	}
	if xmax > 0 {
		s = c / xmax
	}
	return
}
