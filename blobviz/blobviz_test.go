package blobviz

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/blobsdf"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorGradient(t *testing.T) {
	conv := ColorConversionLinearGradient(256, color.White, red)
	assert.Equal(t, color.White, conv(-200, 0))
	assert.Equal(t, red, conv(200, 0))
	mid := conv(0, 0).(color.RGBA)
	assert.Equal(t, uint8(255), mid.R)
	assert.Less(t, mid.G, uint8(255))

	bw := ColorConversionLinearGradient(2, color.Black, color.White)
	assert.Equal(t, color.Black, bw(-5, 0))
	assert.Equal(t, color.Gray{Y: 127}, bw(0, 0))
}

func TestHSVRoundTrip(t *testing.T) {
	for _, c := range []uint32{0xff0000, 0x00ff00, 0x0000ff, 0x808080, 0x123456} {
		got := rgbToC(hsvToRGB(rgbToHSV(cToRGB(c))))
		for shift := 0; shift < 24; shift += 8 {
			assert.InDelta(t, int(uint8(c>>shift)), int(uint8(got>>shift)), 1, "color %06x", c)
		}
	}
}

func TestMaterialConversion(t *testing.T) {
	palette := map[blobsdf.Material]color.Color{1: color.RGBA{G: 200, A: 255}}
	conv := ColorConversionMaterial(palette, color.White, 4)
	assert.Equal(t, color.White, conv(1, 1))
	assert.Equal(t, color.White, conv(-1, 2), "material not in palette")
	surface := conv(0, 1).(color.RGBA)
	assert.InDelta(t, 200, int(surface.G), 1)
	deep := conv(-100, 1).(color.RGBA)
	assert.NotEqual(t, surface, deep)
}

func TestRenderSlice(t *testing.T) {
	var bld blobsdf.Builder
	root := bld.Union(
		bld.NewSphere(ms3.Vec{X: -2}, 1.5, 1),
		bld.NewBox(ms3.Vec{X: 2}, ms3.Vec{X: 1, Y: 1, Z: 1}, 2),
	)
	tree, err := blobsdf.Compile(bld.Pool(), root)
	require.NoError(t, err)
	area := ms3.Box{Min: ms3.Vec{X: -4, Y: -2, Z: -1}, Max: ms3.Vec{X: 4, Y: 2, Z: 1}}
	palette := map[blobsdf.Material]color.Color{
		1: color.RGBA{R: 255, A: 255},
		2: color.RGBA{B: 255, A: 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	sr := NewSliceRenderer(ColorConversionMaterial(palette, color.White, 1e6))
	require.NoError(t, sr.Render(tree, area, 0, img))
	// Pixels near x=-2 and x=2 on the y=0 row.
	sphere, box := img.RGBAAt(20, 20), img.RGBAAt(60, 20)
	assert.Greater(t, sphere.R, uint8(250))
	assert.Less(t, sphere.B, uint8(5))
	assert.Greater(t, box.B, uint8(250))
	assert.Less(t, box.R, uint8(5))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))

	filename := filepath.Join(t.TempDir(), "slice.png")
	require.NoError(t, RenderSlicePNGFile(filename, tree, area, 0, 20, nil))
	fp, err := os.Open(filename)
	require.NoError(t, err)
	defer fp.Close()
	decoded, err := png.Decode(fp)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), decoded.Bounds())

	assert.Error(t, RenderSlicePNGFile(filename, tree, ms3.Box{}, 0, 20, nil))
}

func TestRenderNormals(t *testing.T) {
	var bld blobsdf.Builder
	tree, err := blobsdf.Compile(bld.Pool(), bld.NewSphere(ms3.Vec{}, 1.5, 1))
	require.NoError(t, err)
	area := ms3.Box{Min: ms3.Vec{X: -2, Y: -2}, Max: ms3.Vec{X: 2, Y: 2}}
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	require.NoError(t, NewSliceRenderer(nil).RenderNormals(tree, area, 0, 1e-3, img))
	// Pixel centered at (1.45, 0.05) on the sphere's +X side.
	right := img.RGBAAt(34, 19)
	assert.Greater(t, right.R, uint8(250))
	assert.InDelta(t, 127, int(right.G), 8)
	assert.InDelta(t, 127, int(right.B), 2)
	// Pixel centered at (0.05, 1.95) points along +Y.
	top := img.RGBAAt(20, 0)
	assert.Greater(t, top.G, uint8(250))

	assert.Equal(t, color.Black, normalColor(ms3.Vec{}))
	assert.Error(t, NewSliceRenderer(nil).RenderNormals(tree, area, 0, 0, img))

	filename := filepath.Join(t.TempDir(), "normals.png")
	require.NoError(t, RenderNormalsPNGFile(filename, tree, area, 0, 10, 1e-3))
	fp, err := os.Open(filename)
	require.NoError(t, err)
	defer fp.Close()
	decoded, err := png.Decode(fp)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), decoded.Bounds())
}
