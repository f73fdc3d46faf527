package blobviz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/soypat/blobsdf"
	"github.com/soypat/blobsdf/blobeval"
	"github.com/soypat/geometry/ms3"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// SliceRenderer renders horizontal slices of a compiled tree to images.
// It is not safe for concurrent use.
type SliceRenderer struct {
	conv    func(d float32, m blobsdf.Material) color.Color
	pos     []ms3.Vec
	dist    []float32
	mat     []blobsdf.Material
	normals []ms3.Vec
}

// NewSliceRenderer returns a SliceRenderer using conversion to color each pixel.
// A nil conversion results in a simple black-white color scheme where black is
// the interior of the surface.
func NewSliceRenderer(conversion func(d float32, m blobsdf.Material) color.Color) *SliceRenderer {
	if conversion == nil {
		conversion = blackAndWhiteNoSmoothing
	}
	return &SliceRenderer{conv: conversion}
}

// Render samples the XY extent of area at height z and draws it to img,
// with the image's top row at area.Max.Y. area is also used as query box.
func (sr *SliceRenderer) Render(tree *blobsdf.SoA, area ms3.Box, z float32, img setImage) error {
	return sr.rows(tree, area, z, 0, img, func(sdf *blobeval.TreeSDF, row int) error {
		sr.dist = resize(sr.dist, len(sr.pos))
		sr.mat = resize(sr.mat, len(sr.pos))
		err := sdf.EvaluateMaterials(sr.pos, sr.dist, sr.mat)
		if err != nil {
			return err
		}
		for col, d := range sr.dist {
			img.Set(img.Bounds().Min.X+col, row, sr.conv(d, sr.mat[col]))
		}
		return nil
	})
}

// RenderNormals draws the field's normals over the slice as a normal map:
// each component is mapped from [-1,1] to [0,255] in the red, green and blue
// channels. Pixels where the normal is undefined are black. step is the
// central difference step.
func (sr *SliceRenderer) RenderNormals(tree *blobsdf.SoA, area ms3.Box, z, step float32, img setImage) error {
	return sr.rows(tree, area, z, step, img, func(sdf *blobeval.TreeSDF, row int) error {
		sr.normals = resize(sr.normals, len(sr.pos))
		err := blobeval.NormalsCentralDiff(sdf, sr.pos, sr.normals, step, sdf)
		if err != nil {
			return err
		}
		for col, n := range sr.normals {
			img.Set(img.Bounds().Min.X+col, row, normalColor(n))
		}
		return nil
	})
}

func normalColor(n ms3.Vec) color.Color {
	if n == (ms3.Vec{}) {
		return color.Black
	}
	c := func(v float32) uint8 { return uint8((v + 1) * 127.5) }
	return color.RGBA{R: c(n.X), G: c(n.Y), B: c(n.Z), A: 255}
}

// rows sets sr.pos to the pixel centers of each image row and calls draw with
// the row's image y coordinate. The query box is area grown by margin.
func (sr *SliceRenderer) rows(tree *blobsdf.SoA, area ms3.Box, z, margin float32, img setImage, draw func(sdf *blobeval.TreeSDF, row int) error) error {
	imgBB := img.Bounds()
	dxi, dyi := imgBB.Dx(), imgBB.Dy()
	if dxi <= 0 || dyi <= 0 {
		return errors.New("empty image")
	}
	query := area
	query.Min.Z = min(query.Min.Z, z)
	query.Max.Z = max(query.Max.Z, z)
	sdf, err := blobeval.NewTreeSDF(tree, blobsdf.Expand(query, margin))
	if err != nil {
		return err
	}
	sz := ms3.Sub(area.Max, area.Min)
	dx := sz.X / float32(dxi)
	dy := sz.Y / float32(dyi)
	// Pixel centers.
	x0 := area.Min.X + dx/2
	y0 := area.Max.Y - dy/2
	sr.pos = resize(sr.pos, dxi)
	for row := 0; row < dyi; row++ {
		y := y0 - float32(row)*dy
		for col := range sr.pos {
			sr.pos[col] = ms3.Vec{X: x0 + float32(col)*dx, Y: y, Z: z}
		}
		err = draw(sdf, imgBB.Min.Y+row)
		if err != nil {
			return err
		}
	}
	return nil
}

func resize[T any](buf []T, n int) []T {
	if cap(buf) < n {
		return make([]T, n)
	}
	return buf[:n]
}

// RenderSlicePNGFile renders a horizontal slice of tree at height z over area to
// a PNG file with a height of picHeight pixels. A nil colorConversion colors by
// distance.
func RenderSlicePNGFile(filename string, tree *blobsdf.SoA, area ms3.Box, z float32, picHeight int, colorConversion func(float32, blobsdf.Material) color.Color) error {
	sz := ms3.Sub(area.Max, area.Min)
	if colorConversion == nil {
		colorConversion = ColorConversionInigoQuilez(ms3.Norm(sz) / 3)
	}
	img, err := sliceImage(area, picHeight)
	if err != nil {
		return err
	}
	err = NewSliceRenderer(colorConversion).Render(tree, area, z, img)
	if err != nil {
		return err
	}
	return writePNG(filename, img)
}

// RenderNormalsPNGFile renders the normal map of a horizontal slice of tree at
// height z over area to a PNG file with a height of picHeight pixels.
func RenderNormalsPNGFile(filename string, tree *blobsdf.SoA, area ms3.Box, z float32, picHeight int, step float32) error {
	img, err := sliceImage(area, picHeight)
	if err != nil {
		return err
	}
	err = NewSliceRenderer(nil).RenderNormals(tree, area, z, step, img)
	if err != nil {
		return err
	}
	return writePNG(filename, img)
}

func sliceImage(area ms3.Box, picHeight int) (*image.RGBA, error) {
	sz := ms3.Sub(area.Max, area.Min)
	if !(sz.X > 0 && sz.Y > 0) || picHeight <= 0 {
		return nil, fmt.Errorf("invalid slice area %v or height %d", area, picHeight)
	}
	picWidth := int(float32(picHeight) * sz.X / sz.Y)
	return image.NewRGBA(image.Rect(0, 0, max(picWidth, 1), picHeight)), nil
}

func writePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}
