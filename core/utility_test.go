// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/koru3d/koru/core"
)

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func TestGetPixels(t *testing.T) {
	c := qt.New(t)
	pix, err := core.GetPixels(testImage(3, 2), 0)
	c.Assert(err, qt.IsNil)
	c.Assert(pix, qt.HasLen, 3*2*4)
	c.Assert(pix[4*4:4*5], qt.DeepEquals, []uint8{1, 1, 0x80, 0xff})

	padded, err := core.GetPixels(testImage(3, 2), 16)
	c.Assert(err, qt.IsNil)
	c.Assert(padded, qt.HasLen, 16*2)
	c.Assert(padded[16+4:16+8], qt.DeepEquals, []uint8{1, 1, 0x80, 0xff})
}

func TestSliceUint32(t *testing.T) {
	c := qt.New(t)
	words := core.SliceUint32([]byte{1, 0, 0, 0, 2, 0, 0, 0, 9})
	c.Assert(words, qt.HasLen, 2)
	c.Assert(core.SliceUint32(nil), qt.HasLen, 0)
}

func TestShaderFilesFromDirectory(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	for _, name := range []string{"triangle.vert.spv", "triangle.frag.spv", "triangle.vert", "a.b.c.spv", "x.geom.spv"} {
		c.Assert(os.WriteFile(filepath.Join(dir, name), []byte{0x03, 0x02, 0x23, 0x07}, 0o644), qt.IsNil)
	}
	shaders, err := core.ShaderFilesFromDirectory(dir)
	c.Assert(err, qt.IsNil)
	c.Assert(shaders, qt.DeepEquals, []core.ShaderFile{
		{Name: "triangle", Path: filepath.Join(dir, "triangle.frag.spv"), Type: core.FragmentShaderType},
		{Name: "triangle", Path: filepath.Join(dir, "triangle.vert.spv"), Type: core.VertexShaderType},
	})
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkGetPixelsNoRowPitch(b *testing.B) {
	img := testImage(256, 256)
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img, 0)
	}
}

func BenchmarkGetPixelsBigRowPitch(b *testing.B) {
	img := testImage(256, 256)
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img, 2048)
	}
}
