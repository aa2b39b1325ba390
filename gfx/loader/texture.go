// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // decoder
	_ "image/jpeg" // decoder
	_ "image/png"  // decoder

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp" // decoder

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/resource"
)

// TextureLoader creates an RGBA8 texture from a png, jpeg, gif or bmp
// image
type TextureLoader struct {
	async[gfx.TextureSetup]
}

// NewTextureLoader creates a loader for the image at locator's location
func NewTextureLoader(container *gfx.ResourceContainer, source Source, locator resource.Locator, logger logrus.FieldLogger) *TextureLoader {
	l := &TextureLoader{}
	l.setup(container, source, locator, logger)
	l.prepare = func() resource.Id {
		return container.PrepareAsyncTexture(gfx.TextureAsync(locator))
	}
	l.decode = func(raw []byte) (gfx.TextureSetup, []byte, error) {
		return decodeImage(locator, raw)
	}
	l.init = container.InitAsyncTexture
	return l
}

func decodeImage(locator resource.Locator, raw []byte) (gfx.TextureSetup, []byte, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return gfx.TextureSetup{}, nil, fmt.Errorf("decode image: %w", err)
	}
	pixels, err := core.GetPixels(img, 0)
	if err != nil {
		return gfx.TextureSetup{}, nil, fmt.Errorf("convert %s image: %w", format, err)
	}
	setup := gfx.TextureAsync(locator)
	setup.Width = img.Bounds().Dx()
	setup.Height = img.Bounds().Dy()
	setup.Format = gfx.RGBA8
	return setup, pixels, nil
}
