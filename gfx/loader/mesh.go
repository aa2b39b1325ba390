// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loader

import (
	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/model"
	"github.com/koru3d/koru/resource"
)

// MeshLoader creates a mesh from a Collada document
type MeshLoader struct {
	async[gfx.MeshSetup]
}

// NewMeshLoader creates a loader for the document at locator's location
func NewMeshLoader(container *gfx.ResourceContainer, source Source, locator resource.Locator, logger logrus.FieldLogger) *MeshLoader {
	l := &MeshLoader{}
	l.setup(container, source, locator, logger)
	l.prepare = func() resource.Id {
		return container.PrepareAsyncMesh(gfx.MeshAsync(locator))
	}
	l.decode = func(raw []byte) (gfx.MeshSetup, []byte, error) {
		geom, err := model.ImportCollada(raw)
		if err != nil {
			return gfx.MeshSetup{}, nil, err
		}
		return geom.MeshSetup(locator), geom.Bytes(), nil
	}
	l.init = container.InitAsyncMesh
	return l
}
