// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"unsafe"
)

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

const shaderSuffix = ".spv"

// ShaderFile is a compiled shader found on disk
type ShaderFile struct {
	Name string
	Path string
	Type ShaderType
}

// ShaderFilesFromDirectory get the list of files that are compiled shaders
// it is important that the file name does not contain more than two dots,
// the first is always the name of the shader, second is type, and the third one
// ensured that the shader is compiled (only compiled shaders have an .spv extension).
func ShaderFilesFromDirectory(dir string) ([]ShaderFile, error) {
	var shaders []ShaderFile
	if err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), shaderSuffix) {
			return nil
		}

		nodes := strings.Split(strings.TrimSuffix(f.Name(), shaderSuffix), ".")
		if len(nodes) != 2 {
			return nil
		}

		shader := ShaderFile{Name: nodes[0], Path: path}
		switch nodes[1] {
		case "frag":
			shader.Type = FragmentShaderType
		case "vert":
			shader.Type = VertexShaderType
		default:
			return nil
		}
		shaders = append(shaders, shader)
		return nil
	}); err != nil {
		return nil, err
	}
	return shaders, nil
}

// SliceUint32 reslices bytes into a uint32, that is used
// to sumbit vulkan shaders for processing
func SliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// GetPixels transforms a given image into right arrangement of pixels
// by drawing the decoded image onto a controlled RGBA canvas
func GetPixels(img image.Image, rowPitch int) ([]uint8, error) {
	bounds := img.Bounds()
	newImg := image.NewRGBA(bounds)
	if rowPitch > newImg.Stride {
		// apply the proposed row pitch only if it fits a whole row
		newImg.Stride = rowPitch
		newImg.Pix = make([]uint8, rowPitch*bounds.Dy())
	}
	draw.Draw(newImg, newImg.Bounds(), img, bounds.Min, draw.Src)
	return newImg.Pix, nil
}
