// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
)

var (
	// ErrInvalidValue is returned when a configuration key holds a value
	// that can't be used
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	Resource ResourceConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between event polls in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32
}

// ResourceConfiguration sizes the resource container
type ResourceConfiguration struct {
	MeshPoolSize       int
	ShaderPoolSize     int
	TexturePoolSize    int
	PipelinePoolSize   int
	RenderPassPoolSize int

	// LabelStackCapacity is the deepest the label stack can get
	LabelStackCapacity int
	// RegistryCapacity is the initial room of the resource registry
	RegistryCapacity int
	// MaxInflightFrames is the number of garbage collections a backend
	// object survives after it was destroyed
	MaxInflightFrames int
}

// DefaultConfiguration returns a configuration that works for most setups
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  10,
		},
		Renderer: RendererConfiguration{
			SwapchainSize: 2,
			ScreenWidth:   1280,
			ScreenHeight:  720,
		},
		Resource: ResourceConfiguration{
			MeshPoolSize:       128,
			ShaderPoolSize:     128,
			TexturePoolSize:    128,
			PipelinePoolSize:   128,
			RenderPassPoolSize: 128,
			LabelStackCapacity: 256,
			RegistryCapacity:   1024,
			MaxInflightFrames:  2,
		},
	}
}

// LoadConfiguration loads the given dotenv files into the environment
// and overrides the defaults with every KORU_ key found there. Without
// files only the environment is used, envy already picked up .env.
func LoadConfiguration(files ...string) (Configuration, error) {
	if len(files) > 0 {
		if err := envy.Load(files...); err != nil {
			return Configuration{}, fmt.Errorf("core.LoadConfiguration(): %w", err)
		}
	}
	cfg := DefaultConfiguration()
	if err := cfg.apply(func(key string) (string, bool) {
		value, err := envy.MustGet(key)
		return value, err == nil
	}); err != nil {
		return Configuration{}, fmt.Errorf("core.LoadConfiguration(): %w", err)
	}
	return cfg, nil
}

// ReadConfiguration reads a dotenv file without touching the environment
func ReadConfiguration(file string) (Configuration, error) {
	values, err := godotenv.Read(file)
	if err != nil {
		return Configuration{}, fmt.Errorf("core.ReadConfiguration(): %w", err)
	}
	return fromMap("core.ReadConfiguration()", values)
}

// ParseConfiguration parses dotenv formatted text
func ParseConfiguration(text string) (Configuration, error) {
	values, err := godotenv.Unmarshal(text)
	if err != nil {
		return Configuration{}, fmt.Errorf("core.ParseConfiguration(): %w", err)
	}
	return fromMap("core.ParseConfiguration()", values)
}

func fromMap(op string, values map[string]string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if err := cfg.apply(func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}); err != nil {
		return Configuration{}, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (cfg *Configuration) apply(lookup lookupFunc) error {
	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"KORU_FPS", &cfg.Time.FramesPerSecond, 0},
		{"KORU_EVENT_POLL_DELAY", &cfg.Time.EventPollDelay, 1},
		{"KORU_MESH_POOL_SIZE", &cfg.Resource.MeshPoolSize, 1},
		{"KORU_SHADER_POOL_SIZE", &cfg.Resource.ShaderPoolSize, 1},
		{"KORU_TEXTURE_POOL_SIZE", &cfg.Resource.TexturePoolSize, 1},
		{"KORU_PIPELINE_POOL_SIZE", &cfg.Resource.PipelinePoolSize, 1},
		{"KORU_RENDER_PASS_POOL_SIZE", &cfg.Resource.RenderPassPoolSize, 1},
		{"KORU_LABEL_STACK_CAPACITY", &cfg.Resource.LabelStackCapacity, 1},
		{"KORU_REGISTRY_CAPACITY", &cfg.Resource.RegistryCapacity, 1},
		{"KORU_MAX_INFLIGHT_FRAMES", &cfg.Resource.MaxInflightFrames, 0},
	}
	for _, field := range ints {
		value, ok := lookup(field.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < field.min {
			return fmt.Errorf("%s=%q: %w", field.key, value, ErrInvalidValue)
		}
		*field.dst = n
	}

	uints := []struct {
		key string
		dst *uint32
	}{
		{"KORU_SWAPCHAIN_SIZE", &cfg.Renderer.SwapchainSize},
		{"KORU_SCREEN_WIDTH", &cfg.Renderer.ScreenWidth},
		{"KORU_SCREEN_HEIGHT", &cfg.Renderer.ScreenHeight},
	}
	for _, field := range uints {
		value, ok := lookup(field.key)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", field.key, value, ErrInvalidValue)
		}
		*field.dst = uint32(n)
	}

	if value, ok := lookup("KORU_DEVICE_EXTENSIONS"); ok {
		cfg.Renderer.DeviceExtensions = nil
		for _, ext := range strings.Split(value, ",") {
			if ext = strings.TrimSpace(ext); ext != "" {
				cfg.Renderer.DeviceExtensions = append(cfg.Renderer.DeviceExtensions, ext)
			}
		}
	}
	return nil
}
