// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/koru3d/koru/backend/vulkan"
	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/gfx/loader"
	"github.com/koru3d/koru/model"
	"github.com/koru3d/koru/resource"
	"github.com/koru3d/koru/utility/kar"
)

func init() {
	runtime.LockOSThread()
}

var (
	cpuProfile = flag.String("cpuprofile", "", "Write a CPU profile to the file")
	traceFile  = flag.String("trace", "", "Write an execution trace to the file")
	vkDebug    = flag.Bool("vkdbg", false, "Enable the Vulkan validation layers")
	configFile = flag.String("config", "", "dotenv file with KORU_ configuration keys")
	shaderDir  = flag.String("shaders", "./shaders", "Directory with compiled .vert.spv and .frag.spv shaders")
	assetDir   = flag.String("assets", "", "Directory to load the model from")
	archive    = flag.String("kar", "", "Archive to load the model from")
	modelName  = flag.String("model", "", "Collada model to draw instead of the builtin triangle")
)

// Essential globals
var (
	vkInstance *vulkan.Instance
	vkDevice   *vulkan.Device
	sdlWindow  *sdl.Window
	assets     *kar.Archive
)

func newWindow(cfg core.RendererConfiguration) *sdl.Window {
	window, err := sdl.CreateWindow("Koru3D",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN)
	if err != nil {
		log.Fatal(err)
	}
	return window
}

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}
	if *traceFile != "" {
		f, err := os.Create(*traceFile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		defer trace.Stop()
	}

	var configuration core.Configuration
	var err error
	if *configFile != "" {
		configuration, err = core.LoadConfiguration(*configFile)
	} else {
		configuration, err = core.LoadConfiguration()
	}
	if err != nil {
		log.Fatal(err)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatal(err)
	}
	defer sdl.VulkanUnloadLibrary()

	sdlWindow = newWindow(configuration.Renderer)
	defer sdlWindow.Destroy()

	{
		cfg := vulkan.InstanceConfiguration{
			DebugMode:  *vkDebug,
			Extensions: sdlWindow.VulkanGetInstanceExtensions(),
		}
		if *vkDebug {
			cfg.Layers = []string{"VK_LAYER_KHRONOS_validation"}
		}
		vi, err := vulkan.NewInstance(vulkan.DefaultApplicationInfo, sdl.VulkanGetVkGetInstanceProcAddr(), cfg)
		if err != nil {
			log.Fatal(err)
		}
		vkInstance = vi
	}

	surface, err := sdlWindow.VulkanCreateSurface(vkInstance.Inner())
	if err != nil {
		log.Fatal(err)
	}
	vkInstance.SetSurface(surface)

	if vkDevice, err = vulkan.NewDevice(vkInstance, configuration.Renderer); err != nil {
		log.Fatal(err)
	}
	factory, err := vulkan.NewFactory(vkDevice, configuration.Resource, log.StandardLogger())
	if err != nil {
		log.Fatal(err)
	}
	g := gfx.New(configuration.Resource, factory, log.StandardLogger())
	swapchain, err := vulkan.NewSwapchain(vkDevice, factory, configuration.Renderer)
	if err != nil {
		log.Fatal(err)
	}

	scene, err := setupScene(g)
	if err != nil {
		log.Fatal(err)
	}

	clock := core.NewTime(configuration.Time)
	exitC := make(chan struct{}, 2)

EventLoop:
	for {
		select {
		case <-exitC:
			log.WithField("fps", clock.MeasuredFps()).Info("Event loop exited")
			break EventLoop
		case <-clock.EventTicker().C:
			var event sdl.Event
			for event = sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
				switch et := event.(type) {
				case *sdl.KeyboardEvent:
					if et.Keysym.Sym == sdl.K_ESCAPE {
						exitC <- struct{}{}
						continue EventLoop
					}
				case *sdl.QuitEvent:
					exitC <- struct{}{}
					continue EventLoop
				}
			}
		case now := <-clock.FpsTicker().C:
			clock.Frame(now)
			g.CommitFrame()
			if err := swapchain.Draw(scene); err != nil {
				log.WithError(err).Error("frame dropped")
			}
		}
	}

	clock.Stop()
	swapchain.Destroy()
	g.Discard()
	if assets != nil {
		assets.Close()
	}
	vkDevice.Destroy()
	vkInstance.Destroy()
}

// setupScene creates a pipeline for every shader pair found and the mesh
// they all draw
func setupScene(g *gfx.Gfx) ([]vulkan.DrawItem, error) {
	files, err := core.ShaderFilesFromDirectory(*shaderDir)
	if err != nil {
		return nil, err
	}
	stages := make(map[string]*gfx.ShaderSetup)
	var names []string
	for _, file := range files {
		code, err := os.ReadFile(file.Path)
		if err != nil {
			return nil, err
		}
		setup, ok := stages[file.Name]
		if !ok {
			setup = &gfx.ShaderSetup{Locator: g.Locator(file.Name)}
			stages[file.Name] = setup
			names = append(names, file.Name)
		}
		switch file.Type {
		case core.VertexShaderType:
			setup.VertexSource = code
		case core.FragmentShaderType:
			setup.FragmentSource = code
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no shaders found in %s", *shaderDir)
	}

	mesh, err := createMesh(g)
	if err != nil {
		return nil, err
	}

	var scene []vulkan.DrawItem
	for _, name := range names {
		shader := g.CreateShader(*stages[name])
		if g.QueryResourceInfo(shader).State != resource.Valid {
			log.WithField("shader", name).Warn("shader skipped")
			continue
		}
		pipeline := g.CreatePipeline(gfx.PipelineFromLayoutAndShader(model.Layout(), shader))
		scene = append(scene, vulkan.DrawItem{Pipeline: pipeline, Mesh: mesh})
	}
	return scene, nil
}

func createMesh(g *gfx.Gfx) (resource.Id, error) {
	if *modelName == "" {
		tri := &model.Geometry{Name: "triangle"}
		for _, v := range []mgl32.Vec3{{0, -0.5, 0}, {0.5, 0.5, 0}, {-0.5, 0.5, 0}} {
			tri.Vertices = append(tri.Vertices, model.Vertex{
				Pos:    v,
				Normal: mgl32.Vec3{0, 0, 1},
				Color:  model.DefaultColor,
			})
		}
		return g.CreateMesh(tri.MeshSetup(g.Locator(tri.Name)), tri.Bytes()), nil
	}

	var source loader.Source
	switch {
	case *archive != "":
		ar, err := kar.OpenFile(*archive)
		if err != nil {
			return resource.InvalidId(), err
		}
		assets = ar
		source = ar
	case *assetDir != "":
		source = packr.NewBox(*assetDir)
	default:
		return resource.InvalidId(), fmt.Errorf("-model %s needs -assets or -kar", *modelName)
	}
	return g.Load(loader.NewMeshLoader(g.ResourceContainer, source, g.Locator(*modelName), log.StandardLogger())), nil
}
