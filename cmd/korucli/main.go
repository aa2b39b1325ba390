// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command korucli runs the resource container without a window. It
// either lists the Vulkan devices of the machine or drives the null
// backend through a number of frames and reports what happened.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"

	"github.com/koru3d/koru/backend/null"
	"github.com/koru3d/koru/backend/vulkan"
	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/gfx"
	"github.com/koru3d/koru/gfx/loader"
	"github.com/koru3d/koru/model"
	"github.com/koru3d/koru/resource"
	"github.com/koru3d/koru/utility/kar"
)

var (
	devices    = flag.Bool("devices", false, "Print the Vulkan physical devices as JSON and exit")
	configFile = flag.String("config", "", "dotenv file with KORU_ configuration keys")
	frames     = flag.Int("frames", 120, "Number of frames to run")
	perFrame   = flag.Int("n", 8, "Meshes created and destroyed every frame")
	assetDir   = flag.String("assets", "", "Directory to load assets from")
	archive    = flag.String("kar", "", "Archive to load assets from, takes precedence over -assets")
	verbose    = flag.Bool("v", false, "Log debug messages")
)

// Report is printed when the run finishes
type Report struct {
	Frames  int                 `json:"frames"`
	Pools   []resource.PoolInfo `json:"pools"`
	Loaded  map[string]string   `json:"loaded"`
	Backend null.Stats          `json:"backend"`
}

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *devices {
		if err := printDevices(); err != nil {
			log.Fatal(err)
		}
		return
	}

	var cfg core.Configuration
	var err error
	if *configFile != "" {
		cfg, err = core.LoadConfiguration(*configFile)
	} else {
		cfg, err = core.LoadConfiguration()
	}
	if err != nil {
		log.Fatal(err)
	}

	source, closeSource, err := openSource()
	if err != nil {
		log.Fatal(err)
	}
	defer closeSource()

	report, err := run(cfg, source, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", out)
}

func printDevices() error {
	instance, err := vulkan.NewInstance(vulkan.DefaultApplicationInfo, nil, vulkan.InstanceConfiguration{
		DebugMode: *verbose,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	bytes, err := json.Marshal(instance.PhysicalDevicesInfo())
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", bytes)
	return nil
}

func openSource() (loader.Source, func(), error) {
	switch {
	case *archive != "":
		ar, err := kar.OpenFile(*archive)
		if err != nil {
			return nil, nil, err
		}
		return ar, func() { ar.Close() }, nil
	case *assetDir != "":
		if _, err := os.Stat(*assetDir); err != nil {
			return nil, nil, err
		}
		return packr.NewBox(*assetDir), func() {}, nil
	}
	return nil, func() {}, nil
}

// run creates every asset named in files through a loader, churns
// meshes under a fresh label every frame, streams vertices into one
// mesh and waits for the loaders
func run(cfg core.Configuration, source loader.Source, files []string) (Report, error) {
	report := Report{Loaded: make(map[string]string)}
	if len(files) > 0 && source == nil {
		return report, fmt.Errorf("korucli: %d assets given without -assets or -kar", len(files))
	}

	backend := null.New(cfg.Resource, log.StandardLogger())
	g := gfx.New(cfg.Resource, backend, log.StandardLogger())
	loaded := make(map[string]resource.Id)
	for _, name := range files {
		locator := g.Locator(name)
		switch strings.ToLower(path.Ext(name)) {
		case ".dae":
			loaded[name] = g.Load(loader.NewMeshLoader(g.ResourceContainer, source, locator, log.StandardLogger()))
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
			loaded[name] = g.Load(loader.NewTextureLoader(g.ResourceContainer, source, locator, log.StandardLogger()))
		default:
			log.WithField("file", name).Warn("unknown asset type, skipped")
		}
	}

	quad := quadGeometry()
	data := quad.Bytes()
	streamSetup := quad.MeshSetup(g.Locator("stream"))
	streamSetup.Usage = gfx.Stream
	stream := g.CreateMesh(streamSetup, nil)

	previous := resource.LabelInvalid
	for frame := 0; frame < *frames; frame++ {
		if err := g.UpdateVertices(stream, data); err != nil {
			return report, err
		}
		label := g.PushLabel()
		for i := 0; i < *perFrame; i++ {
			g.CreateMesh(quad.MeshSetup(resource.NonShared()), data)
		}
		g.PopLabel()
		if previous.IsValid() {
			g.DestroyDeferred(previous)
		}
		previous = label
		g.CommitFrame()
	}
	if previous.IsValid() {
		g.Destroy(previous)
	}
	for g.NumPendingLoaders() > 0 {
		time.Sleep(time.Millisecond)
		g.CommitFrame()
	}
	for i := 0; i <= cfg.Resource.MaxInflightFrames; i++ {
		g.CommitFrame()
	}

	for name, id := range loaded {
		report.Loaded[name] = g.QueryResourceInfo(id).State.String()
	}
	for t := gfx.ResourceType(0); int(t) < gfx.NumResourceTypes; t++ {
		report.Pools = append(report.Pools, g.QueryPoolInfo(t))
	}
	report.Frames = g.Frame()

	g.Discard()
	report.Backend = backend.Stats()
	return report, nil
}

func quadGeometry() *model.Geometry {
	corners := []mgl32.Vec3{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}}
	normal := mgl32.Vec3{0, 0, 1}
	g := &model.Geometry{Name: "quad"}
	for _, i := range []int{0, 1, 2, 0, 2, 3} {
		g.Vertices = append(g.Vertices, model.Vertex{
			Pos:    corners[i],
			Normal: normal,
			Color:  model.DefaultColor,
		})
	}
	return g
}
