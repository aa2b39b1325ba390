// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/koru3d/koru/core"
	"github.com/koru3d/koru/core/refcount"
	"github.com/koru3d/koru/resource"
)

var (
	// ErrNotValid is returned when updating a resource that is not Valid
	ErrNotValid = errors.New("resource is not valid")
	// ErrImmutable is returned when updating an Immutable resource
	ErrImmutable = errors.New("resource is immutable")
)

// ResourceContainer owns the pools of every resource type and drives
// their lifecycle. Resources are created synchronously through Create
// or asynchronously through loaders, and destroyed per label.
//
// The container is not safe for concurrent use. Loaders may work in the
// background but have to report back from Continue, which runs on the
// goroutine that calls Update.
type ResourceContainer struct {
	resource.ContainerBase

	log       logrus.FieldLogger
	factory   Factory
	runLoop   *core.RunLoop
	runLoopID core.RunLoopID

	meshPool       resource.Pool[Mesh, *Mesh]
	shaderPool     resource.Pool[Shader, *Shader]
	texturePool    resource.Pool[Texture, *Texture]
	pipelinePool   resource.Pool[Pipeline, *Pipeline]
	renderPassPool resource.Pool[RenderPass, *RenderPass]

	pendingLoaders []resource.Loader
	destroyQueue   []resource.Id
}

// Setup creates the pools and registers Update on runLoop. A nil logger
// logs through the logrus standard logger.
func (c *ResourceContainer) Setup(cfg core.ResourceConfiguration, factory Factory, runLoop *core.RunLoop, logger logrus.FieldLogger) {
	if c.IsValid() {
		panic("gfx.ResourceContainer.Setup(): already set up")
	}
	if factory == nil || runLoop == nil {
		panic("gfx.ResourceContainer.Setup(): factory and run loop are required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c.log = logger
	c.factory = factory
	c.runLoop = runLoop
	c.pendingLoaders = make([]resource.Loader, 0, 128)
	c.destroyQueue = make([]resource.Id, 0, 128)

	c.meshPool.Setup(uint16(MeshType), cfg.MeshPoolSize, logger)
	c.shaderPool.Setup(uint16(ShaderType), cfg.ShaderPoolSize, logger)
	c.texturePool.Setup(uint16(TextureType), cfg.TexturePoolSize, logger)
	c.pipelinePool.Setup(uint16(PipelineType), cfg.PipelinePoolSize, logger)
	c.renderPassPool.Setup(uint16(RenderPassType), cfg.RenderPassPoolSize, logger)
	c.factory.Setup(c)
	c.runLoopID = runLoop.Add(c.Update)
	c.ContainerBase.Setup(cfg.LabelStackCapacity, cfg.RegistryCapacity)

	c.log.WithFields(logrus.Fields{
		"meshes":   cfg.MeshPoolSize,
		"shaders":  cfg.ShaderPoolSize,
		"textures": cfg.TexturePoolSize,
	}).Info("resource container set up")
}

// Discard cancels pending loaders, destroys every remaining resource and
// tears the pools and the factory down. All pushed labels must have been
// popped.
func (c *ResourceContainer) Discard() {
	c.mustBeValid("Discard")
	if c.LabelDepth() != 1 {
		panic("gfx.ResourceContainer.Discard(): label stack not empty")
	}
	c.runLoop.Remove(c.runLoopID)

	cancelled := len(c.pendingLoaders)
	for _, loader := range c.pendingLoaders {
		loader.Cancel()
		releaseLoader(loader)
	}
	c.pendingLoaders = nil

	c.Destroy(resource.LabelAll)
	c.GarbageCollect()
	c.ContainerBase.Discard()
	c.renderPassPool.Discard()
	c.pipelinePool.Discard()
	c.texturePool.Discard()
	c.shaderPool.Discard()
	c.meshPool.Discard()
	c.factory.Discard()
	c.factory = nil
	c.runLoop = nil
	c.destroyQueue = nil

	c.log.WithField("cancelledLoaders", cancelled).Info("resource container discarded")
}

// Create dispatches setup to the matching typed create method
func (c *ResourceContainer) Create(setup Setup, data []byte) resource.Id {
	switch s := setup.(type) {
	case MeshSetup:
		return c.CreateMesh(s, data)
	case TextureSetup:
		return c.CreateTexture(s, data)
	case ShaderSetup:
		return c.CreateShader(s)
	case PipelineSetup:
		return c.CreatePipeline(s)
	case PassSetup:
		return c.CreateRenderPass(s)
	}
	panic(fmt.Sprintf("gfx.ResourceContainer.Create(): unknown setup %T", setup))
}

// CreateMesh creates a mesh from data. A shared locator that is already
// registered returns the existing mesh and data is not used.
func (c *ResourceContainer) CreateMesh(setup MeshSetup, data []byte) resource.Id {
	return create(c, &c.meshPool, "CreateMesh", setup.Locator, func(res *Mesh) resource.State {
		res.Setup = setup
		return c.factory.InitMesh(res, data)
	})
}

// CreateTexture creates a texture from pixel data, see CreateMesh
func (c *ResourceContainer) CreateTexture(setup TextureSetup, data []byte) resource.Id {
	return create(c, &c.texturePool, "CreateTexture", setup.Locator, func(res *Texture) resource.State {
		res.Setup = setup
		return c.factory.InitTexture(res, data)
	})
}

// CreateShader creates a shader
func (c *ResourceContainer) CreateShader(setup ShaderSetup) resource.Id {
	return create(c, &c.shaderPool, "CreateShader", setup.Locator, func(res *Shader) resource.State {
		res.Setup = setup
		return c.factory.InitShader(res)
	})
}

// CreatePipeline creates a pipeline
func (c *ResourceContainer) CreatePipeline(setup PipelineSetup) resource.Id {
	return create(c, &c.pipelinePool, "CreatePipeline", setup.Locator, func(res *Pipeline) resource.State {
		res.Setup = setup
		return c.factory.InitPipeline(res)
	})
}

// CreateRenderPass creates a render pass
func (c *ResourceContainer) CreateRenderPass(setup PassSetup) resource.Id {
	return create(c, &c.renderPassPool, "CreateRenderPass", setup.Locator, func(res *RenderPass) resource.State {
		res.Setup = setup
		return c.factory.InitRenderPass(res)
	})
}

func create[T any, PT resource.Slotted[T]](c *ResourceContainer, pool *resource.Pool[T, PT], op string, locator resource.Locator, init func(res *T) resource.State) resource.Id {
	c.mustBeValid(op)
	if id := c.Registry.Lookup(locator); id.IsValid() {
		return id
	}

	id := pool.AllocId()
	label := c.PeekLabel()
	c.Registry.Add(locator, id, label)
	res := pool.Assign(id, resource.Setup)
	state := init(res)
	mustBeTerminal(op, state)
	pool.UpdateState(id, state)

	c.log.WithFields(logrus.Fields{
		"locator": locator.String(),
		"id":      id.String(),
		"label":   label.String(),
		"state":   state.String(),
	}).Debug("resource created")
	return id
}

// PrepareAsyncMesh registers a Pending mesh for a loader
func (c *ResourceContainer) PrepareAsyncMesh(setup MeshSetup) resource.Id {
	return prepareAsync(c, &c.meshPool, "PrepareAsyncMesh", setup.Locator, func(res *Mesh) {
		res.Setup = setup
	})
}

// PrepareAsyncTexture registers a Pending texture for a loader
func (c *ResourceContainer) PrepareAsyncTexture(setup TextureSetup) resource.Id {
	return prepareAsync(c, &c.texturePool, "PrepareAsyncTexture", setup.Locator, func(res *Texture) {
		res.Setup = setup
	})
}

func prepareAsync[T any, PT resource.Slotted[T]](c *ResourceContainer, pool *resource.Pool[T, PT], op string, locator resource.Locator, assign func(res *T)) resource.Id {
	c.mustBeValid(op)
	id := pool.AllocId()
	c.Registry.Add(locator, id, c.PeekLabel())
	assign(pool.Assign(id, resource.Pending))
	return id
}

// InitAsyncMesh creates the backend objects of a prepared mesh. If the
// mesh was destroyed while loading, InvalidState is returned.
func (c *ResourceContainer) InitAsyncMesh(id resource.Id, setup MeshSetup, data []byte) resource.State {
	c.mustBeType("InitAsyncMesh", id, MeshType)
	return initAsync(c, &c.meshPool, "InitAsyncMesh", id, func(res *Mesh) resource.State {
		res.Setup = setup
		return c.factory.InitMesh(res, data)
	})
}

// InitAsyncTexture creates the backend objects of a prepared texture,
// see InitAsyncMesh
func (c *ResourceContainer) InitAsyncTexture(id resource.Id, setup TextureSetup, data []byte) resource.State {
	c.mustBeType("InitAsyncTexture", id, TextureType)
	return initAsync(c, &c.texturePool, "InitAsyncTexture", id, func(res *Texture) resource.State {
		res.Setup = setup
		return c.factory.InitTexture(res, data)
	})
}

func initAsync[T any, PT resource.Slotted[T]](c *ResourceContainer, pool *resource.Pool[T, PT], op string, id resource.Id, init func(res *T) resource.State) resource.State {
	c.mustBeValid(op)
	if !pool.Contains(id) {
		c.warnDestroyed(op, id)
		return resource.InvalidState
	}
	res := pool.Assign(id, resource.Pending)
	state := init(res)
	mustBeTerminal(op, state)
	pool.UpdateState(id, state)
	return state
}

// FailedAsync marks a prepared mesh or texture as Failed. If the
// resource was destroyed while loading, InvalidState is returned.
func (c *ResourceContainer) FailedAsync(id resource.Id) resource.State {
	c.mustBeValid("FailedAsync")
	var contained bool
	switch ResourceType(id.Type) {
	case MeshType:
		if contained = c.meshPool.Contains(id); contained {
			c.meshPool.UpdateState(id, resource.Failed)
		}
	case TextureType:
		if contained = c.texturePool.Contains(id); contained {
			c.texturePool.UpdateState(id, resource.Failed)
		}
	default:
		panic(fmt.Sprintf("gfx.ResourceContainer.FailedAsync(): %v can't be created asynchronously", ResourceType(id.Type)))
	}
	if !contained {
		c.warnDestroyed("FailedAsync", id)
		return resource.InvalidState
	}
	return resource.Failed
}

// Load starts loader unless a resource with its locator already exists.
// The container holds a reference on counted loaders while they run.
func (c *ResourceContainer) Load(loader resource.Loader) resource.Id {
	c.mustBeValid("Load")
	if id := c.Registry.Lookup(loader.Locator()); id.IsValid() {
		return id
	}
	if counted, ok := loader.(refcount.Counted); ok {
		counted.AddRef()
	}
	c.pendingLoaders = append(c.pendingLoaders, loader)
	return loader.Start()
}

// Destroy removes every resource with label and frees it right away
func (c *ResourceContainer) Destroy(label resource.Label) {
	c.mustBeValid("Destroy")
	for _, id := range c.Registry.Remove(label) {
		c.destroyResource(id)
	}
}

// DestroyDeferred removes every resource with label from the registry
// now, the resources are freed by the next GarbageCollect
func (c *ResourceContainer) DestroyDeferred(label resource.Label) {
	c.mustBeValid("DestroyDeferred")
	c.destroyQueue = append(c.destroyQueue, c.Registry.Remove(label)...)
}

// GarbageCollect frees deferred destroys and lets the factory release
// retired backend objects. Call once per frame.
func (c *ResourceContainer) GarbageCollect() {
	c.mustBeValid("GarbageCollect")
	for _, id := range c.destroyQueue {
		c.destroyResource(id)
	}
	c.destroyQueue = c.destroyQueue[:0]
	c.factory.GarbageCollect()
}

// NumDeferredDestroys returns the number of resources waiting for
// GarbageCollect
func (c *ResourceContainer) NumDeferredDestroys() int {
	return len(c.destroyQueue)
}

func (c *ResourceContainer) destroyResource(id resource.Id) {
	switch ResourceType(id.Type) {
	case MeshType:
		destroyIn(c, &c.meshPool, id, c.factory.DestroyMesh)
	case ShaderType:
		destroyIn(c, &c.shaderPool, id, c.factory.DestroyShader)
	case TextureType:
		destroyIn(c, &c.texturePool, id, c.factory.DestroyTexture)
	case PipelineType:
		destroyIn(c, &c.pipelinePool, id, c.factory.DestroyPipeline)
	case RenderPassType:
		destroyIn(c, &c.renderPassPool, id, c.factory.DestroyRenderPass)
	default:
		panic(fmt.Sprintf("gfx.ResourceContainer.destroyResource(): invalid resource type %d", id.Type))
	}
}

func destroyIn[T any, PT resource.Slotted[T]](c *ResourceContainer, pool *resource.Pool[T, PT], id resource.Id, destroy func(res *T)) {
	// Setup and Pending resources own no backend objects yet
	switch pool.QueryState(id) {
	case resource.Valid, resource.Failed:
		if res := pool.Get(id); res != nil {
			destroy(res)
		}
	}
	pool.Unassign(id)
	c.log.WithField("id", id.String()).Debug("resource destroyed")
}

// UpdateVertices replaces the vertex data of a Valid mesh that is not
// Immutable. The state of the mesh does not change.
func (c *ResourceContainer) UpdateVertices(id resource.Id, data []byte) error {
	mesh, err := c.updatableMesh("UpdateVertices", id)
	if err != nil {
		return err
	}
	if err := c.factory.UpdateVertices(mesh, data); err != nil {
		return fmt.Errorf("gfx.ResourceContainer.UpdateVertices(): %w", err)
	}
	return nil
}

// UpdateIndices replaces the index data of a Valid mesh, see
// UpdateVertices
func (c *ResourceContainer) UpdateIndices(id resource.Id, data []byte) error {
	mesh, err := c.updatableMesh("UpdateIndices", id)
	if err != nil {
		return err
	}
	if err := c.factory.UpdateIndices(mesh, data); err != nil {
		return fmt.Errorf("gfx.ResourceContainer.UpdateIndices(): %w", err)
	}
	return nil
}

// UpdateTexture replaces the pixels of a Valid texture that is not
// Immutable. The state of the texture does not change.
func (c *ResourceContainer) UpdateTexture(id resource.Id, data []byte) error {
	c.mustBeValid("UpdateTexture")
	if !id.IsValid() {
		return fmt.Errorf("gfx.ResourceContainer.UpdateTexture(): %v: %w", id, ErrNotValid)
	}
	c.mustBeType("UpdateTexture", id, TextureType)
	texture := c.texturePool.Lookup(id)
	if texture == nil {
		return fmt.Errorf("gfx.ResourceContainer.UpdateTexture(): %v: %w", id, ErrNotValid)
	}
	if texture.Setup.Usage == Immutable {
		return fmt.Errorf("gfx.ResourceContainer.UpdateTexture(): %v: %w", id, ErrImmutable)
	}
	if err := c.factory.UpdateTexture(texture, data); err != nil {
		return fmt.Errorf("gfx.ResourceContainer.UpdateTexture(): %w", err)
	}
	return nil
}

func (c *ResourceContainer) updatableMesh(op string, id resource.Id) (*Mesh, error) {
	c.mustBeValid(op)
	if !id.IsValid() {
		return nil, fmt.Errorf("gfx.ResourceContainer.%s(): %v: %w", op, id, ErrNotValid)
	}
	c.mustBeType(op, id, MeshType)
	mesh := c.meshPool.Lookup(id)
	if mesh == nil {
		return nil, fmt.Errorf("gfx.ResourceContainer.%s(): %v: %w", op, id, ErrNotValid)
	}
	if mesh.Setup.Usage == Immutable {
		return nil, fmt.Errorf("gfx.ResourceContainer.%s(): %v: %w", op, id, ErrImmutable)
	}
	return mesh, nil
}

// Update advances the pools and polls pending loaders. It is registered
// on the run loop by Setup.
func (c *ResourceContainer) Update() {
	c.mustBeValid("Update")
	c.meshPool.Update()
	c.shaderPool.Update()
	c.texturePool.Update()
	c.pipelinePool.Update()
	c.renderPassPool.Update()

	// backwards, finished loaders are removed in place
	for i := len(c.pendingLoaders) - 1; i >= 0; i-- {
		loader := c.pendingLoaders[i]
		if state := loader.Continue(); state != resource.Pending {
			copy(c.pendingLoaders[i:], c.pendingLoaders[i+1:])
			c.pendingLoaders[len(c.pendingLoaders)-1] = nil
			c.pendingLoaders = c.pendingLoaders[:len(c.pendingLoaders)-1]
			releaseLoader(loader)
		}
	}
}

// NumPendingLoaders returns the number of loaders still working
func (c *ResourceContainer) NumPendingLoaders() int {
	return len(c.pendingLoaders)
}

// QueryResourceInfo returns the state of id. Ids that are not in their
// pool report InvalidState.
func (c *ResourceContainer) QueryResourceInfo(id resource.Id) resource.Info {
	c.mustBeValid("QueryResourceInfo")
	switch ResourceType(id.Type) {
	case MeshType:
		return c.meshPool.QueryResourceInfo(id)
	case ShaderType:
		return c.shaderPool.QueryResourceInfo(id)
	case TextureType:
		return c.texturePool.QueryResourceInfo(id)
	case PipelineType:
		return c.pipelinePool.QueryResourceInfo(id)
	case RenderPassType:
		return c.renderPassPool.QueryResourceInfo(id)
	}
	panic(fmt.Sprintf("gfx.ResourceContainer.QueryResourceInfo(): invalid resource type %d", id.Type))
}

// QueryPoolInfo returns the occupancy of the pool of resType
func (c *ResourceContainer) QueryPoolInfo(resType ResourceType) resource.PoolInfo {
	c.mustBeValid("QueryPoolInfo")
	switch resType {
	case MeshType:
		return c.meshPool.QueryPoolInfo()
	case ShaderType:
		return c.shaderPool.QueryPoolInfo()
	case TextureType:
		return c.texturePool.QueryPoolInfo()
	case PipelineType:
		return c.pipelinePool.QueryPoolInfo()
	case RenderPassType:
		return c.renderPassPool.QueryPoolInfo()
	}
	panic(fmt.Sprintf("gfx.ResourceContainer.QueryPoolInfo(): invalid resource type %v", resType))
}

// QueryFreeSlots returns how many more resources of resType fit
func (c *ResourceContainer) QueryFreeSlots(resType ResourceType) int {
	return c.QueryPoolInfo(resType).NumFreeSlots
}

// LookupMesh returns the mesh of id if it is Valid
func (c *ResourceContainer) LookupMesh(id resource.Id) *Mesh {
	return c.meshPool.Lookup(id)
}

// LookupShader returns the shader of id if it is Valid
func (c *ResourceContainer) LookupShader(id resource.Id) *Shader {
	return c.shaderPool.Lookup(id)
}

// LookupTexture returns the texture of id if it is Valid
func (c *ResourceContainer) LookupTexture(id resource.Id) *Texture {
	return c.texturePool.Lookup(id)
}

// LookupPipeline returns the pipeline of id if it is Valid
func (c *ResourceContainer) LookupPipeline(id resource.Id) *Pipeline {
	return c.pipelinePool.Lookup(id)
}

// LookupRenderPass returns the render pass of id if it is Valid
func (c *ResourceContainer) LookupRenderPass(id resource.Id) *RenderPass {
	return c.renderPassPool.Lookup(id)
}

func (c *ResourceContainer) warnDestroyed(op string, id resource.Id) {
	c.log.WithFields(logrus.Fields{
		"type": ResourceType(id.Type).String(),
		"slot": id.SlotIndex,
	}).Warnf("gfx.ResourceContainer.%s(): resource destroyed before it was loaded", op)
}

func (c *ResourceContainer) mustBeType(op string, id resource.Id, want ResourceType) {
	if ResourceType(id.Type) != want {
		panic(fmt.Sprintf("gfx.ResourceContainer.%s(): id of type %v, want %v", op, ResourceType(id.Type), want))
	}
}

func (c *ResourceContainer) mustBeValid(op string) {
	if !c.IsValid() {
		panic("gfx.ResourceContainer." + op + "(): not set up")
	}
}

func mustBeTerminal(op string, state resource.State) {
	if !state.Terminal() {
		panic(fmt.Sprintf("gfx.ResourceContainer.%s(): factory returned non-terminal state %v", op, state))
	}
}

func releaseLoader(loader resource.Loader) {
	if counted, ok := loader.(refcount.Counted); ok {
		counted.Release()
	}
}
