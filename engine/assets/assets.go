package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/prism/engine/assets/loaders"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	Path string
	// path relative to the asset root, slash separated
	Rel        string
	Name       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

type shaderAsset struct {
	shader      *metadata.Shader
	configPath  string
	sourcePaths [metadata.ShaderStageMax]string
}

type textureAsset struct {
	texture *metadata.Texture
	path    string
}

/**
 * @brief Indexes the asset root, loads shaders, textures and materials, and
 * reloads them when their files change. The watcher goroutine only records
 * changed paths; Poll applies them on the caller's thread.
 */
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex   sync.RWMutex
	changed map[string]struct{}

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	watching bool

	// decodes images off the calling thread
	jobs *core.JobSystem

	shaders   map[string]*shaderAsset
	textures  map[string]*textureAsset
	materials map[string]*metadata.Material
	sampler   *metadata.Sampler
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[loaders.ResourceType]Loader),
		changed:   make(map[string]struct{}),
		fsnotify:  fsWatch,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		shaders:   make(map[string]*shaderAsset),
		textures:  make(map[string]*textureAsset),
		materials: make(map[string]*metadata.Material),
	}, nil
}

// Initialize indexes assetsDir. With hotReload every directory below it is
// watched until Shutdown.
func (am *AssetManager) Initialize(assetsDir string, hotReload bool) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.TextureLoader{FlipY: true})
	am.registerLoader(loaders.ResourceTypeMaterial, &loaders.MaterialLoader{})

	am.sampler = metadata.NewSampler(metadata.DefaultSamplerConfig())
	if am.jobs, err = core.NewJobSystem(runtime.NumCPU(), 64); err != nil {
		return err
	}

	if !hotReload {
		am.isClosed = true
		close(am.stopped)
		am.fsnotify.Close()
		return am.index(root)
	}

	am.watching = true
	go am.start()
	if err := am.addRecursive(root); err != nil {
		return err
	}
	core.LogInfo("watching assets under %s", root)
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Find looks an asset up by name, file name or path relative to the root. When
// several files share a name the lexically first path wins.
func (am *AssetManager) Find(name string, assetType loaders.ResourceType) (AssetInfo, error) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()

	var matches []string
	for path, info := range am.assets {
		if info.Type == assetType && (info.Name == name || info.Rel == name || filepath.Base(path) == name) {
			matches = append(matches, path)
		}
	}
	if len(matches) == 0 {
		return AssetInfo{}, fmt.Errorf("%s `%s`: %w", assetType, name, ErrAssetNotFound)
	}
	slices.Sort(matches)
	return am.assets[matches[0]], nil
}

// load runs the registered loader of the asset named name.
func (am *AssetManager) load(name string, assetType loaders.ResourceType) (*loaders.Resource, error) {
	asset, err := am.Find(name, assetType)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}
	res, err := loader.Load(asset.Path)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	asset.LastLoaded = time.Now()
	am.assets[asset.Path] = asset
	am.mutex.Unlock()
	return res, nil
}

// LoadShader returns the cached shader or loads its .shadercfg.
func (am *AssetManager) LoadShader(name string) (*metadata.Shader, error) {
	if sa, ok := am.shaders[name]; ok {
		return sa.shader, nil
	}
	res, err := am.load(name, loaders.ResourceTypeShader)
	if err != nil {
		return nil, err
	}
	data := res.Data.(*loaders.ShaderResource)
	shader, err := metadata.NewShader(data.Config)
	if err != nil {
		return nil, err
	}
	am.shaders[name] = &shaderAsset{
		shader:      shader,
		configPath:  res.FullPath,
		sourcePaths: data.SourcePaths,
	}
	core.LogDebug("loaded shader `%s` from %s", shader.Name(), res.FullPath)
	return shader, nil
}

// LoadTexture returns the cached texture or decodes the image into a RGBA8
// texture with a full mip chain and the default sampler.
func (am *AssetManager) LoadTexture(name string) (*metadata.Texture, error) {
	textures, err := am.LoadTextures(name)
	if err != nil {
		return nil, err
	}
	return textures[0], nil
}

// LoadTextures loads several textures, decoding the uncached images in
// parallel. Textures are created on the calling thread.
func (am *AssetManager) LoadTextures(names ...string) ([]*metadata.Texture, error) {
	textures := make([]*metadata.Texture, len(names))
	resources := make([]*loaders.Resource, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		if ta, ok := am.textures[name]; ok {
			textures[i] = ta.texture
			continue
		}
		if am.jobs == nil {
			resources[i], errs[i] = am.load(name, loaders.ResourceTypeImage)
			continue
		}
		wg.Add(1)
		am.jobs.Submit(core.JobTask{
			OnStart: func() error {
				resources[i], errs[i] = am.load(name, loaders.ResourceTypeImage)
				return errs[i]
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()

	for i, name := range names {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if textures[i] != nil {
			continue
		}
		// the same name twice in one call
		if ta, ok := am.textures[name]; ok {
			textures[i] = ta.texture
			continue
		}
		texture, err := am.newTexture(name, resources[i])
		if err != nil {
			return nil, err
		}
		textures[i] = texture
	}
	return textures, nil
}

func (am *AssetManager) newTexture(name string, res *loaders.Resource) (*metadata.Texture, error) {
	img := res.Data.(*loaders.ImageData)
	texture := metadata.NewTexture(metadata.TextureConfig{
		Name:         name,
		Width:        img.Width,
		Height:       img.Height,
		Depth:        1,
		Format:       metadata.PixelFormatRGBA8,
		FullMipChain: true,
		Sampler:      am.sampler,
	})
	if err := texture.UpdateRegion(0, texture.FullLevelRegion(0), img.Pixels); err != nil {
		texture.Release()
		return nil, err
	}
	am.textures[name] = &textureAsset{texture: texture, path: res.FullPath}
	return texture, nil
}

// RegisterTexture makes a texture built in code available to materials.
func (am *AssetManager) RegisterTexture(name string, texture *metadata.Texture) error {
	if _, exists := am.textures[name]; exists {
		err := fmt.Errorf("texture `%s` already registered: %w", name, core.ErrInvalidArgument)
		core.LogError("%s", err)
		return err
	}
	texture.Acquire()
	am.textures[name] = &textureAsset{texture: texture}
	return nil
}

// LoadMaterial returns the cached material or builds it from its .amt,
// loading the shader and textures it names.
func (am *AssetManager) LoadMaterial(name string) (*metadata.Material, error) {
	if m, ok := am.materials[name]; ok {
		return m, nil
	}
	res, err := am.load(name, loaders.ResourceTypeMaterial)
	if err != nil {
		return nil, err
	}
	cfg := res.Data.(*loaders.MaterialConfig)

	shader, err := am.LoadShader(cfg.Shader)
	if err != nil {
		return nil, err
	}
	material, err := metadata.NewMaterial(cfg.Name, shader)
	if err != nil {
		return nil, err
	}
	if err := am.applyMaterialConfig(material, cfg); err != nil {
		material.Release()
		err = fmt.Errorf("material `%s`: %w", cfg.Name, err)
		core.LogError("%s", err)
		return nil, err
	}
	am.materials[name] = material
	return material, nil
}

// applyMaterialConfig writes every value of cfg; each one must cover the
// whole uniform.
func (am *AssetManager) applyMaterialConfig(material *metadata.Material, cfg *loaders.MaterialConfig) error {
	count := func(name string, n int) (int, uint32, error) {
		id, err := material.ResolveUniform(name)
		if err != nil {
			return 0, 0, err
		}
		u, _ := material.Shader().Uniform(id)
		if c := u.Components(); c == 0 || n%int(c) != 0 {
			return 0, 0, fmt.Errorf("uniform `%s` is %dx%d, got %d values: %w", name, u.Width, u.Height, n, core.ErrInvalidArgument)
		}
		return id, uint32(n) / u.Components(), nil
	}

	for _, name := range sortedKeys(cfg.Floats) {
		id, n, err := count(name, len(cfg.Floats[name]))
		if err != nil {
			return err
		}
		if err := material.SetUniformF32(id, cfg.Floats[name], n, 0); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(cfg.Ints) {
		id, n, err := count(name, len(cfg.Ints[name]))
		if err != nil {
			return err
		}
		if err := material.SetUniformI32(id, cfg.Ints[name], n, 0); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(cfg.UInts) {
		id, n, err := count(name, len(cfg.UInts[name]))
		if err != nil {
			return err
		}
		if err := material.SetUniformUI32(id, cfg.UInts[name], n, 0); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(cfg.Bools) {
		id, n, err := count(name, len(cfg.Bools[name]))
		if err != nil {
			return err
		}
		if err := material.SetUniformBool(id, cfg.Bools[name], n, 0); err != nil {
			return err
		}
	}
	uniforms := sortedKeys(cfg.Textures)
	files := make([]string, len(uniforms))
	for i, name := range uniforms {
		files[i] = cfg.Textures[name]
	}
	textures, err := am.LoadTextures(files...)
	if err != nil {
		return err
	}
	for i, name := range uniforms {
		if err := material.SetUniformTextureByName(name, textures[i], nil); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Poll applies the file changes recorded since the last call and returns
// the names of the reloaded assets. It must run on the thread that owns
// the renderer.
func (am *AssetManager) Poll() []string {
	am.mutex.Lock()
	if len(am.changed) == 0 {
		am.mutex.Unlock()
		return nil
	}
	paths := make([]string, 0, len(am.changed))
	for p := range am.changed {
		paths = append(paths, p)
	}
	am.changed = make(map[string]struct{})
	am.mutex.Unlock()
	slices.Sort(paths)

	var reloaded []string
	for _, path := range paths {
		for _, name := range sortedKeys(am.shaders) {
			if am.reloadShader(name, path) && !slices.Contains(reloaded, name) {
				reloaded = append(reloaded, name)
				am.fireReloaded(name, path)
			}
		}
		for _, name := range sortedKeys(am.textures) {
			if am.reloadTexture(name, path) {
				reloaded = append(reloaded, name)
				am.fireReloaded(name, path)
			}
		}
	}
	return reloaded
}

func (am *AssetManager) fireReloaded(name, path string) {
	core.LogInfo("reloaded `%s` from %s", name, path)
	core.EventFire(core.EventContext{
		Type:   core.EVENT_CODE_ASSET_RELOADED,
		Sender: am,
		Data:   &core.AssetEvent{Name: name, Path: path},
	})
}

// reloadShader swaps the stage sources when path belongs to the shader. The
// declarations cannot change at runtime, so only the sources are applied.
func (am *AssetManager) reloadShader(name, path string) bool {
	sa := am.shaders[name]
	sources := make(map[metadata.ShaderStage]string)
	switch path {
	case sa.configPath:
		res, err := am.loaders[loaders.ResourceTypeShader].Load(path)
		if err != nil {
			return false
		}
		data := res.Data.(*loaders.ShaderResource)
		sa.sourcePaths = data.SourcePaths
		sources[metadata.ShaderStageVertex] = data.Config.VertexSource
		sources[metadata.ShaderStagePixel] = data.Config.PixelSource
	default:
		for stage, p := range sa.sourcePaths {
			if p != path {
				continue
			}
			src, err := loaders.ReadShaderSource(p)
			if err != nil {
				return false
			}
			sources[metadata.ShaderStage(stage)] = src
		}
	}
	if len(sources) == 0 {
		return false
	}
	for stage := metadata.ShaderStage(0); stage < metadata.ShaderStageMax; stage++ {
		if src, ok := sources[stage]; ok {
			if err := sa.shader.SetSource(stage, src); err != nil {
				core.LogError("%s", err)
				return false
			}
		}
	}
	return true
}

// reloadTexture re-decodes the image, resizing the texture when the image
// size changed.
func (am *AssetManager) reloadTexture(name, path string) bool {
	ta := am.textures[name]
	if ta.path == "" || ta.path != path {
		return false
	}
	res, err := am.loaders[loaders.ResourceTypeImage].Load(path)
	if err != nil {
		return false
	}
	img := res.Data.(*loaders.ImageData)
	t := ta.texture
	if t.Width() != img.Width || t.Height() != img.Height {
		if err := t.Resize(img.Width, img.Height, 1); err != nil {
			return false
		}
	}
	return t.UpdateRegion(0, t.FullLevelRegion(0), img.Pixels) == nil
}

// Shutdown stops the watcher and drops every reference the manager holds.
func (am *AssetManager) Shutdown() {
	if !am.isClosed {
		am.isClosed = true
		close(am.done)
		if !am.watching {
			am.fsnotify.Close()
			close(am.stopped)
		}
	}
	<-am.stopped
	if am.jobs != nil {
		_ = am.jobs.Shutdown()
		am.jobs = nil
	}

	for _, name := range sortedKeys(am.materials) {
		am.materials[name].Release()
	}
	for _, name := range sortedKeys(am.textures) {
		am.textures[name].texture.Release()
	}
	for _, name := range sortedKeys(am.shaders) {
		am.shaders[name].shader.Release()
	}
	if am.sampler != nil {
		am.sampler.Release()
		am.sampler = nil
	}
	am.materials = make(map[string]*metadata.Material)
	am.textures = make(map[string]*textureAsset)
	am.shaders = make(map[string]*shaderAsset)
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case e, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", e)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogError("%s", err)
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		am.handleFileEvent(e.Name)
		am.mutex.Lock()
		am.changed[e.Name] = struct{}{}
		am.mutex.Unlock()
	}
	// editors replace files by rename, the follow up Create re-indexes them
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files found on the way. A file created before its
// directory is watched is picked up by the walk.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// index walks path without watching.
func (am *AssetManager) index(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			am.handleFileEvent(walkPath)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return
	}
	rel, err := filepath.Rel(am.root, path)
	if err != nil {
		rel = path
	}
	base := filepath.Base(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Rel:  filepath.ToSlash(rel),
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
		Type: assetType,
	}
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func determineAssetType(path string) loaders.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shadercfg":
		return loaders.ResourceTypeShader
	case ".vert", ".frag", ".glsl":
		return loaders.ResourceTypeShaderSource
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return loaders.ResourceTypeImage
	case ".amt":
		return loaders.ResourceTypeMaterial
	default:
		return loaders.ResourceTypeNone
	}
}
