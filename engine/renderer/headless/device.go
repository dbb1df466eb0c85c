// Package headless is a graphics device without a GPU. It keeps every object
// in memory and records the calls it receives, so the backend can run in
// tests and on machines without a display.
package headless

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const DriverName = "headless"

func init() {
	driver.Register(DriverName, func() (driver.Device, error) {
		return New(), nil
	})
}

// DrawRecord is one submitted draw.
type DrawRecord struct {
	Program     driver.Program
	Topology    metadata.PolygonType
	Indexed     bool
	IndexFormat metadata.IndexFormat
	IndexBuffer driver.Buffer
	First       uint32
	Count       uint32
	Instances   uint32
	Attributes  map[driver.AttribLocation]AttributeBinding
	Textures    map[uint32]TextureBinding
	Framebuffer driver.Framebuffer
	Raster      driver.RasterState
	Depth       driver.DepthState
}

type AttributeBinding struct {
	Buffer  driver.Buffer
	Format  metadata.VertexFormat
	Offset  uint32
	Stride  uint32
	Divisor uint32
}

type TextureBinding struct {
	Texture driver.Texture
	Sampler driver.Sampler
}

// UniformValue is the last value uploaded to a location. Setter is the
// native entry point, e.g. "Uniform4fv".
type UniformValue struct {
	Setter string
	Count  int32
	F32    []float32
	I32    []int32
	UI32   []uint32
}

type program struct {
	vertex, pixel string
	uniforms      map[string]driver.UniformLocation
	attributes    map[string]driver.AttribLocation
	values        map[driver.UniformLocation]UniformValue
}

type texture struct {
	desc   driver.TextureDesc
	levels [][]byte
}

type Device struct {
	next uint32

	buffers      map[driver.Buffer][]byte
	textures     map[driver.Texture]*texture
	samplers     map[driver.Sampler]metadata.SamplerConfig
	programs     map[driver.Program]*program
	framebuffers map[driver.Framebuffer]driver.FramebufferDesc

	calls []string
	fail  map[string]error

	current     driver.Program
	framebuffer driver.Framebuffer
	viewport    [2]uint32
	raster      driver.RasterState
	depth       driver.DepthState
	blend       [metadata.MaxRenderTargets]metadata.BlendDesc
	attributes  map[driver.AttribLocation]AttributeBinding
	indexBuffer driver.Buffer
	bound       map[uint32]TextureBinding

	Draws  []DrawRecord
	Clears int
}

func New() *Device {
	return &Device{
		buffers:      make(map[driver.Buffer][]byte),
		textures:     make(map[driver.Texture]*texture),
		samplers:     make(map[driver.Sampler]metadata.SamplerConfig),
		programs:     make(map[driver.Program]*program),
		framebuffers: make(map[driver.Framebuffer]driver.FramebufferDesc),
		fail:         make(map[string]error),
		attributes:   make(map[driver.AttribLocation]AttributeBinding),
		bound:        make(map[uint32]TextureBinding),
	}
}

func (d *Device) Name() string {
	return DriverName
}

// FailOn makes the named method return err until cleared with a nil err.
func (d *Device) FailOn(method string, err error) {
	if err == nil {
		delete(d.fail, method)
		return
	}
	d.fail[method] = err
}

// Calls returns the names of every method called so far.
func (d *Device) Calls() []string {
	return d.calls
}

func (d *Device) CallCount() int {
	return len(d.calls)
}

// CountCalls returns how many times method was called.
func (d *Device) CountCalls(method string) int {
	n := 0
	for _, c := range d.calls {
		if c == method {
			n++
		}
	}
	return n
}

// LiveObjects is the number of objects not yet deleted.
func (d *Device) LiveObjects() int {
	return len(d.buffers) + len(d.textures) + len(d.samplers) + len(d.programs) + len(d.framebuffers)
}

func (d *Device) record(method string) error {
	d.calls = append(d.calls, method)
	return d.fail[method]
}

func (d *Device) name() uint32 {
	d.next++
	return d.next
}

func (d *Device) CreateBuffer(kind driver.BufferKind, size uint64, usage metadata.Usage, data []byte) (driver.Buffer, error) {
	if err := d.record("CreateBuffer"); err != nil {
		return 0, err
	}
	b := driver.Buffer(d.name())
	mem := make([]byte, size)
	copy(mem, data)
	d.buffers[b] = mem
	return b, nil
}

func (d *Device) UpdateBuffer(buf driver.Buffer, offset uint64, data []byte) error {
	if err := d.record("UpdateBuffer"); err != nil {
		return err
	}
	mem, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("buffer %d: %w", buf, core.ErrUndefinedResource)
	}
	if offset+uint64(len(data)) > uint64(len(mem)) {
		return fmt.Errorf("buffer %d update past end: %w", buf, core.ErrOutOfBounds)
	}
	copy(mem[offset:], data)
	return nil
}

func (d *Device) ReadBuffer(buf driver.Buffer, offset uint64, dst []byte) error {
	if err := d.record("ReadBuffer"); err != nil {
		return err
	}
	mem, ok := d.buffers[buf]
	if !ok {
		return fmt.Errorf("buffer %d: %w", buf, core.ErrUndefinedResource)
	}
	if offset+uint64(len(dst)) > uint64(len(mem)) {
		return fmt.Errorf("buffer %d read past end: %w", buf, core.ErrOutOfBounds)
	}
	copy(dst, mem[offset:])
	return nil
}

func (d *Device) DeleteBuffer(buf driver.Buffer) {
	d.record("DeleteBuffer")
	delete(d.buffers, buf)
}

// BufferData exposes buffer memory to tests.
func (d *Device) BufferData(buf driver.Buffer) []byte {
	return d.buffers[buf]
}

func (d *Device) CreateTexture(desc driver.TextureDesc) (driver.Texture, error) {
	if err := d.record("CreateTexture"); err != nil {
		return 0, err
	}
	if desc.Format.BytesPerPixel() == 0 {
		return 0, fmt.Errorf("format %d: %w", desc.Format, core.ErrUnsupportedFormat)
	}
	t := &texture{desc: desc, levels: make([][]byte, desc.MipLevels)}
	for level := range t.levels {
		w := metadata.MipExtent(desc.Width, uint32(level))
		h := metadata.MipExtent(desc.Height, uint32(level))
		z := metadata.MipExtent(desc.Depth, uint32(level))
		t.levels[level] = make([]byte, uint64(w)*uint64(h)*uint64(z)*uint64(desc.Format.BytesPerPixel()))
	}
	name := driver.Texture(d.name())
	d.textures[name] = t
	return name, nil
}

func (d *Device) UpdateTexture(tex driver.Texture, level uint32, region metadata.Region, format metadata.PixelFormat, pixels []byte) error {
	if err := d.record("UpdateTexture"); err != nil {
		return err
	}
	t, ok := d.textures[tex]
	if !ok || level >= uint32(len(t.levels)) {
		return fmt.Errorf("texture %d level %d: %w", tex, level, core.ErrUndefinedResource)
	}
	bpp := uint64(format.BytesPerPixel())
	w := uint64(metadata.MipExtent(t.desc.Width, level))
	h := uint64(metadata.MipExtent(t.desc.Height, level))
	row := uint64(region.Width) * bpp
	var src uint64
	for z := uint64(region.Z); z < uint64(region.Z+region.Depth); z++ {
		for y := uint64(region.Y); y < uint64(region.Y+region.Height); y++ {
			off := ((z*h+y)*w + uint64(region.X)) * bpp
			copy(t.levels[level][off:off+row], pixels[src:src+row])
			src += row
		}
	}
	return nil
}

// TextureData exposes a level of texture memory to tests.
func (d *Device) TextureData(tex driver.Texture, level uint32) []byte {
	t, ok := d.textures[tex]
	if !ok || level >= uint32(len(t.levels)) {
		return nil
	}
	return t.levels[level]
}

func (d *Device) GenerateMipmaps(tex driver.Texture) {
	d.record("GenerateMipmaps")
}

func (d *Device) DeleteTexture(tex driver.Texture) {
	d.record("DeleteTexture")
	delete(d.textures, tex)
}

func (d *Device) CreateSampler(cfg metadata.SamplerConfig) (driver.Sampler, error) {
	if err := d.record("CreateSampler"); err != nil {
		return 0, err
	}
	s := driver.Sampler(d.name())
	d.samplers[s] = cfg
	return s, nil
}

func (d *Device) DeleteSampler(s driver.Sampler) {
	d.record("DeleteSampler")
	delete(d.samplers, s)
}

// CreateProgram accepts any source. Uniform and attribute locations are
// handed out for identifiers that appear in either stage.
func (d *Device) CreateProgram(vertex, pixel string) (driver.Program, error) {
	if err := d.record("CreateProgram"); err != nil {
		return 0, err
	}
	p := driver.Program(d.name())
	d.programs[p] = &program{
		vertex:     vertex,
		pixel:      pixel,
		uniforms:   make(map[string]driver.UniformLocation),
		attributes: make(map[string]driver.AttribLocation),
		values:     make(map[driver.UniformLocation]UniformValue),
	}
	return p, nil
}

func declares(source, name string) bool {
	isIdent := func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
	for _, word := range strings.FieldsFunc(source, func(r rune) bool { return !isIdent(r) }) {
		if word == name {
			return true
		}
	}
	return false
}

func (d *Device) UniformLocation(p driver.Program, name string) driver.UniformLocation {
	d.record("UniformLocation")
	prog, ok := d.programs[p]
	if !ok || !(declares(prog.vertex, name) || declares(prog.pixel, name)) {
		return driver.InvalidLocation
	}
	if loc, ok := prog.uniforms[name]; ok {
		return loc
	}
	loc := driver.UniformLocation(len(prog.uniforms))
	prog.uniforms[name] = loc
	return loc
}

func (d *Device) AttribLocation(p driver.Program, name string) driver.AttribLocation {
	d.record("AttribLocation")
	prog, ok := d.programs[p]
	if !ok || !declares(prog.vertex, name) {
		return driver.InvalidLocation
	}
	if loc, ok := prog.attributes[name]; ok {
		return loc
	}
	loc := driver.AttribLocation(len(prog.attributes))
	prog.attributes[name] = loc
	return loc
}

func (d *Device) DeleteProgram(p driver.Program) {
	d.record("DeleteProgram")
	delete(d.programs, p)
	if d.current == p {
		d.current = 0
	}
}

// Uniform returns the last value uploaded to the named uniform of p.
func (d *Device) Uniform(p driver.Program, name string) (UniformValue, bool) {
	prog, ok := d.programs[p]
	if !ok {
		return UniformValue{}, false
	}
	loc, ok := prog.uniforms[name]
	if !ok {
		return UniformValue{}, false
	}
	v, ok := prog.values[loc]
	return v, ok
}

// CurrentProgram is the program of the last UseProgram.
func (d *Device) CurrentProgram() driver.Program {
	return d.current
}

func (d *Device) CreateFramebuffer(desc driver.FramebufferDesc) (driver.Framebuffer, error) {
	if err := d.record("CreateFramebuffer"); err != nil {
		return 0, err
	}
	for _, tex := range []driver.Texture{desc.Color, desc.DepthStencil} {
		if _, ok := d.textures[tex]; tex != 0 && !ok {
			return 0, fmt.Errorf("attachment %d: %w", tex, core.ErrUndefinedResource)
		}
	}
	fb := driver.Framebuffer(d.name())
	d.framebuffers[fb] = desc
	return fb, nil
}

func (d *Device) DeleteFramebuffer(fb driver.Framebuffer) {
	d.record("DeleteFramebuffer")
	delete(d.framebuffers, fb)
}

func (d *Device) BindFramebuffer(fb driver.Framebuffer, width, height uint32) {
	d.record("BindFramebuffer")
	d.framebuffer = fb
	d.viewport = [2]uint32{width, height}
}

// Framebuffer returns the bound framebuffer and its viewport size.
func (d *Device) Framebuffer() (driver.Framebuffer, uint32, uint32) {
	return d.framebuffer, d.viewport[0], d.viewport[1]
}

func (d *Device) Clear(flags metadata.ClearFlags, color math.Vec4, depth float32, stencil uint32) {
	d.record("Clear")
	d.Clears++
}

func (d *Device) UseProgram(p driver.Program) {
	d.record("UseProgram")
	d.current = p
}

func (d *Device) SetRasterState(state driver.RasterState) {
	d.record("SetRasterState")
	d.raster = state
}

func (d *Device) SetDepthState(state driver.DepthState) {
	d.record("SetDepthState")
	d.depth = state
}

func (d *Device) SetBlendState(target int, desc metadata.BlendDesc) {
	d.record("SetBlendState")
	d.blend[target] = desc
}

func (d *Device) Blend(target int) metadata.BlendDesc {
	return d.blend[target]
}

func (d *Device) BindVertexAttribute(loc driver.AttribLocation, buf driver.Buffer, format metadata.VertexFormat, offset, stride, divisor uint32) {
	d.record("BindVertexAttribute")
	d.attributes[loc] = AttributeBinding{Buffer: buf, Format: format, Offset: offset, Stride: stride, Divisor: divisor}
}

func (d *Device) ResetVertexAttributes() {
	d.record("ResetVertexAttributes")
	d.attributes = make(map[driver.AttribLocation]AttributeBinding)
}

func (d *Device) BindIndexBuffer(buf driver.Buffer) {
	d.record("BindIndexBuffer")
	d.indexBuffer = buf
}

func (d *Device) BindTexture(unit uint32, tex driver.Texture, s driver.Sampler) {
	d.record("BindTexture")
	d.bound[unit] = TextureBinding{Texture: tex, Sampler: s}
}

func (d *Device) setUniform(setter string, loc driver.UniformLocation, v UniformValue) {
	d.record(setter)
	prog, ok := d.programs[d.current]
	if !ok || loc < 0 {
		return
	}
	v.Setter = setter
	prog.values[loc] = v
}

func (d *Device) f32(setter string, loc driver.UniformLocation, count int32, v []float32) {
	d.setUniform(setter, loc, UniformValue{Count: count, F32: append([]float32(nil), v...)})
}

func (d *Device) i32(setter string, loc driver.UniformLocation, count int32, v []int32) {
	d.setUniform(setter, loc, UniformValue{Count: count, I32: append([]int32(nil), v...)})
}

func (d *Device) ui32(setter string, loc driver.UniformLocation, count int32, v []uint32) {
	d.setUniform(setter, loc, UniformValue{Count: count, UI32: append([]uint32(nil), v...)})
}

func (d *Device) Uniform1fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("Uniform1fv", loc, count, v)
}

func (d *Device) Uniform2fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("Uniform2fv", loc, count, v)
}

func (d *Device) Uniform3fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("Uniform3fv", loc, count, v)
}

func (d *Device) Uniform4fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("Uniform4fv", loc, count, v)
}

func (d *Device) Uniform1iv(loc driver.UniformLocation, count int32, v []int32) {
	d.i32("Uniform1iv", loc, count, v)
}

func (d *Device) Uniform2iv(loc driver.UniformLocation, count int32, v []int32) {
	d.i32("Uniform2iv", loc, count, v)
}

func (d *Device) Uniform3iv(loc driver.UniformLocation, count int32, v []int32) {
	d.i32("Uniform3iv", loc, count, v)
}

func (d *Device) Uniform4iv(loc driver.UniformLocation, count int32, v []int32) {
	d.i32("Uniform4iv", loc, count, v)
}

func (d *Device) Uniform1uiv(loc driver.UniformLocation, count int32, v []uint32) {
	d.ui32("Uniform1uiv", loc, count, v)
}

func (d *Device) Uniform2uiv(loc driver.UniformLocation, count int32, v []uint32) {
	d.ui32("Uniform2uiv", loc, count, v)
}

func (d *Device) Uniform3uiv(loc driver.UniformLocation, count int32, v []uint32) {
	d.ui32("Uniform3uiv", loc, count, v)
}

func (d *Device) Uniform4uiv(loc driver.UniformLocation, count int32, v []uint32) {
	d.ui32("Uniform4uiv", loc, count, v)
}

func (d *Device) UniformMatrix2fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix2fv", loc, count, v)
}

func (d *Device) UniformMatrix3fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix3fv", loc, count, v)
}

func (d *Device) UniformMatrix4fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix4fv", loc, count, v)
}

func (d *Device) UniformMatrix2x3fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix2x3fv", loc, count, v)
}

func (d *Device) UniformMatrix3x2fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix3x2fv", loc, count, v)
}

func (d *Device) UniformMatrix2x4fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix2x4fv", loc, count, v)
}

func (d *Device) UniformMatrix4x2fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix4x2fv", loc, count, v)
}

func (d *Device) UniformMatrix3x4fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix3x4fv", loc, count, v)
}

func (d *Device) UniformMatrix4x3fv(loc driver.UniformLocation, count int32, v []float32) {
	d.f32("UniformMatrix4x3fv", loc, count, v)
}

func (d *Device) snapshot(rec DrawRecord) DrawRecord {
	rec.Program = d.current
	rec.Framebuffer = d.framebuffer
	rec.Raster = d.raster
	rec.Depth = d.depth
	rec.Attributes = make(map[driver.AttribLocation]AttributeBinding, len(d.attributes))
	for k, v := range d.attributes {
		rec.Attributes[k] = v
	}
	rec.Textures = make(map[uint32]TextureBinding, len(d.bound))
	for k, v := range d.bound {
		rec.Textures[k] = v
	}
	return rec
}

func (d *Device) Draw(topology metadata.PolygonType, first, count, instances uint32) {
	d.record("Draw")
	d.Draws = append(d.Draws, d.snapshot(DrawRecord{
		Topology: topology, First: first, Count: count, Instances: instances,
	}))
}

func (d *Device) DrawIndexed(topology metadata.PolygonType, format metadata.IndexFormat, first, count, instances uint32) {
	d.record("DrawIndexed")
	d.Draws = append(d.Draws, d.snapshot(DrawRecord{
		Topology: topology, Indexed: true, IndexFormat: format, IndexBuffer: d.indexBuffer,
		First: first, Count: count, Instances: instances,
	}))
}

func (d *Device) Release() {
	d.record("Release")
	if n := d.LiveObjects(); n > 0 {
		core.LogWarn("headless device released with %d live objects", n)
	}
}
