package backend

import (
	"encoding/binary"
	"fmt"
	stdmath "math"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/driver"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// uniformSetter uploads count elements of packed little endian data.
type uniformSetter func(b *Backend, loc driver.UniformLocation, count int32, data []byte)

type uniformKey struct {
	typ           metadata.UniformType
	width, height uint8
}

type (
	f32Func  func(driver.Device, driver.UniformLocation, int32, []float32)
	i32Func  func(driver.Device, driver.UniformLocation, int32, []int32)
	ui32Func func(driver.Device, driver.UniformLocation, int32, []uint32)
)

func f32Setter(fn f32Func) uniformSetter {
	return func(b *Backend, loc driver.UniformLocation, count int32, data []byte) {
		b.f32Scratch = decodeF32(b.f32Scratch[:0], data)
		fn(b.device, loc, count, b.f32Scratch)
	}
}

// i32Setter also serves bools, which pack as 0 or 1.
func i32Setter(fn i32Func) uniformSetter {
	return func(b *Backend, loc driver.UniformLocation, count int32, data []byte) {
		b.i32Scratch = decodeI32(b.i32Scratch[:0], data)
		fn(b.device, loc, count, b.i32Scratch)
	}
}

func ui32Setter(fn ui32Func) uniformSetter {
	return func(b *Backend, loc driver.UniformLocation, count int32, data []byte) {
		b.ui32Scratch = decodeUI32(b.ui32Scratch[:0], data)
		fn(b.device, loc, count, b.ui32Scratch)
	}
}

// uniformSetters maps every supported (type, width, height) to a native
// entry point. Shaders resolve their setters once, when linked.
var uniformSetters = map[uniformKey]uniformSetter{
	{metadata.UniformTypeF32, 1, 1}: f32Setter(driver.Device.Uniform1fv),
	{metadata.UniformTypeF32, 2, 1}: f32Setter(driver.Device.Uniform2fv),
	{metadata.UniformTypeF32, 3, 1}: f32Setter(driver.Device.Uniform3fv),
	{metadata.UniformTypeF32, 4, 1}: f32Setter(driver.Device.Uniform4fv),
	{metadata.UniformTypeF32, 2, 2}: f32Setter(driver.Device.UniformMatrix2fv),
	{metadata.UniformTypeF32, 3, 3}: f32Setter(driver.Device.UniformMatrix3fv),
	{metadata.UniformTypeF32, 4, 4}: f32Setter(driver.Device.UniformMatrix4fv),
	{metadata.UniformTypeF32, 2, 3}: f32Setter(driver.Device.UniformMatrix2x3fv),
	{metadata.UniformTypeF32, 3, 2}: f32Setter(driver.Device.UniformMatrix3x2fv),
	{metadata.UniformTypeF32, 2, 4}: f32Setter(driver.Device.UniformMatrix2x4fv),
	{metadata.UniformTypeF32, 4, 2}: f32Setter(driver.Device.UniformMatrix4x2fv),
	{metadata.UniformTypeF32, 3, 4}: f32Setter(driver.Device.UniformMatrix3x4fv),
	{metadata.UniformTypeF32, 4, 3}: f32Setter(driver.Device.UniformMatrix4x3fv),

	{metadata.UniformTypeI32, 1, 1}: i32Setter(driver.Device.Uniform1iv),
	{metadata.UniformTypeI32, 2, 1}: i32Setter(driver.Device.Uniform2iv),
	{metadata.UniformTypeI32, 3, 1}: i32Setter(driver.Device.Uniform3iv),
	{metadata.UniformTypeI32, 4, 1}: i32Setter(driver.Device.Uniform4iv),

	{metadata.UniformTypeUI32, 1, 1}: ui32Setter(driver.Device.Uniform1uiv),
	{metadata.UniformTypeUI32, 2, 1}: ui32Setter(driver.Device.Uniform2uiv),
	{metadata.UniformTypeUI32, 3, 1}: ui32Setter(driver.Device.Uniform3uiv),
	{metadata.UniformTypeUI32, 4, 1}: ui32Setter(driver.Device.Uniform4uiv),

	{metadata.UniformTypeBool, 1, 1}: i32Setter(driver.Device.Uniform1iv),
	{metadata.UniformTypeBool, 2, 1}: i32Setter(driver.Device.Uniform2iv),
	{metadata.UniformTypeBool, 3, 1}: i32Setter(driver.Device.Uniform3iv),
	{metadata.UniformTypeBool, 4, 1}: i32Setter(driver.Device.Uniform4iv),
}

func lookupSetter(u metadata.Uniform) (uniformSetter, error) {
	setter, ok := uniformSetters[uniformKey{u.Type, u.Width, u.Height}]
	if !ok {
		return nil, fmt.Errorf("uniform %s: %w", u, core.ErrUnsupportedUniform)
	}
	return setter, nil
}

func decodeF32(dst []float32, data []byte) []float32 {
	for i := 0; i+4 <= len(data); i += 4 {
		dst = append(dst, stdmath.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
	}
	return dst
}

func decodeI32(dst []int32, data []byte) []int32 {
	for i := 0; i+4 <= len(data); i += 4 {
		dst = append(dst, int32(binary.LittleEndian.Uint32(data[i:])))
	}
	return dst
}

func decodeUI32(dst []uint32, data []byte) []uint32 {
	for i := 0; i+4 <= len(data); i += 4 {
		dst = append(dst, binary.LittleEndian.Uint32(data[i:]))
	}
	return dst
}
