package metadata

import (
	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/math"
)

type FilterMode uint8

const (
	FilterNearest FilterMode = iota
	FilterLinear
)

// MipFilterMode selects between mip levels; MipFilterNone samples level 0.
type MipFilterMode uint8

const (
	MipFilterNone MipFilterMode = iota
	MipFilterNearest
	MipFilterLinear
)

type AddressMode uint8

const (
	AddressRepeat AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
)

type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

/**
 * @brief Sampler state. Every setter marks the sampler dirty.
 */
type SamplerConfig struct {
	Name          string
	MinFilter     FilterMode
	MagFilter     FilterMode
	MipFilter     MipFilterMode
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MaxAnisotropy float32
	// CompareEnabled turns the sampler into a depth comparison sampler.
	CompareEnabled bool
	Compare        CompareFunc
	MinLOD         float32
	MaxLOD         float32
	BorderColor    math.Vec4
}

// DefaultSamplerConfig is trilinear with repeat addressing.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		MinFilter:     FilterLinear,
		MagFilter:     FilterLinear,
		MipFilter:     MipFilterLinear,
		AddressU:      AddressRepeat,
		AddressV:      AddressRepeat,
		AddressW:      AddressRepeat,
		MaxAnisotropy: 1,
		Compare:       CompareLessEqual,
		MinLOD:        -1000,
		MaxLOD:        1000,
	}
}

type Sampler struct {
	FrontendData

	config SamplerConfig
}

func NewSampler(cfg SamplerConfig) *Sampler {
	if cfg.Name == "" {
		cfg.Name = "sampler-" + uuid.NewString()
	}
	if cfg.MaxAnisotropy < 1 {
		cfg.MaxAnisotropy = 1
	}
	return &Sampler{
		FrontendData: newFrontendData(),
		config:       cfg,
	}
}

func (s *Sampler) Name() string {
	return s.config.Name
}

// Config returns a copy of the current state.
func (s *Sampler) Config() SamplerConfig {
	return s.config
}

func (s *Sampler) SetFilter(min, mag FilterMode, mip MipFilterMode) {
	s.config.MinFilter, s.config.MagFilter, s.config.MipFilter = min, mag, mip
	s.MarkDirty()
}

func (s *Sampler) SetAddressMode(u, v, w AddressMode) {
	s.config.AddressU, s.config.AddressV, s.config.AddressW = u, v, w
	s.MarkDirty()
}

func (s *Sampler) SetMaxAnisotropy(value float32) {
	s.config.MaxAnisotropy = math.Max(value, 1)
	s.MarkDirty()
}

func (s *Sampler) SetCompare(enabled bool, fn CompareFunc) {
	s.config.CompareEnabled, s.config.Compare = enabled, fn
	s.MarkDirty()
}

func (s *Sampler) SetLODRange(min, max float32) {
	s.config.MinLOD, s.config.MaxLOD = min, max
	s.MarkDirty()
}

func (s *Sampler) SetBorderColor(color math.Vec4) {
	s.config.BorderColor = color
	s.MarkDirty()
}

func (s *Sampler) Release() {
	s.release()
}
