package core

import (
	"errors"
)

var (
	ErrUnknown = errors.New("unknown")

	// construction
	ErrInvalidUniform  = errors.New("invalid uniform declaration")
	ErrInvalidShader   = errors.New("invalid shader metadata")
	ErrInvalidPipeline = errors.New("invalid pipeline state")
	ErrInvalidArgument = errors.New("invalid argument")

	// usage
	ErrUniformNotFound   = errors.New("uniform not found")
	ErrOutOfBounds       = errors.New("out of bounds")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrUndefinedResource = errors.New("resource is undefined")
	ErrAlreadyLocked     = errors.New("resource is already locked")
	ErrNotLocked         = errors.New("resource is not locked")
	ErrAccessDenied      = errors.New("access mode does not allow the operation")
	ErrSizeMismatch      = errors.New("attachment sizes do not match")
	ErrMissingAttribute  = errors.New("vertex attribute not mapped")
	ErrMissingSampler    = errors.New("texture has no sampler")
	ErrInvalidDraw       = errors.New("invalid draw call")

	// backend
	ErrBackendSync        = errors.New("backend synchronization failed")
	ErrDriverNotFound     = errors.New("graphics driver not registered")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrUnsupportedUniform = errors.New("unsupported uniform shape")
)
