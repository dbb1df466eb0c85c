package components

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
)

type cameraLookup struct {
	camera         *Camera
	referenceCount uint16
}

/**
 * @brief Hands out cameras by name. A camera lives while it is acquired;
 * the default camera always exists and is never counted.
 */
type CameraRegistry struct {
	maxCameraCount int
	cameras        map[string]*cameraLookup
	defaultCamera  *Camera
}

func NewCameraRegistry(maxCameraCount int) (*CameraRegistry, error) {
	if maxCameraCount <= 0 {
		err := fmt.Errorf("camera registry needs room for at least one camera, got %d: %w", maxCameraCount, core.ErrInvalidArgument)
		core.LogError("%s", err)
		return nil, err
	}
	return &CameraRegistry{
		maxCameraCount: maxCameraCount,
		cameras:        make(map[string]*cameraLookup, maxCameraCount),
		defaultCamera:  NewCamera(DEFAULT_CAMERA_NAME),
	}, nil
}

/**
 * @brief Acquires a camera by name, creating it on first use. Internal
 * reference counter is incremented.
 */
func (cr *CameraRegistry) Acquire(name string) (*Camera, error) {
	if name == DEFAULT_CAMERA_NAME {
		return cr.defaultCamera, nil
	}
	lookup, ok := cr.cameras[name]
	if !ok {
		if len(cr.cameras) >= cr.maxCameraCount {
			err := fmt.Errorf("camera registry is full (%d), cannot create `%s`: %w", cr.maxCameraCount, name, core.ErrOutOfBounds)
			core.LogError("%s", err)
			return nil, err
		}
		core.LogDebug("Creating new camera named '%s'...", name)
		lookup = &cameraLookup{camera: NewCamera(name)}
		cr.cameras[name] = lookup
	}
	lookup.referenceCount++
	return lookup.camera, nil
}

/**
 * @brief Releases a camera with the given name. When the counter reaches 0
 * the camera drops its render target and the name is free again.
 */
func (cr *CameraRegistry) Release(name string) {
	if name == DEFAULT_CAMERA_NAME {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	lookup, ok := cr.cameras[name]
	if !ok {
		core.LogWarn("camera `%s` is not registered. Nothing was done.", name)
		return
	}
	lookup.referenceCount--
	if lookup.referenceCount == 0 {
		lookup.camera.Release()
		lookup.camera.Reset()
		delete(cr.cameras, name)
	}
}

func (cr *CameraRegistry) GetDefault() *Camera {
	return cr.defaultCamera
}

func (cr *CameraRegistry) Count() int {
	return len(cr.cameras)
}

// Shutdown releases every camera regardless of its reference count.
func (cr *CameraRegistry) Shutdown() {
	for name, lookup := range cr.cameras {
		lookup.camera.Release()
		delete(cr.cameras, name)
	}
	cr.defaultCamera.Release()
}
