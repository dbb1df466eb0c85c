package driver

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"golang.org/x/exp/slices"
)

// Factory opens a device. The calling thread must own the native context,
// if the driver has one.
type Factory func() (Device, error)

var (
	registryMu sync.Mutex
	factories  = make(map[string]Factory)
)

// Register makes a driver available by name. Drivers call it from init; a
// later registration with the same name replaces the earlier one.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := factories[name]; ok {
		core.LogWarn("driver `%s` replaced", name)
	}
	factories[name] = factory
}

// Available returns the registered driver names, sorted.
func Available() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Open creates a device with the named driver.
func Open(name string) (Device, error) {
	registryMu.Lock()
	factory, ok := factories[name]
	registryMu.Unlock()
	if !ok {
		err := fmt.Errorf("driver `%s` (available: %v): %w", name, Available(), core.ErrDriverNotFound)
		core.LogError("%s", err)
		return nil, err
	}
	dev, err := factory()
	if err != nil {
		err = fmt.Errorf("failed to open driver `%s`: %w", name, err)
		core.LogError("%s", err)
		return nil, err
	}
	core.LogInfo("opened graphics driver `%s`", name)
	return dev, nil
}
