//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the tests of every package that does not need a window.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "-race",
		"./engine/core/...",
		"./engine/containers/...",
		"./engine/math/...",
		"./engine/config/...",
		"./engine/assets/...",
		"./engine/renderer/...",
	), withStream())
	return err
}

// Runs the renderer tests against the headless driver.
func (Test) Renderer() error {
	_, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./engine/renderer/..."), withStream())
	return err
}
