//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the testbed binary into bin/.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "prism"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Validates every GLSL stage under assets/shaders, if glslangValidator is installed.
func (Build) Shaders() error {
	return validateShaders()
}
