package assets

import "github.com/spaghettifunk/prism/engine/assets/loaders"

type Loader interface {
	Load(path string) (*loaders.Resource, error)
}
