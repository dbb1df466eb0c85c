package loaders

/** @brief Kind of file found under the asset root. */
type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeShaderSource
	ResourceTypeImage
	ResourceTypeMaterial
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeShaderSource:
		return "shader-source"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMaterial:
		return "material"
	}
	return "none"
}

/**
 * @brief A loaded asset. Data holds the loader specific payload.
 */
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     interface{}
}
