package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader module. */
	ResourceTypeShader
	/** @brief Decoded image, converted to RGBA8. */
	ResourceTypeImage
	/** @brief Wavefront OBJ model. */
	ResourceTypeModel
	/** @brief GLSL source, watched so rebuilds can be reported. */
	ResourceTypeShaderSource
)

func (r ResourceType) String() string {
	switch r {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeShaderSource:
		return "shader-source"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The type of the resource. */
	Type ResourceType
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data: []uint32, *ImageResourceData or *MeshData. */
	Data interface{}
}
