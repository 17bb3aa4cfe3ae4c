package metadata

/**
 * @brief A structure to hold image resource data.
 * Pixels are always tightly packed RGBA8.
 */
type ImageResourceData struct {
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

func (i *ImageResourceData) Size() uint64 {
	return uint64(len(i.Pixels))
}

// SolidImage returns a 1x1 opaque RGBA image of the given grey level in [0,1].
func SolidImage(level float32) *ImageResourceData {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	v := uint8(level*255 + 0.5)
	return &ImageResourceData{
		ChannelCount: 4,
		Width:        1,
		Height:       1,
		Pixels:       []uint8{v, v, v, 255},
	}
}

// MaterialLevels are the grey levels of the generated material images.
var MaterialLevels = []float32{1.0, 0.8, 0.6, 0.4}

// DefaultMaterialImages builds one solid image per entry of MaterialLevels.
func DefaultMaterialImages() []*ImageResourceData {
	images := make([]*ImageResourceData, len(MaterialLevels))
	for i, level := range MaterialLevels {
		images[i] = SolidImage(level)
	}
	return images
}
