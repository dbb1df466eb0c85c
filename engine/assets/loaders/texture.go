package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/prism/engine/core"
)

/**
 * @brief Decoded pixels, tightly packed RGBA8 rows starting at the top
 * unless FlipY was requested.
 */
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
	Format string
}

type TextureLoader struct {
	// puts the first row at the bottom, as GL samples it
	FlipY bool
}

func (tl *TextureLoader) Load(path string) (*Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		err = fmt.Errorf("failed to decode image %s: %w", path, err)
		core.LogError("%s", err)
		return nil, err
	}

	data := ToRGBA8(img, tl.FlipY)
	data.Format = format
	return &Resource{
		Name:     path,
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

// ToRGBA8 converts any image to packed RGBA8.
func ToRGBA8(img image.Image, flipY bool) *ImageData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]byte, len(rgba.Pix))
	copy(pixels, rgba.Pix)
	if flipY {
		row := 4 * w
		for y := 0; y < h/2; y++ {
			top := pixels[y*row : (y+1)*row]
			bottom := pixels[(h-1-y)*row : (h-y)*row]
			for i := range top {
				top[i], bottom[i] = bottom[i], top[i]
			}
		}
	}
	return &ImageData{Width: uint32(w), Height: uint32(h), Pixels: pixels}
}
