package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/gogpu/restir"
)

// toneMap maps linear radiance to 8-bit sRGB with the Reinhard operator.
func toneMap(t *restir.Texture) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.Width, t.Height))
	for y := range t.Height {
		for x := range t.Width {
			v := t.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: encode(v[0]),
				G: encode(v[1]),
				B: encode(v[2]),
				A: 255,
			})
		}
	}
	return img
}

func encode(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	c := float64(v) / (1 + float64(v))
	return uint8(math.Round(255 * math.Pow(c, 1/2.2)))
}

// upscale enlarges img by an integer factor with nearest-neighbour
// sampling so that individual pixels stay visible.
func upscale(img *image.NRGBA, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// writeImage encodes img as PNG or TIFF depending on the extension.
func writeImage(name string, img image.Image) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		return png.Encode(f, img)
	case ".tif", ".tiff":
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output format %q", ext)
	}
}
