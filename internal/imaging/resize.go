// Package imaging holds small decode/resize helpers shared by the PAD
// engine and the face-detector adapter, both of which need a fixed
// triangular-filter resize and an RGB/gray conversion.
package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Decode decodes a JPEG or PNG byte slice into an image.Image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// ToGray converts any image.Image to 8-bit luminance.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// ResizeGray resizes a grayscale image to w x h using a triangular
// (bilinear/tent) filter, matching the image crate's FilterType::Triangle
// the original prototype relied on for both the phash ring and the
// flicker downscale.
func ResizeGray(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// ToRGB converts any image.Image to an 8-bit RGBA image; the source's
// alpha is kept as decoded.
func ToRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// ResizeRGB resizes an RGBA image to w x h using a triangular filter.
func ResizeRGB(src *image.RGBA, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
