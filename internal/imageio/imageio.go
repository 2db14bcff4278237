// Package imageio converts image files to and from the RGB sample buffers the
// watermark codec works on.
//
// Decoding accepts any registered format; encoding is limited to lossless
// formats because lossy compression rewrites the low bits that carry the
// watermark.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"xdao.co/pxmark/lsb"
)

// Formats that Encode writes.
const (
	FormatPNG = "png"
	FormatBMP = "bmp"
)

// Image is a decoded picture as row-major R, G, B samples. Alpha is dropped.
type Image struct {
	Width  int
	Height int
	Pixels lsb.PixelBuffer
}

// Decode reads an image and flattens it to RGB. The returned format is the
// name the decoder registered under.
func Decode(r io.Reader) (Image, string, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return Image{}, "", fmt.Errorf("imageio: decode: %w", err)
	}
	return FromImage(src), format, nil
}

// FromImage flattens src to RGB samples using non-premultiplied color, so
// translucent pixels keep their stored channel values.
func FromImage(src image.Image) Image {
	b := src.Bounds()
	img := Image{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: make(lsb.PixelBuffer, 0, b.Dx()*b.Dy()*3),
	}
	if n, ok := src.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				img.Pixels = append(img.Pixels, row[i], row[i+1], row[i+2])
			}
		}
		return img
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			img.Pixels = append(img.Pixels, c.R, c.G, c.B)
		}
	}
	return img
}

// ToImage returns an opaque image holding img's samples.
func ToImage(img Image) (*image.NRGBA, error) {
	if img.Width < 0 || img.Height < 0 || len(img.Pixels) != img.Width*img.Height*3 {
		return nil, fmt.Errorf("imageio: %dx%d image needs %d samples, have %d",
			img.Width, img.Height, img.Width*img.Height*3, len(img.Pixels))
	}
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, j := 0, 0; i < len(img.Pixels); i, j = i+3, j+4 {
		out.Pix[j] = img.Pixels[i]
		out.Pix[j+1] = img.Pixels[i+1]
		out.Pix[j+2] = img.Pixels[i+2]
		out.Pix[j+3] = 0xff
	}
	return out, nil
}

// Encode writes img as png or bmp.
func Encode(w io.Writer, img Image, format string) error {
	dst, err := ToImage(img)
	if err != nil {
		return err
	}
	switch format {
	case FormatPNG:
		return png.Encode(w, dst)
	case FormatBMP:
		return bmp.Encode(w, dst)
	default:
		return fmt.Errorf("imageio: cannot write %q; use png or bmp", format)
	}
}

// FormatFromPath picks an output format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return FormatPNG, nil
	case ".bmp":
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("imageio: %q is not a lossless output format; use .png or .bmp", ext)
	}
}
