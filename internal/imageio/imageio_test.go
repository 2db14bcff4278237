package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"xdao.co/pxmark/lsb"
)

func testImage() Image {
	img := Image{Width: 7, Height: 5, Pixels: make(lsb.PixelBuffer, 7*5*3)}
	for i := range img.Pixels {
		img.Pixels[i] = uint8(i * 37)
	}
	return img
}

func TestEncodeDecode_Lossless(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatBMP} {
		t.Run(format, func(t *testing.T) {
			want := testImage()
			var buf bytes.Buffer
			if err := Encode(&buf, want, format); err != nil {
				t.Fatalf("Encode: %v", err)
			}
			got, gotFormat, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if gotFormat != format {
				t.Fatalf("format = %q, want %q", gotFormat, format)
			}
			if got.Width != want.Width || got.Height != want.Height || !bytes.Equal(got.Pixels, want.Pixels) {
				t.Fatalf("samples changed through %s", format)
			}
		})
	}
}

func TestDecode_DropsAlphaWithoutPremultiplying(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 201, G: 33, B: 7, A: 10})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	got, _, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got.Pixels, []byte{201, 33, 7}) {
		t.Fatalf("pixels = %v", got.Pixels)
	}
}

func TestFromImage_Paletted(t *testing.T) {
	pal := color.Palette{color.RGBA{1, 2, 3, 255}, color.RGBA{250, 251, 252, 255}}
	src := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	src.SetColorIndex(1, 0, 1)
	got := FromImage(src)
	if !bytes.Equal(got.Pixels, []byte{1, 2, 3, 250, 251, 252}) {
		t.Fatalf("pixels = %v", got.Pixels)
	}
}

func TestEncode_Errors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, testImage(), "jpeg"); err == nil {
		t.Fatalf("expected error for lossy format")
	}
	bad := Image{Width: 2, Height: 2, Pixels: make(lsb.PixelBuffer, 5)}
	if err := Encode(&buf, bad, FormatPNG); err == nil {
		t.Fatalf("expected error for short pixel buffer")
	}
}

func TestFormatFromPath(t *testing.T) {
	if f, err := FormatFromPath("out/Art.PNG"); err != nil || f != FormatPNG {
		t.Fatalf("FormatFromPath png = %q, %v", f, err)
	}
	if f, err := FormatFromPath("art.bmp"); err != nil || f != FormatBMP {
		t.Fatalf("FormatFromPath bmp = %q, %v", f, err)
	}
	if _, err := FormatFromPath("art.jpg"); err == nil {
		t.Fatalf("expected error for jpg")
	}
}
