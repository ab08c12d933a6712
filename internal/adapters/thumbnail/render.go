package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	BaseSize    = 48
	RetinaSize  = 96
	jpegQuality = 80
)

// Render decodes an avatar and returns the base and double-resolution JPEG
// encodings of its centered square.
func Render(data []byte) (base, retina []byte, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	src := centerSquare(img.Bounds())
	if src.Empty() {
		return nil, nil, fmt.Errorf("empty image")
	}
	if base, err = encode(img, src, BaseSize); err != nil {
		return nil, nil, err
	}
	if retina, err = encode(img, src, RetinaSize); err != nil {
		return nil, nil, err
	}
	return base, retina, nil
}

func centerSquare(b image.Rectangle) image.Rectangle {
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

func encode(img image.Image, src image.Rectangle, size int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	// JPEG has no alpha; transparent avatars land on white
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode %dpx: %w", size, err)
	}
	return buf.Bytes(), nil
}
