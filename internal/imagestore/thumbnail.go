package imagestore

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// ProfileThumbnailSize bounds both sides of a stored profile picture
const ProfileThumbnailSize = 125

// Thumbnail returns a Transform that scales an image down to fit within
// maxW x maxH, keeping its aspect ratio, and re-encodes it in its own format.
// Images already inside the bounds are re-encoded at their original size.
func Thumbnail(maxW, maxH int) Transform {
	return func(data []byte, ext string) ([]byte, error) {
		src, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}

		w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxW, maxH)
		var out image.Image = src
		if w != src.Bounds().Dx() || h != src.Bounds().Dy() {
			dst := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
			out = dst
		}

		var buf bytes.Buffer
		switch format {
		case "jpeg":
			err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90})
		case "png":
			err = png.Encode(&buf, out)
		case "gif":
			err = gif.Encode(&buf, out, nil)
		default:
			err = fmt.Errorf("unsupported image format %q", format)
		}
		if err != nil {
			return nil, fmt.Errorf("encode thumbnail: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// fitWithin scales w x h down so both sides fit the bounds; it never upscales
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH > h*maxW {
		nh := h * maxW / w
		return maxW, max(nh, 1)
	}
	nw := w * maxH / h
	return max(nw, 1), maxH
}

// Placeholder renders the default profile picture as a JPEG
func Placeholder() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, ProfileThumbnailSize, ProfileThumbnailSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
