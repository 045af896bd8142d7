package core

import (
	"bytes"
	"image"
	"image/png"

	nativewebp "github.com/HugoSmits86/nativewebp"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

func CompressPNG(input []byte) ([]byte, error) {
	img, err := DecodeImage(input)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes a PNG, JPEG, or GIF image, honouring EXIF orientation where present.
func DecodeImage(input []byte) (image.Image, error) {
	return imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
}

// EncodeWebPPreview scales img down to the given width (preserving aspect ratio) & encodes it as WebP.
// Images already narrower than width are encoded as-is.
func EncodeWebPPreview(img image.Image, width int) ([]byte, error) {
	if width > 0 && img.Bounds().Dx() > width {
		// NearestNeighbor is fine since we’re only scaling down, never up.
		img = imaging.Resize(img, width, 0, imaging.NearestNeighbor)
	}
	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, &nativewebp.Options{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PerceptualHash returns the 64-bit perception hash of img, formatted as "p:<hex>".
func PerceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", err
	}
	return hash.ToString(), nil
}
