package imageload

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

// LoadError reports an image that is missing, unreadable, corrupt or in an
// unsupported format.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load image: %v", e.Err)
	}
	return fmt.Sprintf("failed to load image %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Open reads and decodes the image file at path.
func Open(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return DecodeNamed(path, data)
}

func Decode(data []byte) (image.Image, error) {
	return DecodeNamed("", data)
}

// DecodeNamed decodes data, using name only for error reporting.
func DecodeNamed(name string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &LoadError{Path: name, Err: xerrors.New("empty image data")}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Path: name, Err: err}
	}
	return img, nil
}

type ColorMode string

const (
	ColorModeKeep ColorMode = ""
	ColorModeRGB  ColorMode = "rgb"
	ColorModeRGBA ColorMode = "rgba"
	ColorModeGray ColorMode = "gray"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorModeKeep, ColorModeRGB, ColorModeRGBA, ColorModeGray:
		return m, nil
	case "l":
		return ColorModeGray, nil
	default:
		return "", xerrors.Errorf("unknown color mode: %s", s)
	}
}

// Convert returns img in the requested color mode. ColorModeRGB drops the
// alpha channel and keeps the straight color values, so transparent pixels
// keep whatever color they carry.
func Convert(img image.Image, mode ColorMode) image.Image {
	bounds := img.Bounds()
	switch mode {
	case ColorModeRGB:
		dst := image.NewRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				offset := dst.PixOffset(x, y)
				dst.Pix[offset] = c.R
				dst.Pix[offset+1] = c.G
				dst.Pix[offset+2] = c.B
				dst.Pix[offset+3] = 255
			}
		}
		return dst
	case ColorModeRGBA:
		if rgba, ok := img.(*image.RGBA); ok {
			return rgba
		}
		dst := image.NewRGBA(bounds)
		draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
		return dst
	case ColorModeGray:
		if gray, ok := img.(*image.Gray); ok {
			return gray
		}
		dst := image.NewGray(bounds)
		draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
		return dst
	default:
		return img
	}
}

type Filter string

const (
	FilterNearest    Filter = "nearest"
	FilterBilinear   Filter = "bilinear"
	FilterCatmullRom Filter = "catmullrom"
	FilterLanczos    Filter = "lanczos"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterNearest, FilterBilinear, FilterCatmullRom, FilterLanczos:
		return f, nil
	case "bicubic":
		return FilterCatmullRom, nil
	case "antialias", "":
		return FilterLanczos, nil
	default:
		return "", xerrors.Errorf("unknown resample filter: %s", s)
	}
}

// ResizeToMatch resamples img to size. The result's bounds start at the
// origin. img is returned unchanged when it already has that size.
func ResizeToMatch(img image.Image, size image.Point, filter Filter) image.Image {
	if img.Bounds().Size() == size {
		return img
	}
	if size.X <= 0 || size.Y <= 0 {
		return image.NewRGBA(image.Rectangle{})
	}

	if filter == FilterLanczos || filter == "" {
		return resize.Resize(uint(size.X), uint(size.Y), img, resize.Lanczos3)
	}

	var interpolator draw.Interpolator
	switch filter {
	case FilterNearest:
		interpolator = draw.NearestNeighbor
	case FilterBilinear:
		interpolator = draw.BiLinear
	default:
		interpolator = draw.CatmullRom
	}

	dst := image.NewRGBA(image.Rectangle{Max: size})
	interpolator.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
