package ocr

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// thresholdLevel is the binarization cutoff applied after contrast
// normalization. Gray values above it become white.
const thresholdLevel = 160

// Preprocessor normalizes an input image before recognition: grayscale,
// size normalization, contrast stretch, light denoise and binarization.
// Fast mode skips the mid-tier upscale, the contrast stretch and the
// denoise pass.
type Preprocessor struct {
	fastMode bool
	debugDir string
}

// NewPreprocessor creates a new image preprocessor. debugDir enables dumps
// of the preprocessed image when non-empty.
func NewPreprocessor(fastMode bool, debugDir string) *Preprocessor {
	return &Preprocessor{
		fastMode: fastMode,
		debugDir: debugDir,
	}
}

func init() {
	// Formats without a std decoder; jpeg/png/gif register themselves.
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("tiff", "II*\x00", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("tiff", "MM\x00*", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("webp", "RIFF????WEBPVP8", webp.Decode, webp.DecodeConfig)
}

// PreprocessFile decodes and normalizes an image from disk.
func (p *Preprocessor) PreprocessFile(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return p.Preprocess(src), nil
}

// Preprocess applies the normalization pipeline. The input is never
// modified.
func (p *Preprocessor) Preprocess(src image.Image) *image.Gray {
	img := toGray(src)
	img = p.resize(img)
	if !p.fastMode {
		img = autocontrast(img)
		img = medianFilter(img)
	}
	return threshold(img, thresholdLevel)
}

// resize normalizes the image size: small scans are upscaled so tesseract
// has enough pixels per glyph, oversized photos are downscaled for speed.
func (p *Preprocessor) resize(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	maxDim := w
	if h > maxDim {
		maxDim = h
	}

	var scale float64
	switch {
	case maxDim == 0:
		return img
	case maxDim < 1000:
		scale = 2.0
	case maxDim < 1400 && !p.fastMode:
		scale = 1.5
	case maxDim > 3000:
		scale = 2000.0 / float64(maxDim)
	default:
		return img
	}

	dst := image.NewGray(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SaveDebugImage writes the preprocessed image next to the configured debug
// directory. Failures only log; the dump is diagnostics, not output.
func (p *Preprocessor) SaveDebugImage(img image.Image, sourcePath string) {
	if p.debugDir == "" {
		return
	}
	if err := os.MkdirAll(p.debugDir, 0o755); err != nil {
		log.Printf("Warning: create debug dir: %v", err)
		return
	}
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	out := filepath.Join(p.debugDir, "pre_"+stem+".png")

	f, err := os.Create(out)
	if err != nil {
		log.Printf("Warning: save debug image: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Printf("Warning: encode debug image: %v", err)
	}
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// autocontrast stretches the histogram so the darkest pixel maps to 0 and
// the brightest to 255.
func autocontrast(img *image.Gray) *image.Gray {
	lo, hi := uint8(255), uint8(0)
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo >= hi {
		return img
	}

	out := image.NewGray(img.Bounds())
	span := float64(hi - lo)
	for i, v := range img.Pix {
		out.Pix[i] = uint8(float64(v-lo) / span * 255.0)
	}
	return out
}

// medianFilter applies a 3x3 median for light denoising.
func medianFilter(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return img
	}

	out := image.NewGray(b)
	copy(out.Pix, img.Pix)
	var window [9]int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[n] = int(img.GrayAt(b.Min.X+x+dx, b.Min.Y+y+dy).Y)
					n++
				}
			}
			s := window[:]
			sort.Ints(s)
			out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: uint8(s[4])})
		}
	}
	return out
}

func threshold(img *image.Gray, level uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		if v > level {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// Rotate turns the image clockwise by deg degrees (90, 180 or 270) to undo
// the detected page rotation. Any other value returns the input unchanged.
func Rotate(img *image.Gray, deg int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch deg {
	case 90:
		// OSD reports the clockwise angle needed to right the page, so the
		// correction itself is clockwise too
		out := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray(h-1-y, x, img.GrayAt(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	case 180:
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray(w-1-x, h-1-y, img.GrayAt(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	case 270:
		out := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.SetGray(y, w-1-x, img.GrayAt(b.Min.X+x, b.Min.Y+y))
			}
		}
		return out
	}
	return img
}
