package ocr

import (
	"image"
	"image/color"
	"testing"
)

func grayImage(w, h int, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

func TestThresholdBinarizes(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: thresholdLevel})
	img.SetGray(1, 0, color.Gray{Y: thresholdLevel + 1})

	out := threshold(img, thresholdLevel)
	if out.GrayAt(0, 0).Y != 0 {
		t.Errorf("value at threshold should go black, got %d", out.GrayAt(0, 0).Y)
	}
	if out.GrayAt(1, 0).Y != 255 {
		t.Errorf("value above threshold should go white, got %d", out.GrayAt(1, 0).Y)
	}
}

func TestAutocontrastStretchesRange(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.Pix[0] = 100
	img.Pix[1] = 150
	img.Pix[2] = 200

	out := autocontrast(img)
	if out.Pix[0] != 0 {
		t.Errorf("darkest pixel = %d, want 0", out.Pix[0])
	}
	if out.Pix[2] != 255 {
		t.Errorf("brightest pixel = %d, want 255", out.Pix[2])
	}
}

func TestAutocontrastFlatImageUnchanged(t *testing.T) {
	img := grayImage(4, 4, 128)
	out := autocontrast(img)
	for i, v := range out.Pix {
		if v != 128 {
			t.Fatalf("pixel %d changed to %d on a flat image", i, v)
		}
	}
}

func TestResizeTiers(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		fast  bool
		wantW int
	}{
		{"small doubles", 400, 600, false, 800},
		{"medium upscales", 1200, 900, false, 1800},
		{"medium fast untouched", 1200, 900, true, 1200},
		{"normal untouched", 2000, 1500, false, 2000},
		{"huge shrinks to 2000", 4000, 2000, false, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPreprocessor(tt.fast, "")
			out := p.resize(grayImage(tt.w, tt.h, 255))
			if got := out.Bounds().Dx(); got != tt.wantW {
				t.Errorf("width = %d, want %d", got, tt.wantW)
			}
		})
	}
}

func TestPreprocessOutputIsBinary(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 1200, 40))
	for i := range src.Pix {
		src.Pix[i] = uint8(i % 251)
	}

	out := NewPreprocessor(false, "").Preprocess(src)
	for i, v := range out.Pix {
		if v != 0 && v != 255 {
			t.Fatalf("pixel %d = %d, preprocessed image must be binary", i, v)
		}
	}
}

func TestRotateDimensionsAndRoundTrip(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 10)
	}

	r90 := Rotate(img, 90)
	if r90.Bounds().Dx() != 2 || r90.Bounds().Dy() != 3 {
		t.Fatalf("90 degree rotation bounds = %v", r90.Bounds())
	}

	r180 := Rotate(Rotate(img, 180), 180)
	for i := range img.Pix {
		if r180.Pix[i] != img.Pix[i] {
			t.Fatalf("double 180 rotation should round-trip, pixel %d differs", i)
		}
	}

	if got := Rotate(img, 45); got != img {
		t.Error("unsupported angle should return the input unchanged")
	}
}

func TestRotateIsClockwise(t *testing.T) {
	// [A B] rotated 90 clockwise reads top-to-bottom as A then B.
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 10}) // A
	img.SetGray(1, 0, color.Gray{Y: 20}) // B

	r90 := Rotate(img, 90)
	if r90.GrayAt(0, 0).Y != 10 || r90.GrayAt(0, 1).Y != 20 {
		t.Errorf("90 degree rotation is not clockwise: got (%d, %d), want (10, 20)",
			r90.GrayAt(0, 0).Y, r90.GrayAt(0, 1).Y)
	}

	// and 270 clockwise is the inverse, reading B then A
	r270 := Rotate(img, 270)
	if r270.GrayAt(0, 0).Y != 20 || r270.GrayAt(0, 1).Y != 10 {
		t.Errorf("270 degree rotation direction wrong: got (%d, %d), want (20, 10)",
			r270.GrayAt(0, 0).Y, r270.GrayAt(0, 1).Y)
	}

	// 90 then 270 must round-trip
	rt := Rotate(r90, 270)
	if rt.GrayAt(0, 0).Y != 10 || rt.GrayAt(1, 0).Y != 20 {
		t.Error("90 then 270 rotation should round-trip")
	}
}
