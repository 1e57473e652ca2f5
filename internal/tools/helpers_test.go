package tools

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster/rastertest"
)

func newTestToolbox() *Toolbox { return New(&rastertest.Fake{}) }

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 20, G: 40, B: 200, A: uint8(128 + x%128)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

// pageWidths returns the page widths of a PDF, which identify pdftest pages.
func pageWidths(t *testing.T, src []byte) []float64 {
	t.Helper()
	doc, err := pdfdoc.Open(src, pdfdoc.Credentials{})
	if err != nil {
		t.Fatalf("output unreadable: %v", err)
	}
	ws := make([]float64, len(doc.Pages))
	for i, p := range doc.Pages {
		ws[i] = p.W
	}
	return ws
}
