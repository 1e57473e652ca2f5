// Package rastertest provides a Rasterizer that needs no renderer, for tests
// of code built on top of package raster.
package rastertest

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"slices"
	"sync"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// ErrRender is returned for the page a Fake is told to fail on.
var ErrRender = errors.New("render failed")

// Fake renders every page as a flat image of page size times scale, reading
// page sizes with pdfdoc. Like MuPDF it reports page sizes truncated to
// whole points.
type Fake struct {
	// FailAt makes rendering of this 1-based page fail.
	FailAt int
	// OpenErr makes Open fail.
	OpenErr error
	// Cancel is called when page CancelAt starts rendering.
	CancelAt int
	Cancel   func()

	mu       sync.Mutex
	rendered []int
}

// Rendered lists the pages rendered so far, in order.
func (f *Fake) Rendered() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rendered)
}

func (f *Fake) Open(src []byte) (raster.Source, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	doc, err := pdfdoc.Open(src, pdfdoc.Credentials{})
	if err != nil {
		return nil, err
	}
	return &source{f: f, pages: doc.Pages}, nil
}

type source struct {
	f     *Fake
	pages []layout.Page
}

func (s *source) NumPages() int { return len(s.pages) }

func (s *source) Render(page int, scale float64) (image.Image, layout.Size, error) {
	s.f.mu.Lock()
	s.f.rendered = append(s.f.rendered, page)
	s.f.mu.Unlock()

	if page == s.f.CancelAt && s.f.Cancel != nil {
		s.f.Cancel()
	}
	if page == s.f.FailAt {
		return nil, layout.Size{}, ErrRender
	}

	size := s.pages[page-1].Display()
	w, h := max(1, int(size.W*scale)), max(1, int(size.H*scale))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{90, 90, 200, 255}), image.Point{}, draw.Src)
	return img, layout.Size{W: math.Trunc(size.W), H: math.Trunc(size.H)}, nil
}

func (s *source) Close() error { return nil }
