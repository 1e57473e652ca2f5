// Package raster renders PDF pages to images with MuPDF and encodes images
// for embedding or export.
package raster

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gen2brain/go-fitz"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
)

// BaseDPI is the resolution at which one PDF point is one pixel.
const BaseDPI = 72.0

// Rasterizer opens documents for rendering.
type Rasterizer interface {
	Open(src []byte) (Source, error)
}

// Source is an opened document. Pages are 1-based.
type Source interface {
	NumPages() int
	// Render draws page at scale and returns the image together with the
	// unscaled page size in whole points, rotation applied.
	Render(page int, scale float64) (image.Image, layout.Size, error)
	Close() error
}

// Fitz is the MuPDF backed Rasterizer.
type Fitz struct{}

// NewFitz returns the default Rasterizer.
func NewFitz() *Fitz { return &Fitz{} }

// Open loads src into MuPDF. A document MuPDF refuses for want of a password
// is decrypted with a blank credential and loaded once more.
func (Fitz) Open(src []byte) (Source, error) {
	doc, err := fitz.NewFromMemory(src)
	if errors.Is(err, fitz.ErrNeedsPassword) {
		slog.Debug("Renderer needs a password, decrypting with a blank credential.")
		plain, derr := pdfdoc.Decrypt(src)
		if derr != nil {
			return nil, fmt.Errorf("failed to open document for rendering: %w", derr)
		}
		doc, err = fitz.NewFromMemory(plain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document for rendering: %w", err)
	}
	return &fitzSource{doc: doc}, nil
}

type fitzSource struct {
	doc *fitz.Document
}

func (s *fitzSource) NumPages() int { return s.doc.NumPage() }

func (s *fitzSource) Render(page int, scale float64) (image.Image, layout.Size, error) {
	if page < 1 || page > s.doc.NumPage() {
		return nil, layout.Size{}, fmt.Errorf("page %d out of range 1-%d", page, s.doc.NumPage())
	}
	if scale <= 0 {
		return nil, layout.Size{}, fmt.Errorf("invalid scale %v", scale)
	}

	bound, err := s.doc.Bound(page - 1)
	if err != nil {
		return nil, layout.Size{}, fmt.Errorf("failed to measure page: %w", err)
	}
	img, err := s.doc.ImageDPI(page-1, BaseDPI*scale)
	if err != nil {
		return nil, layout.Size{}, fmt.Errorf("failed to render page: %w", err)
	}
	return img, layout.Size{W: float64(bound.Dx()), H: float64(bound.Dy())}, nil
}

func (s *fitzSource) Close() error { return s.doc.Close() }
