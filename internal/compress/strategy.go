package compress

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Strategy produces one candidate rewrite of a document.
type Strategy interface {
	Name() string
	Enabled(l Level) bool
	// Apply returns the candidate bytes. report takes the completed fraction
	// of the strategy's own work in [0,1].
	Apply(ctx context.Context, doc *pdfdoc.Document, l Level, report func(float64)) ([]byte, error)
}

// MetadataStrip clears descriptive metadata and rewrites the document with
// a compact layout.
type MetadataStrip struct{}

func (MetadataStrip) Name() string { return "metadata" }

func (MetadataStrip) Enabled(Level) bool { return true }

func (MetadataStrip) Apply(_ context.Context, doc *pdfdoc.Document, l Level, report func(float64)) ([]byte, error) {
	out, err := pdfdoc.StripMetadata(doc.Bytes, l.StripTitle())
	if err != nil {
		return nil, err
	}
	report(1)
	return out, nil
}

// Rasterize replaces every page by a JPEG of its rendering on a page of the
// original size. The text layer is lost.
type Rasterize struct {
	Rasterizer raster.Rasterizer
}

func (Rasterize) Name() string { return "rasterize" }

func (Rasterize) Enabled(l Level) bool { return l.Settings().Rasterize }

func (s Rasterize) Apply(ctx context.Context, doc *pdfdoc.Document, l Level, report func(float64)) ([]byte, error) {
	set := l.Settings()

	src, err := s.Rasterizer.Open(doc.Bytes)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	n := doc.PageCount
	pages := make([]pdfdoc.ImagePage, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, _, err := src.Render(i, set.Scale)
		if err != nil {
			return nil, &models.PageError{Page: i, Err: err}
		}
		data, err := raster.EncodeJPEG(img, set.Quality)
		if err != nil {
			return nil, &models.PageError{Page: i, Err: err}
		}
		// The renderer reports whole points; the page keeps its exact size.
		size := doc.Pages[i-1].Display()
		pages = append(pages, pdfdoc.ImagePage{Image: data, W: size.W, H: size.H, Scale: 1})
		report(float64(i) / float64(n))
	}

	out, err := pdfdoc.ImportImages(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble pages: %w", err)
	}
	return pdfdoc.StripMetadata(out, true)
}
