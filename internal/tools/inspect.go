package tools

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Thumbnail rendering parameters.
const (
	ThumbnailScale   = 0.5
	ThumbnailQuality = 0.7
)

// Inspection summarises an uploaded document.
type Inspection struct {
	Name      string
	Size      int64
	PageCount int
	Pages     []layout.Page
	Encrypted bool
	Warnings  []string
	// Thumbnail is a JPEG of the first page; nil when rendering failed.
	Thumbnail []byte
}

// Inspect opens src and renders a first-page preview. A preview failure is
// reported as a warning.
func (t *Toolbox) Inspect(ctx context.Context, src models.File) (*Inspection, error) {
	doc, err := openPDF(src)
	if err != nil {
		return nil, err
	}
	in := &Inspection{
		Name:      src.Name,
		Size:      int64(len(src.Data)),
		PageCount: doc.PageCount,
		Pages:     doc.Pages,
		Encrypted: doc.Encrypted,
		Warnings:  doc.Warnings,
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	thumb, err := t.thumbnail(doc.Bytes)
	if err != nil {
		t.log.Debug("Preview rendering failed.", "file", src.Name, "error", err)
		in.Warnings = append(in.Warnings, fmt.Sprintf("Preview unavailable: %v", err))
		return in, nil
	}
	in.Thumbnail = thumb
	return in, nil
}

func (t *Toolbox) thumbnail(src []byte) ([]byte, error) {
	rs, err := t.rasterizer.Open(src)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	img, _, err := rs.Render(1, ThumbnailScale)
	if err != nil {
		return nil, &models.PageError{Page: 1, Err: err}
	}
	return raster.EncodeJPEG(img, ThumbnailQuality)
}
