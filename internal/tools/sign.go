package tools

import (
	"bytes"
	"context"

	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Placement puts a signature image on a page. Rect is relative to the page
// as displayed, origin top-left.
type Placement struct {
	Page  int
	Rect  layout.Normalized
	Image models.File
	// Opacity in (0,1]; zero draws opaque.
	Opacity float64
}

// SignParams lists independent signature placements.
type SignParams struct {
	Placements []Placement
}

// Validate checks the parameters.
func (p SignParams) Validate() error {
	if len(p.Placements) == 0 {
		return models.Invalidf("place at least one signature")
	}
	for i, pl := range p.Placements {
		if pl.Page < 1 {
			return models.Invalidf("signature %d: invalid page %d", i+1, pl.Page)
		}
		if err := pl.Rect.Validate(); err != nil {
			return err
		}
		if pl.Opacity < 0 || pl.Opacity > 1 {
			return models.Invalidf("signature %d: opacity %v outside (0,1]", i+1, pl.Opacity)
		}
		if len(pl.Image.Data) == 0 {
			return models.Invalidf("signature %d: no image", i+1)
		}
	}
	return nil
}

// Sign draws every placement upright on its page.
func (t *Toolbox) Sign(ctx context.Context, src models.File, p SignParams, progress models.ProgressFunc) (models.File, error) {
	if err := p.Validate(); err != nil {
		return models.File{}, err
	}
	report := progress.Monotonic()

	doc, err := openPDF(src)
	if err != nil {
		return models.File{}, err
	}
	report(10)

	pictures := map[string]*pdfdoc.Picture{}
	stamps := make([]pdfdoc.Stamp, 0, len(p.Placements))
	for i, pl := range p.Placements {
		if err := ctx.Err(); err != nil {
			return models.File{}, err
		}
		if pl.Page > doc.PageCount {
			return models.File{}, models.Invalidf("signature %d: page %d is outside 1-%d", i+1, pl.Page, doc.PageCount)
		}

		key := string(pl.Image.Data)
		pic, ok := pictures[key]
		if !ok {
			img, _, err := raster.DecodeImage(bytes.NewReader(pl.Image.Data))
			if err != nil {
				return models.File{}, models.Invalidf("signature %d: %v", i+1, err)
			}
			pic = &pdfdoc.Picture{Img: raster.Fit(img, maxPictureSide)}
			pictures[key] = pic
		}

		op := pl.Opacity
		if op == 0 {
			op = 1
		}
		stamps = append(stamps, pdfdoc.Stamp{
			Page:    pl.Page,
			Mark:    doc.Pages[pl.Page-1].Upright(pl.Rect),
			Opacity: op,
			Picture: pic,
		})
		report(10 + 40*(i+1)/len(p.Placements))
	}

	out, err := pdfdoc.ApplyStamps(doc.Bytes, stamps)
	if err != nil {
		return models.File{}, err
	}
	report(100)
	return models.File{Name: fileio.OutputName(src.Name, "signed", "pdf"), Data: out}, nil
}
