package tools

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"slices"

	"github.com/klauspost/compress/zip"

	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// PageSize is the paper an image is placed on.
type PageSize string

const (
	A4     PageSize = "a4"
	Letter PageSize = "letter"
	Legal  PageSize = "legal"
	// Fit sizes each page to its image.
	Fit PageSize = "fit"
)

// Portrait dimensions in points.
var paper = map[PageSize]layout.Size{
	A4:     {W: 595.28, H: 841.89},
	Letter: {W: 612, H: 792},
	Legal:  {W: 612, H: 1008},
}

// Orientation of paper pages.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
	// Auto follows the image: landscape for images wider than tall.
	Auto Orientation = "auto"
)

// MaxMargin bounds the margin around converted images.
const MaxMargin = 144.0

// ImagesToPDFParams configures ImagesToPDF. Images become pages in order.
type ImagesToPDFParams struct {
	Images      []models.File
	PageSize    PageSize
	Orientation Orientation
	Margin      float64
}

func (p ImagesToPDFParams) withDefaults() ImagesToPDFParams {
	if p.PageSize == "" {
		p.PageSize = A4
	}
	if p.Orientation == "" {
		p.Orientation = Auto
	}
	return p
}

// Validate checks the parameters.
func (p ImagesToPDFParams) Validate() error {
	p = p.withDefaults()
	if len(p.Images) == 0 {
		return models.Invalidf("select at least one image")
	}
	if _, ok := paper[p.PageSize]; !ok && p.PageSize != Fit {
		return models.Invalidf("unknown page size %q", p.PageSize)
	}
	switch p.Orientation {
	case Portrait, Landscape, Auto:
	default:
		return models.Invalidf("unknown orientation %q", p.Orientation)
	}
	if p.Margin < 0 || p.Margin > MaxMargin {
		return models.Invalidf("margin %v outside 0-%v", p.Margin, MaxMargin)
	}
	return nil
}

// pageFor returns the page size and the fraction of it the image may fill.
func (p ImagesToPDFParams) pageFor(img image.Point) (layout.Size, float64) {
	iw, ih := float64(img.X), float64(img.Y)
	m := p.Margin

	if p.PageSize == Fit {
		page := layout.Size{W: iw + 2*m, H: ih + 2*m}
		return page, min(iw/page.W, ih/page.H)
	}

	page := paper[p.PageSize]
	landscape := p.Orientation == Landscape || (p.Orientation == Auto && iw > ih)
	if landscape {
		page.W, page.H = page.H, page.W
	}
	return page, min((page.W-2*m)/page.W, (page.H-2*m)/page.H)
}

// ImagesToPDF places every image on its own page.
func (t *Toolbox) ImagesToPDF(ctx context.Context, p ImagesToPDFParams, progress models.ProgressFunc) (models.File, error) {
	if err := p.Validate(); err != nil {
		return models.File{}, err
	}
	p = p.withDefaults()
	report := progress.Monotonic()

	pages := make([]pdfdoc.ImagePage, 0, len(p.Images))
	for i, f := range p.Images {
		if err := ctx.Err(); err != nil {
			return models.File{}, err
		}
		img, format, err := raster.DecodeImage(bytes.NewReader(f.Data))
		if err != nil {
			return models.File{}, &models.PageError{Page: i + 1, Err: fmt.Errorf("%s: %w", f.Name, err)}
		}

		data := f.Data
		if format != "jpeg" && format != "png" {
			if data, err = raster.EncodePNG(img); err != nil {
				return models.File{}, &models.PageError{Page: i + 1, Err: err}
			}
		}
		size, scale := p.pageFor(img.Bounds().Size())
		pages = append(pages, pdfdoc.ImagePage{Image: data, W: size.W, H: size.H, Scale: scale})
		report(80 * (i + 1) / len(p.Images))
	}

	out, err := pdfdoc.ImportImages(pages)
	if err != nil {
		return models.File{}, err
	}

	name := "images.pdf"
	if len(p.Images) == 1 {
		name = fileio.StemName(p.Images[0].Name) + ".pdf"
	}
	report(100)
	return models.File{Name: name, Data: out}, nil
}

// ScalePreset is an offered render scale and the resolution it stands for.
type ScalePreset struct {
	Scale float64
	DPI   int
}

// ScalePresets lists the offered render scales.
var ScalePresets = []ScalePreset{
	{1.0, 72},
	{1.5, 108},
	{2.0, 144},
	{3.0, 216},
}

// QualityPresets are the offered JPEG qualities.
var QualityPresets = []float64{0.5, 0.75, 0.9, 1.0}

// bytesPerPage is the estimated output of one page at scale 1, quality 1.
const bytesPerPage = 200 << 10

// PDFToImagesParams configures PDFToImages.
type PDFToImagesParams struct {
	Scale   float64
	Quality float64
	Format  raster.Format
	// Range limits the pages; nil exports all of them.
	Range *PageRange
	// Zip bundles all images into one archive.
	Zip bool
}

func (p PDFToImagesParams) withDefaults() PDFToImagesParams {
	if p.Scale == 0 {
		p.Scale = 1.5
	}
	if p.Quality == 0 {
		p.Quality = 0.9
	}
	if p.Format == "" {
		p.Format = raster.JPEG
	}
	return p
}

// Validate checks the parameters.
func (p PDFToImagesParams) Validate() error {
	p = p.withDefaults()
	if !slices.ContainsFunc(ScalePresets, func(s ScalePreset) bool { return s.Scale == p.Scale }) {
		return models.Invalidf("unsupported scale %v", p.Scale)
	}
	if !slices.Contains(QualityPresets, p.Quality) {
		return models.Invalidf("unsupported quality %v", p.Quality)
	}
	if p.Format != raster.JPEG && p.Format != raster.PNG {
		return models.Invalidf("unknown image format %q", p.Format)
	}
	if p.Range != nil {
		return p.Range.validate()
	}
	return nil
}

// EstimateSize guesses the total output size for pages pages.
func EstimateSize(pages int, scale, quality float64) int64 {
	return int64(float64(pages) * scale * scale * quality * bytesPerPage)
}

// PDFToImages renders pages to images named <base>_page_<n>.<ext>.
func (t *Toolbox) PDFToImages(ctx context.Context, src models.File, p PDFToImagesParams, progress models.ProgressFunc) ([]models.File, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	report := progress.Monotonic()

	doc, err := openPDF(src)
	if err != nil {
		return nil, err
	}
	r := PageRange{From: 1, To: doc.PageCount}
	if p.Range != nil {
		if err := p.Range.within(doc.PageCount); err != nil {
			return nil, err
		}
		r = *p.Range
	}
	t.log.Debug("Rendering pages.", "from", r.From, "to", r.To,
		"estimate", fileio.FormatSize(EstimateSize(r.To-r.From+1, p.Scale, p.Quality)))

	rs, err := t.rasterizer.Open(doc.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", src.Name, models.ErrDocumentUnreadable, err)
	}
	defer rs.Close()
	report(5)

	base := fileio.BaseName(src.Name)
	pages := r.pages()
	out := make([]models.File, 0, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, _, err := rs.Render(page, p.Scale)
		if err != nil {
			return nil, &models.PageError{Page: page, Err: err}
		}
		data, err := raster.Encode(img, p.Format, p.Quality)
		if err != nil {
			return nil, &models.PageError{Page: page, Err: err}
		}
		out = append(out, models.File{Name: fmt.Sprintf("%s_page_%d.%s", base, page, p.Format.Ext()), Data: data})
		report(5 + 90*(i+1)/len(pages))
	}

	if p.Zip {
		archive, err := Bundle(base+"_images.zip", out)
		if err != nil {
			return nil, err
		}
		out = []models.File{archive}
	}
	report(100)
	return out, nil
}

// Bundle packs files into one ZIP archive.
func Bundle(name string, files []models.File) (models.File, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			return models.File{}, fmt.Errorf("failed to add %s to archive: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return models.File{}, fmt.Errorf("failed to add %s to archive: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return models.File{}, fmt.Errorf("failed to finish archive: %w", err)
	}
	return models.File{Name: name, Data: buf.Bytes()}, nil
}
