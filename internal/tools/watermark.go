package tools

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// WatermarkKind selects the watermark content.
type WatermarkKind string

const (
	TextWatermark  WatermarkKind = "text"
	ImageWatermark WatermarkKind = "image"
)

// Scope selects the pages that receive a watermark.
type Scope string

const (
	ScopeAll    Scope = "all"
	ScopeFirst  Scope = "first"
	ScopeLast   Scope = "last"
	ScopeOdd    Scope = "odd"
	ScopeEven   Scope = "even"
	ScopeCustom Scope = "custom"
)

// Watermark limits.
const (
	MinFontSize    = 20
	MaxFontSize    = 120
	MaxRotation    = 90
	maxPictureSide = 2000
)

// Preset is a ready-made text stamp.
type Preset struct {
	Label    string
	Color    string
	Rotation float64
}

// Presets are the offered stamps.
var Presets = []Preset{
	{"DRAFT", "#1a3a8f", -45},
	{"CONFIDENTIAL", "#7a0f0f", -45},
	{"APPROVED", "#15803d", -45},
	{"COPY", "#1a1a1a", -45},
	{"VOID", "#7a0f0f", -45},
	{"SAMPLE", "#92400e", -45},
}

// PresetByName finds a preset by label, ignoring case.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if strings.EqualFold(p.Label, name) {
			return p, true
		}
	}
	return Preset{}, false
}

// WatermarkParams configures Watermark.
type WatermarkParams struct {
	Kind WatermarkKind

	Text     string
	FontSize float64
	// Color is #rrggbb.
	Color    string
	Rotation float64

	Image *models.File
	// ImageWidth is the image width as a percentage of the page width.
	ImageWidth float64

	Opacity float64
	Anchor  layout.Anchor

	Scope Scope
	// From and To bound ScopeCustom, 1-based and inclusive.
	From, To int
}

// ApplyPreset sets the text, colour and rotation of pr together with the
// stamp font size and opacity.
func (p *WatermarkParams) ApplyPreset(pr Preset) {
	p.Kind = TextWatermark
	p.Text = pr.Label
	p.Color = pr.Color
	p.Rotation = pr.Rotation
	p.FontSize = 60
	p.Opacity = 0.25
}

func (p WatermarkParams) withDefaults() WatermarkParams {
	if p.Kind == "" {
		p.Kind = TextWatermark
		if p.Image != nil {
			p.Kind = ImageWatermark
		}
	}
	if p.FontSize == 0 {
		p.FontSize = 60
	}
	if p.Color == "" {
		p.Color = "#1a1a1a"
	}
	if p.ImageWidth == 0 {
		p.ImageWidth = 30
	}
	if p.Opacity == 0 {
		p.Opacity = 0.25
	}
	if p.Scope == "" {
		p.Scope = ScopeAll
	}
	return p
}

// Validate checks the parameters.
func (p WatermarkParams) Validate() error {
	p = p.withDefaults()
	switch p.Kind {
	case TextWatermark:
		if strings.TrimSpace(p.Text) == "" {
			return models.Invalidf("watermark text is empty")
		}
		if p.FontSize < MinFontSize || p.FontSize > MaxFontSize {
			return models.Invalidf("font size %v outside %d-%d", p.FontSize, MinFontSize, MaxFontSize)
		}
		if _, err := parseColor(p.Color); err != nil {
			return err
		}
		if p.Rotation < -MaxRotation || p.Rotation > MaxRotation {
			return models.Invalidf("rotation %v outside -%d-%d", p.Rotation, MaxRotation, MaxRotation)
		}
	case ImageWatermark:
		if p.Image == nil || len(p.Image.Data) == 0 {
			return models.Invalidf("no watermark image selected")
		}
		if p.ImageWidth <= 0 || p.ImageWidth > 100 {
			return models.Invalidf("image width %v%% outside 1-100", p.ImageWidth)
		}
	default:
		return models.Invalidf("unknown watermark type %q", p.Kind)
	}
	if p.Opacity <= 0 || p.Opacity > 1 {
		return models.Invalidf("opacity %v outside (0,1]", p.Opacity)
	}
	switch p.Scope {
	case ScopeAll, ScopeFirst, ScopeLast, ScopeOdd, ScopeEven:
	case ScopeCustom:
		if err := (PageRange{From: p.From, To: p.To}).validate(); err != nil {
			return err
		}
	default:
		return models.Invalidf("unknown page scope %q", p.Scope)
	}
	return nil
}

// TargetPages lists the 1-based pages of an n-page document the scope
// selects. Custom ranges are clipped to the document.
func (p WatermarkParams) TargetPages(n int) []int {
	scope := p.withDefaults().Scope
	var pages []int
	for i := 1; i <= n; i++ {
		var ok bool
		switch scope {
		case ScopeAll:
			ok = true
		case ScopeFirst:
			ok = i == 1
		case ScopeLast:
			ok = i == n
		case ScopeOdd:
			ok = i%2 == 1
		case ScopeEven:
			ok = i%2 == 0
		case ScopeCustom:
			ok = i >= p.From && i <= p.To
		}
		if ok {
			pages = append(pages, i)
		}
	}
	return pages
}

// Watermark stamps text or an image on the pages selected by the scope.
func (t *Toolbox) Watermark(ctx context.Context, src models.File, p WatermarkParams, progress models.ProgressFunc) (models.File, error) {
	if err := p.Validate(); err != nil {
		return models.File{}, err
	}
	p = p.withDefaults()
	report := progress.Monotonic()

	doc, err := openPDF(src)
	if err != nil {
		return models.File{}, err
	}
	targets := p.TargetPages(doc.PageCount)
	if len(targets) == 0 {
		return models.File{}, models.Invalidf("pages %d-%d are outside the document's %d pages", p.From, p.To, doc.PageCount)
	}
	report(10)

	var pic *pdfdoc.Picture
	var aspect float64
	if p.Kind == ImageWatermark {
		img, _, err := raster.DecodeImage(bytes.NewReader(p.Image.Data))
		if err != nil {
			return models.File{}, models.Invalidf("watermark image: %v", err)
		}
		b := img.Bounds()
		aspect = float64(b.Dy()) / float64(b.Dx())
		pic = &pdfdoc.Picture{Img: raster.Fit(img, maxPictureSide)}
	}
	color, _ := parseColor(p.Color)

	stamps := make([]pdfdoc.Stamp, 0, len(targets))
	for i, n := range targets {
		if err := ctx.Err(); err != nil {
			return models.File{}, err
		}
		page := doc.Pages[n-1]
		st := pdfdoc.Stamp{Page: n, Opacity: p.Opacity}
		if pic != nil {
			w := page.Display().W * p.ImageWidth / 100
			st.Mark = page.Anchored(layout.Size{W: w, H: w * aspect}, p.Anchor, 0)
			st.Picture = pic
		} else {
			st.Mark = page.Anchored(pdfdoc.TextBox(p.Text, p.FontSize), p.Anchor, p.Rotation)
			st.Text = p.Text
			st.FontSize = p.FontSize
			st.Color = color
		}
		stamps = append(stamps, st)
		report(10 + 40*(i+1)/len(targets))
	}

	out, err := pdfdoc.ApplyStamps(doc.Bytes, stamps)
	if err != nil {
		return models.File{}, err
	}
	report(100)
	return models.File{Name: fileio.OutputName(src.Name, "watermarked", "pdf"), Data: out}, nil
}

func parseColor(s string) (pdfdoc.RGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return pdfdoc.RGB{}, models.Invalidf("invalid colour %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return pdfdoc.RGB{}, models.Invalidf("invalid colour %q (want #rrggbb)", s)
	}
	return pdfdoc.RGB{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

