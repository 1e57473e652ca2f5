package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

// Wire forms of the operation parameters. Documents and images travel
// separately as inputs and assets and are referenced by position.

type compressWire struct {
	Level string `json:"level"`
}

type mergeWire struct {
	// Pages holds one optional page list per input.
	Pages [][]int `json:"pages"`
}

type splitWire struct {
	Mode   string            `json:"mode"`
	Ranges []tools.PageRange `json:"ranges"`
	Pages  []int             `json:"pages"`
}

type imagesToPDFWire struct {
	PageSize    string  `json:"pageSize"`
	Orientation string  `json:"orientation"`
	Margin      float64 `json:"margin"`
}

type pdfToImagesWire struct {
	Scale   float64 `json:"scale"`
	Quality float64 `json:"quality"`
	Format  string  `json:"format"`
	From    int     `json:"from"`
	To      int     `json:"to"`
	Zip     bool    `json:"zip"`
}

type watermarkWire struct {
	Type       string        `json:"type"`
	Preset     string        `json:"preset"`
	Text       string        `json:"text"`
	FontSize   float64       `json:"fontSize"`
	Color      string        `json:"color"`
	Rotation   *float64      `json:"rotation"`
	ImageWidth float64       `json:"imageWidth"`
	Opacity    float64       `json:"opacity"`
	Position   layout.Anchor `json:"position"`
	Scope      string        `json:"scope"`
	From       int           `json:"from"`
	To         int           `json:"to"`
}

type placementWire struct {
	Page    int     `json:"page"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
	// Asset indexes the signature image among the assets.
	Asset int `json:"asset"`
}

type signWire struct {
	Placements []placementWire `json:"placements"`
}

// DefaultRotation is the text watermark rotation when none is given.
const DefaultRotation = -45

// Decode builds the Params for operation from its JSON parameters and the
// downloaded inputs and assets. Unknown fields are rejected.
func Decode(operation string, raw json.RawMessage, inputs, assets []models.File) (Params, error) {
	kind, err := ParseKind(operation)
	if err != nil {
		return nil, err
	}
	if kind != KindMerge && kind != KindImagesToPDF && len(inputs) != 1 {
		return nil, models.Invalidf("%s takes exactly one input, got %d", kind, len(inputs))
	}

	switch kind {
	case KindCompress:
		var w compressWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		level, err := compress.ParseLevel(w.Level)
		if err != nil {
			return nil, err
		}
		return CompressParams{File: inputs[0], Level: level}, nil

	case KindMerge:
		var w mergeWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		if len(w.Pages) > len(inputs) {
			return nil, models.Invalidf("page lists for %d inputs, got %d inputs", len(w.Pages), len(inputs))
		}
		var p MergeParams
		for i, f := range inputs {
			src := tools.MergeSource{File: f}
			if i < len(w.Pages) {
				src.Pages = w.Pages[i]
			}
			p.Sources = append(p.Sources, src)
		}
		return p, nil

	case KindSplit:
		var w splitWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return SplitParams{File: inputs[0], SplitParams: tools.SplitParams{
			Mode:   tools.SplitMode(w.Mode),
			Ranges: w.Ranges,
			Pages:  w.Pages,
		}}, nil

	case KindImagesToPDF:
		var w imagesToPDFWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return ImagesToPDFParams{tools.ImagesToPDFParams{
			Images:      inputs,
			PageSize:    tools.PageSize(w.PageSize),
			Orientation: tools.Orientation(w.Orientation),
			Margin:      w.Margin,
		}}, nil

	case KindPDFToImages:
		var w pdfToImagesWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		p := PDFToImagesParams{File: inputs[0], PDFToImagesParams: tools.PDFToImagesParams{
			Scale:   w.Scale,
			Quality: w.Quality,
			Format:  raster.Format(w.Format),
			Zip:     w.Zip,
		}}
		if w.From != 0 || w.To != 0 {
			p.Range = &tools.PageRange{From: w.From, To: w.To}
		}
		return p, nil

	case KindWatermark:
		var w watermarkWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		return decodeWatermark(w, inputs[0], assets)

	case KindSign:
		var w signWire
		if err := decodeStrict(raw, &w); err != nil {
			return nil, err
		}
		p := SignParams{File: inputs[0]}
		for i, pw := range w.Placements {
			if pw.Asset < 0 || pw.Asset >= len(assets) {
				return nil, models.Invalidf("signature %d: no asset %d", i+1, pw.Asset)
			}
			p.Placements = append(p.Placements, tools.Placement{
				Page:    pw.Page,
				Rect:    layout.Normalized{X: pw.X, Y: pw.Y, W: pw.Width, H: pw.Height},
				Image:   assets[pw.Asset],
				Opacity: pw.Opacity,
			})
		}
		return p, nil
	}
	return nil, fmt.Errorf("unsupported operation %s", kind)
}

func decodeWatermark(w watermarkWire, src models.File, assets []models.File) (Params, error) {
	var p tools.WatermarkParams
	if w.Preset != "" {
		pr, ok := tools.PresetByName(w.Preset)
		if !ok {
			return nil, models.Invalidf("unknown stamp preset %q", w.Preset)
		}
		p.ApplyPreset(pr)
	}
	p.Kind = tools.WatermarkKind(w.Type)
	if w.Text != "" {
		p.Text = w.Text
	}
	if w.FontSize != 0 {
		p.FontSize = w.FontSize
	}
	if w.Color != "" {
		p.Color = w.Color
	}
	switch {
	case w.Rotation != nil:
		p.Rotation = *w.Rotation
	case w.Preset == "":
		p.Rotation = DefaultRotation
	}
	if w.Opacity != 0 {
		p.Opacity = w.Opacity
	}
	p.ImageWidth = w.ImageWidth
	p.Anchor = w.Position
	p.Scope = tools.Scope(w.Scope)
	p.From, p.To = w.From, w.To

	if p.Kind == tools.ImageWatermark || (p.Kind == "" && len(assets) > 0 && p.Text == "") {
		if len(assets) == 0 {
			return nil, models.Invalidf("no watermark image given")
		}
		p.Kind = tools.ImageWatermark
		p.Image = &assets[0]
	}
	return WatermarkParams{File: src, WatermarkParams: p}, nil
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return models.Invalidf("invalid parameters: %v", err)
	}
	return nil
}
