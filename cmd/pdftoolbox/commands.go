package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

func runCompress(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "compress")
	var common commonFlags
	addCommonFlags(fs, &common)
	level := fs.StringP("level", "l", "", "compression level: screen, ebook, printer")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("compress takes exactly one PDF")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	name := s.cfg.Compress.Level
	if fs.Changed("level") {
		name = *level
	}
	l, err := compress.ParseLevel(name)
	if err != nil {
		return err
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	out, err := s.execute(ctx, files, task.CompressParams{File: files[0], Level: l})
	if err != nil {
		return err
	}
	if err := s.write(out.Files); err != nil {
		return err
	}
	if !common.quiet {
		fmt.Fprintln(env.Stdout, out.Compression.Summary())
	}
	return nil
}

func runMerge(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "merge")
	var common commonFlags
	addCommonFlags(fs, &common)
	pages := fs.StringArray("pages", nil, "pages of the Nth input, e.g. 1-3,5 (repeat per input; empty = all)")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(*pages) > len(pos) {
		return usagef("%d --pages values for %d inputs", len(*pages), len(pos))
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	var p task.MergeParams
	for i, f := range files {
		src := tools.MergeSource{File: f}
		if i < len(*pages) && strings.TrimSpace((*pages)[i]) != "" {
			if src.Pages, err = parsePages((*pages)[i]); err != nil {
				return err
			}
		}
		p.Sources = append(p.Sources, src)
	}

	out, err := s.execute(ctx, files, p)
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runSplit(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "split")
	var common commonFlags
	addCommonFlags(fs, &common)
	mode := fs.StringP("mode", "m", string(tools.SplitEach), "split mode: ranges, pages, each")
	ranges := fs.String("ranges", "", "page ranges for --mode ranges, e.g. 1-3,4-6")
	pages := fs.String("pages", "", "pages for --mode pages, e.g. 1,3,5-7")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("split takes exactly one PDF")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	sp := tools.SplitParams{Mode: tools.SplitMode(*mode)}
	switch sp.Mode {
	case tools.SplitRanges:
		if sp.Ranges, err = parseRanges(*ranges); err != nil {
			return err
		}
	case tools.SplitPages:
		if sp.Pages, err = parsePages(*pages); err != nil {
			return err
		}
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	out, err := s.execute(ctx, files, task.SplitParams{File: files[0], SplitParams: sp})
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runImagesToPDF(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "images-to-pdf")
	var common commonFlags
	addCommonFlags(fs, &common)
	pageSize := fs.StringP("page-size", "p", "", "page size: a4, letter, legal, fit")
	orientation := fs.String("orientation", "", "page orientation: portrait, landscape, auto")
	margin := fs.Float64("margin", 0, "margin around each image in points")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return usagef("images-to-pdf takes at least one image")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	p := tools.ImagesToPDFParams{
		PageSize:    tools.PageSize(s.cfg.Convert.PageSize),
		Orientation: tools.Orientation(s.cfg.Convert.Orientation),
		Margin:      s.cfg.Convert.Margin,
	}
	if fs.Changed("page-size") {
		p.PageSize = tools.PageSize(strings.ToLower(*pageSize))
	}
	if fs.Changed("orientation") {
		p.Orientation = tools.Orientation(strings.ToLower(*orientation))
	}
	if fs.Changed("margin") {
		p.Margin = *margin
	}

	if p.Images, err = readInputs(pos); err != nil {
		return err
	}
	out, err := s.execute(ctx, p.Images, task.ImagesToPDFParams{ImagesToPDFParams: p})
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runPDFToImages(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "pdf-to-images")
	var common commonFlags
	addCommonFlags(fs, &common)
	scale := fs.Float64("scale", 0, "render scale: 1 (72 dpi), 1.5 (108), 2 (144), 3 (216)")
	quality := fs.Float64("quality", 0, "JPEG quality: 0.5, 0.75, 0.9, 1")
	format := fs.StringP("format", "f", "", "image format: jpeg, png")
	from := fs.Int("from", 0, "first page (default 1)")
	to := fs.Int("to", 0, "last page (default last)")
	zip := fs.Bool("zip", false, "bundle all images into one ZIP file")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("pdf-to-images takes exactly one PDF")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	p := s.cfg.PDFToImagesParams()
	if fs.Changed("scale") {
		p.Scale = *scale
	}
	if fs.Changed("quality") {
		p.Quality = *quality
	}
	if fs.Changed("format") {
		p.Format = raster.Format(strings.ToLower(*format))
	}
	if fs.Changed("zip") {
		p.Zip = *zip
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	n, err := pdfdoc.PageCount(files[0].Data)
	if err != nil {
		return fmt.Errorf("%s: %w", files[0].Name, err)
	}
	if fs.Changed("from") || fs.Changed("to") {
		r := tools.PageRange{From: max(*from, 1), To: *to}
		if r.To == 0 {
			r.To = n
		}
		p.Range = &r
		n = r.To - r.From + 1
	}
	if n > 0 && p.Scale > 0 && p.Quality > 0 {
		s.log.Info("Estimated output size.", "pages", n, "size", fileio.FormatSize(tools.EstimateSize(n, p.Scale, p.Quality)))
	}

	out, err := s.execute(ctx, files, task.PDFToImagesParams{File: files[0], PDFToImagesParams: p})
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runWatermark(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "watermark")
	var common commonFlags
	addCommonFlags(fs, &common)
	text := fs.StringP("text", "t", "", "watermark text")
	preset := fs.String("preset", "", "stamp preset: DRAFT, CONFIDENTIAL, APPROVED, COPY, VOID, SAMPLE")
	imagePath := fs.String("image", "", "image file to stamp instead of text")
	imageWidth := fs.Float64("image-width", 0, "image width as a percentage of the page width")
	fontSize := fs.Float64("font-size", 0, "font size in points (20-120)")
	color := fs.String("color", "", "text color (#rrggbb)")
	opacity := fs.Float64("opacity", 0, "opacity (0-1]")
	rotation := fs.Float64("rotation", 0, "rotation in degrees (-90 to 90)")
	position := fs.String("position", "", "position: top-left, top, top-right, left, center, right, bottom-left, bottom, bottom-right")
	scope := fs.String("scope", "", "pages: all, first, last, odd, even, custom")
	from := fs.Int("from", 0, "first page for --scope custom")
	to := fs.Int("to", 0, "last page for --scope custom")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("watermark takes exactly one PDF")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	posName := s.cfg.Watermark.Position
	if fs.Changed("position") {
		posName = *position
	}
	anchor, err := layout.ParseAnchor(posName)
	if err != nil {
		return err
	}
	p := s.cfg.WatermarkParams(anchor)

	if fs.Changed("preset") {
		pr, ok := tools.PresetByName(*preset)
		if !ok {
			return models.Invalidf("unknown stamp preset %q", *preset)
		}
		p.ApplyPreset(pr)
	}
	if fs.Changed("text") {
		p.Text = *text
	}
	if fs.Changed("font-size") {
		p.FontSize = *fontSize
	}
	if fs.Changed("color") {
		p.Color = *color
	}
	if fs.Changed("opacity") {
		p.Opacity = *opacity
	}
	if fs.Changed("rotation") {
		p.Rotation = *rotation
	}
	if fs.Changed("scope") {
		p.Scope = tools.Scope(strings.ToLower(*scope))
	}
	p.From, p.To = *from, *to
	if fs.Changed("image") {
		imgs, err := readInputs([]string{*imagePath})
		if err != nil {
			return err
		}
		p.Kind = tools.ImageWatermark
		p.Image = &imgs[0]
		if fs.Changed("image-width") {
			p.ImageWidth = *imageWidth
		}
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	out, err := s.execute(ctx, files, task.WatermarkParams{File: files[0], WatermarkParams: p})
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runSign(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "sign")
	var common commonFlags
	addCommonFlags(fs, &common)
	imagePath := fs.StringP("image", "i", "", "signature image")
	at := fs.StringArray("at", nil, "placement PAGE:X,Y,W,H as fractions of the page from its top-left corner (repeatable)")
	opacity := fs.Float64("opacity", 0, "signature opacity (0-1]")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("sign takes exactly one PDF")
	}
	if *imagePath == "" {
		return usagef("sign needs --image")
	}
	if len(*at) == 0 {
		return usagef("sign needs at least one --at placement")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}

	op := s.cfg.Sign.Opacity
	if fs.Changed("opacity") {
		op = *opacity
	}
	imgs, err := readInputs([]string{*imagePath})
	if err != nil {
		return err
	}
	var sp tools.SignParams
	for _, a := range *at {
		page, rect, err := parsePlacement(a)
		if err != nil {
			return err
		}
		sp.Placements = append(sp.Placements, tools.Placement{Page: page, Rect: rect, Image: imgs[0], Opacity: op})
	}

	files, err := readInputs(pos)
	if err != nil {
		return err
	}
	out, err := s.execute(ctx, files, task.SignParams{File: files[0], SignParams: sp})
	if err != nil {
		return err
	}
	return s.write(out.Files)
}

func runInspect(ctx context.Context, env *Environment, args []string) error {
	fs := newFlagSet(env, "inspect")
	var common commonFlags
	addCommonFlags(fs, &common)
	thumbnail := fs.Bool("thumbnail", false, "write a JPEG preview of the first page")

	pos, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usagef("inspect takes exactly one PDF")
	}
	s, err := newSession(env, &common)
	if err != nil {
		return err
	}
	files, err := readInputs(pos)
	if err != nil {
		return err
	}

	in, err := s.runner.Toolbox().Inspect(ctx, files[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "File:      %s\n", in.Name)
	fmt.Fprintf(env.Stdout, "Size:      %s\n", fileio.FormatSize(in.Size))
	fmt.Fprintf(env.Stdout, "Pages:     %d\n", in.PageCount)
	fmt.Fprintf(env.Stdout, "Encrypted: %t\n", in.Encrypted)
	for i, pg := range in.Pages {
		d := pg.Display()
		fmt.Fprintf(env.Stdout, "  page %d: %.0f x %.0f pt, rotate %d\n", i+1, d.W, d.H, pg.Rotate)
	}
	for _, w := range in.Warnings {
		s.log.Warn(w)
	}

	if *thumbnail && in.Thumbnail != nil {
		return s.write([]models.File{{Name: fileio.OutputName(in.Name, "thumbnail", "jpg"), Data: in.Thumbnail}})
	}
	return nil
}
