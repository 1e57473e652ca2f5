package tools

import (
	"context"
	"fmt"
	"slices"

	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
)

// SplitMode selects how a document is divided.
type SplitMode string

const (
	// SplitRanges writes one document per page range.
	SplitRanges SplitMode = "ranges"
	// SplitPages writes the selected pages as one document.
	SplitPages SplitMode = "pages"
	// SplitEach writes every page as its own document.
	SplitEach SplitMode = "each"
)

// SplitParams configures Split. Ranges is read in SplitRanges mode, Pages in
// SplitPages mode.
type SplitParams struct {
	Mode   SplitMode
	Ranges []PageRange
	Pages  []int
}

// Validate checks what can be checked without the document.
func (p SplitParams) Validate() error {
	switch p.Mode {
	case SplitRanges:
		if len(p.Ranges) == 0 {
			return models.Invalidf("no page ranges selected")
		}
		for _, r := range p.Ranges {
			if err := r.validate(); err != nil {
				return err
			}
		}
	case SplitPages:
		if len(p.Pages) == 0 {
			return models.Invalidf("no pages selected")
		}
	case SplitEach:
	default:
		return models.Invalidf("unknown split mode %q", p.Mode)
	}
	return nil
}

type splitPart struct {
	name  string
	pages []int
}

// Split divides src into one or more documents.
func (t *Toolbox) Split(ctx context.Context, src models.File, p SplitParams, progress models.ProgressFunc) ([]models.File, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	report := progress.Monotonic()

	doc, err := openPDF(src)
	if err != nil {
		return nil, err
	}
	n := doc.PageCount
	base := fileio.BaseName(src.Name)

	var parts []splitPart
	switch p.Mode {
	case SplitRanges:
		for _, r := range p.Ranges {
			if err := r.within(n); err != nil {
				return nil, err
			}
			parts = append(parts, splitPart{fmt.Sprintf("%s-%d-%d.pdf", base, r.From, r.To), r.pages()})
		}
	case SplitPages:
		if err := checkPages(p.Pages, n); err != nil {
			return nil, err
		}
		pages := slices.Clone(p.Pages)
		slices.Sort(pages)
		pages = slices.Compact(pages)
		parts = append(parts, splitPart{fileio.OutputName(src.Name, "selected", "pdf"), pages})
	case SplitEach:
		for i := 1; i <= n; i++ {
			parts = append(parts, splitPart{fmt.Sprintf("%s-page-%d.pdf", base, i), []int{i}})
		}
	}
	report(10)

	out := make([]models.File, 0, len(parts))
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := pdfdoc.Collect(doc.Bytes, part.pages)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", part.name, err)
		}
		out = append(out, models.File{Name: part.name, Data: data})
		report(10 + 90*(i+1)/len(parts))
	}
	return out, nil
}
