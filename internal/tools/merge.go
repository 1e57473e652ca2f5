package tools

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
)

// MergedName is the name of the merge output.
const MergedName = "merged.pdf"

// MergeSource is one input of a merge. Pages selects and orders a subset of
// its 1-based pages; nil takes every page.
type MergeSource struct {
	File  models.File
	Pages []int
}

// MergeParams lists the documents to merge in output order.
type MergeParams struct {
	Sources []MergeSource
}

// Validate rejects fewer than two sources and empty page subsets.
func (p MergeParams) Validate() error {
	if len(p.Sources) < 2 {
		return models.Invalidf("select at least two PDF files to merge")
	}
	for _, s := range p.Sources {
		if s.Pages != nil && len(s.Pages) == 0 {
			return models.Invalidf("%s: no pages selected", s.File.Name)
		}
	}
	return nil
}

// Merge concatenates the selected pages of every source.
func (t *Toolbox) Merge(ctx context.Context, p MergeParams, progress models.ProgressFunc) (models.File, error) {
	if err := p.Validate(); err != nil {
		return models.File{}, err
	}
	report := progress.Monotonic()

	parts := make([][]byte, 0, len(p.Sources))
	for i, s := range p.Sources {
		if err := ctx.Err(); err != nil {
			return models.File{}, err
		}
		doc, err := openPDF(s.File)
		if err != nil {
			return models.File{}, err
		}

		part := doc.Bytes
		if s.Pages != nil {
			if err := checkPages(s.Pages, doc.PageCount); err != nil {
				return models.File{}, fmt.Errorf("%s: %w", s.File.Name, err)
			}
			part, err = pdfdoc.Collect(doc.Bytes, s.Pages)
			if err != nil {
				return models.File{}, fmt.Errorf("%s: %w", s.File.Name, err)
			}
		}
		parts = append(parts, part)
		report(90 * (i + 1) / len(p.Sources))
	}

	out, err := pdfdoc.Merge(parts)
	if err != nil {
		return models.File{}, err
	}
	report(100)
	return models.File{Name: MergedName, Data: out}, nil
}
