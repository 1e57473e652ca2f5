// Package tools implements the user-facing PDF operations on top of the
// document assembler and the rasterizer. Every operation validates its
// parameters before touching a document.
package tools

import (
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Toolbox runs the operations. It holds no per-operation state and may be
// used concurrently.
type Toolbox struct {
	rasterizer raster.Rasterizer
	log        *slog.Logger
}

// New returns a Toolbox rendering pages with r.
func New(r raster.Rasterizer) *Toolbox {
	return &Toolbox{rasterizer: r, log: slog.Default()}
}

// PageRange is an inclusive 1-based page interval.
type PageRange struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

func (r PageRange) validate() error {
	if r.From < 1 || r.To < r.From {
		return models.Invalidf("invalid page range %d-%d", r.From, r.To)
	}
	return nil
}

func (r PageRange) within(n int) error {
	if r.To > n {
		return models.Invalidf("page range %d-%d exceeds the document's %d pages", r.From, r.To, n)
	}
	return nil
}

func (r PageRange) pages() []int {
	ps := make([]int, 0, r.To-r.From+1)
	for p := r.From; p <= r.To; p++ {
		ps = append(ps, p)
	}
	return ps
}

func openPDF(f models.File) (*pdfdoc.Document, error) {
	doc, err := pdfdoc.Open(f.Data, pdfdoc.Credentials{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return doc, nil
}

func checkPages(pages []int, n int) error {
	for _, p := range pages {
		if p < 1 || p > n {
			return models.Invalidf("page %d is outside 1-%d", p, n)
		}
	}
	return nil
}
