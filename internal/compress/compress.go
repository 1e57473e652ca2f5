// Package compress picks the smallest of several candidate rewrites of a
// PDF. The untouched source is always a candidate, so the output is never
// larger than the input.
package compress

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Original names the candidate that is the source itself.
const Original = "original"

// Result is the outcome of a compression.
type Result struct {
	Output         []byte
	OriginalSize   int64
	CompressedSize int64
	// Strategy names the winning candidate.
	Strategy  string
	PageCount int
	Encrypted bool
	Warnings  []string
}

// SavingsPercent is the size reduction rounded to a whole percent.
func (r *Result) SavingsPercent() int {
	if r.OriginalSize <= 0 {
		return 0
	}
	return int(math.Round(float64(r.OriginalSize-r.CompressedSize) / float64(r.OriginalSize) * 100))
}

// Summary describes the result for display.
func (r *Result) Summary() string {
	if r.SavingsPercent() <= 0 {
		return fmt.Sprintf("Already optimal: no smaller version found (%s).", fileio.FormatSize(r.OriginalSize))
	}
	return fmt.Sprintf("Saved %d%%: %s to %s.", r.SavingsPercent(),
		fileio.FormatSize(r.OriginalSize), fileio.FormatSize(r.CompressedSize))
}

// Selector runs the strategies enabled for a level and keeps the smallest
// output.
type Selector struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewSelector returns a Selector with the metadata and rasterization
// strategies.
func NewSelector(r raster.Rasterizer) *Selector {
	return NewSelectorWith(MetadataStrip{}, Rasterize{Rasterizer: r})
}

// NewSelectorWith returns a Selector running the given strategies in order.
func NewSelectorWith(strategies ...Strategy) *Selector {
	return &Selector{strategies: strategies, log: slog.Default()}
}

type candidate struct {
	name string
	data []byte
}

// Compress opens src and returns the smallest candidate for level. It fails
// only when src cannot be opened or ctx is done; a failing strategy is
// skipped.
func (s *Selector) Compress(ctx context.Context, src []byte, level Level, progress models.ProgressFunc) (*Result, error) {
	if _, ok := levels[level]; !ok {
		return nil, models.Invalidf("unknown compression level %q", level)
	}
	p := progress.Monotonic()

	doc, err := pdfdoc.Open(src, pdfdoc.Credentials{})
	if err != nil {
		return nil, err
	}
	p(10)

	candidates := []candidate{{name: Original, data: src}}

	enabled := make([]Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		if st.Enabled(level) {
			enabled = append(enabled, st)
		}
	}

	for i, st := range enabled {
		lo, hi := span(i, len(enabled))
		p(lo)
		report := func(f float64) { p(lo + int(f*float64(hi-lo))) }

		out, err := st.Apply(ctx, doc, level, report)
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", models.ErrStrategyFailed, st.Name(), err)
			s.log.Debug("Compression strategy failed.", "strategy", st.Name(), "error", err)
			p(hi)
			continue
		}
		candidates = append(candidates, candidate{name: st.Name(), data: out})
		p(hi)
	}
	p(95)

	best := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.data) < len(best.data) {
			best = c
		}
	}
	s.log.Debug("Compression candidates evaluated.",
		"candidates", len(candidates), "winner", best.name, "size", len(best.data))

	res := &Result{
		Output:         best.data,
		OriginalSize:   int64(len(src)),
		CompressedSize: int64(len(best.data)),
		Strategy:       best.name,
		PageCount:      doc.PageCount,
		Encrypted:      doc.Encrypted,
		Warnings:       doc.Warnings,
	}
	p(100)
	return res, nil
}

// span is the progress range of the i-th of n strategies. The first owns
// 20-30, the rest share 30-90.
func span(i, n int) (int, int) {
	if i == 0 {
		return 20, 30
	}
	rest := n - 1
	return 30 + 60*(i-1)/rest, 30 + 60*i/rest
}
