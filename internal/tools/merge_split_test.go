package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdftest"
)

func doc(widths ...float64) []byte {
	pages := make([]pdftest.Page, len(widths))
	for i, w := range widths {
		pages[i] = pdftest.Page{W: w, H: 400}
	}
	return pdftest.Build(pdftest.Doc{Pages: pages})
}

func TestMerge_SingleFileRejectedBeforeReading(t *testing.T) {
	t.Parallel()

	p := MergeParams{Sources: []MergeSource{{File: models.File{Name: "junk.pdf", Data: []byte("junk")}}}}
	_, err := newTestToolbox().Merge(context.Background(), p, nil)
	if !errors.Is(err, models.ErrInvalidSelection) {
		t.Fatalf("Merge() error = %v, want ErrInvalidSelection", err)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	d1 := models.File{Name: "d1.pdf", Data: doc(101, 102)}
	d2 := models.File{Name: "d2.pdf", Data: doc(201)}
	d3 := models.File{Name: "d3.pdf", Data: doc(301, 302, 303)}

	tests := []struct {
		name    string
		sources []MergeSource
		want    []float64
		wantErr error
	}{
		{
			name:    "all pages in source order",
			sources: []MergeSource{{File: d1}, {File: d2}},
			want:    []float64{101, 102, 201},
		},
		{
			name:    "page subsets in user order",
			sources: []MergeSource{{File: d3, Pages: []int{3, 1}}, {File: d1, Pages: []int{2}}, {File: d2}},
			want:    []float64{303, 301, 102, 201},
		},
		{
			name:    "single page documents",
			sources: []MergeSource{{File: d2}, {File: d2}},
			want:    []float64{201, 201},
		},
		{
			name:    "page out of range",
			sources: []MergeSource{{File: d1, Pages: []int{3}}, {File: d2}},
			wantErr: models.ErrInvalidSelection,
		},
		{
			name:    "empty subset",
			sources: []MergeSource{{File: d1, Pages: []int{}}, {File: d2}},
			wantErr: models.ErrInvalidSelection,
		},
		{
			name:    "unreadable source",
			sources: []MergeSource{{File: d1}, {File: models.File{Name: "bad.pdf", Data: []byte("bad")}}},
			wantErr: models.ErrDocumentUnreadable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var last int
			out, err := newTestToolbox().Merge(context.Background(), MergeParams{Sources: tt.sources}, func(p int) { last = p })
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Merge() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Merge() error: %v", err)
			}
			if out.Name != MergedName {
				t.Errorf("Name = %q, want %q", out.Name, MergedName)
			}
			if diff := cmp.Diff(tt.want, pageWidths(t, out.Data)); diff != "" {
				t.Errorf("page order mismatch (-want +got):\n%s", diff)
			}
			if last != 100 {
				t.Errorf("final progress = %d, want 100", last)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	t.Parallel()

	src := models.File{Name: "report.pdf", Data: doc(1, 2, 3, 4, 5)}

	tests := []struct {
		name      string
		params    SplitParams
		wantNames []string
		wantPages [][]float64
	}{
		{
			name:      "ranges partition",
			params:    SplitParams{Mode: SplitRanges, Ranges: []PageRange{{1, 2}, {3, 3}, {4, 5}}},
			wantNames: []string{"report-1-2.pdf", "report-3-3.pdf", "report-4-5.pdf"},
			wantPages: [][]float64{{1, 2}, {3}, {4, 5}},
		},
		{
			name:      "overlapping ranges",
			params:    SplitParams{Mode: SplitRanges, Ranges: []PageRange{{2, 4}, {1, 2}}},
			wantNames: []string{"report-2-4.pdf", "report-1-2.pdf"},
			wantPages: [][]float64{{2, 3, 4}, {1, 2}},
		},
		{
			name:      "page set",
			params:    SplitParams{Mode: SplitPages, Pages: []int{5, 2, 2}},
			wantNames: []string{"report-selected.pdf"},
			wantPages: [][]float64{{2, 5}},
		},
		{
			name:      "each page",
			params:    SplitParams{Mode: SplitEach},
			wantNames: []string{"report-page-1.pdf", "report-page-2.pdf", "report-page-3.pdf", "report-page-4.pdf", "report-page-5.pdf"},
			wantPages: [][]float64{{1}, {2}, {3}, {4}, {5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := newTestToolbox().Split(context.Background(), src, tt.params, nil)
			if err != nil {
				t.Fatalf("Split() error: %v", err)
			}
			var names []string
			var pages [][]float64
			for _, f := range out {
				names = append(names, f.Name)
				pages = append(pages, pageWidths(t, f.Data))
			}
			if diff := cmp.Diff(tt.wantNames, names); diff != "" {
				t.Errorf("names mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPages, pages); diff != "" {
				t.Errorf("pages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit_SinglePage(t *testing.T) {
	t.Parallel()

	src := models.File{Name: "one.pdf", Data: doc(42)}
	for _, p := range []SplitParams{
		{Mode: SplitEach},
		{Mode: SplitRanges, Ranges: []PageRange{{1, 1}}},
	} {
		out, err := newTestToolbox().Split(context.Background(), src, p, nil)
		if err != nil {
			t.Fatalf("Split(%s) error: %v", p.Mode, err)
		}
		if len(out) != 1 {
			t.Fatalf("Split(%s) produced %d files, want 1", p.Mode, len(out))
		}
		if diff := cmp.Diff([]float64{42}, pageWidths(t, out[0].Data)); diff != "" {
			t.Errorf("Split(%s) pages mismatch (-want +got):\n%s", p.Mode, diff)
		}
	}
}

func TestSplit_InvalidSelection(t *testing.T) {
	t.Parallel()

	src := models.File{Name: "r.pdf", Data: doc(1, 2, 3)}
	tests := map[string]SplitParams{
		"no ranges":      {Mode: SplitRanges},
		"no pages":       {Mode: SplitPages, Pages: nil},
		"reversed range": {Mode: SplitRanges, Ranges: []PageRange{{3, 1}}},
		"zero page":      {Mode: SplitRanges, Ranges: []PageRange{{0, 1}}},
		"range past end": {Mode: SplitRanges, Ranges: []PageRange{{2, 4}}},
		"page past end":  {Mode: SplitPages, Pages: []int{1, 9}},
		"unknown mode":   {Mode: "halves"},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := newTestToolbox().Split(context.Background(), src, p, nil)
			if !errors.Is(err, models.ErrInvalidSelection) {
				t.Errorf("Split() error = %v, want ErrInvalidSelection", err)
			}
		})
	}
}

func TestSplit_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestToolbox().Split(ctx, models.File{Name: "r.pdf", Data: doc(1, 2)}, SplitParams{Mode: SplitEach}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Split() error = %v, want context.Canceled", err)
	}
}
