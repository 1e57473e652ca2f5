package compress

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdfdoc"
	"github.com/Lllllllleong/pdftoolbox/internal/pdftest"
	"github.com/Lllllllleong/pdftoolbox/internal/raster/rastertest"
)

type funcStrategy struct {
	name string
	fn   func(doc *pdfdoc.Document) ([]byte, error)
}

func (f funcStrategy) Name() string       { return f.name }
func (f funcStrategy) Enabled(Level) bool { return true }
func (f funcStrategy) Apply(_ context.Context, doc *pdfdoc.Document, _ Level, report func(float64)) ([]byte, error) {
	report(1)
	return f.fn(doc)
}

// padded is large enough that replacing pages by tiny images pays off.
func padded(n int) []byte {
	return pdftest.Build(pdftest.Doc{
		Pages:   pdftest.Pages(n),
		Padding: 50000,
		Info:    map[string]string{"Title": "T", "Author": "A"},
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"screen", Screen, false},
		{"EBOOK", Ebook, false},
		{" printer ", Printer, false},
		{"", Ebook, false},
		{"prepress", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if !errors.Is(err, models.ErrInvalidSelection) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidSelection", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestLevelSettings(t *testing.T) {
	t.Parallel()

	want := map[Level]Settings{
		Screen:  {0.75, 0.30, true},
		Ebook:   {1.0, 0.50, true},
		Printer: {1.5, 0.80, true},
	}
	got := map[Level]Settings{}
	for _, l := range Levels() {
		got[l] = l.Settings()
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("level table mismatch (-want +got):\n%s", diff)
	}
}

func TestCompress_NeverGrows(t *testing.T) {
	t.Parallel()

	inputs := map[string][]byte{
		"small":  pdftest.Simple(2),
		"padded": padded(2),
	}
	for name, src := range inputs {
		for _, level := range Levels() {
			t.Run(name+"/"+string(level), func(t *testing.T) {
				t.Parallel()

				sel := NewSelector(&rastertest.Fake{})
				res, err := sel.Compress(context.Background(), src, level, nil)
				if err != nil {
					t.Fatalf("Compress() error: %v", err)
				}
				if res.CompressedSize > res.OriginalSize {
					t.Errorf("output %d bytes larger than input %d", res.CompressedSize, res.OriginalSize)
				}
				if int(res.CompressedSize) != len(res.Output) {
					t.Errorf("CompressedSize = %d, len(Output) = %d", res.CompressedSize, len(res.Output))
				}
				if res.PageCount != 2 {
					t.Errorf("PageCount = %d, want 2", res.PageCount)
				}
			})
		}
	}
}

func TestCompress_RasterizeWins(t *testing.T) {
	t.Parallel()

	src := padded(3)
	fr := &rastertest.Fake{}
	res, err := NewSelector(fr).Compress(context.Background(), src, Screen, nil)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}
	if res.Strategy != "rasterize" {
		t.Fatalf("Strategy = %q, want rasterize", res.Strategy)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, fr.Rendered()); diff != "" {
		t.Errorf("render order mismatch (-want +got):\n%s", diff)
	}
	if res.SavingsPercent() <= 0 {
		t.Errorf("SavingsPercent() = %d, want > 0", res.SavingsPercent())
	}
	if !strings.HasPrefix(res.Summary(), "Saved ") {
		t.Errorf("Summary() = %q", res.Summary())
	}

	doc, err := pdfdoc.Open(res.Output, pdfdoc.Credentials{})
	if err != nil {
		t.Fatalf("output unreadable: %v", err)
	}
	for i, p := range doc.Pages {
		if p.W != pdftest.Width(i) || p.H != 400 {
			t.Errorf("page %d size = %vx%v, want %vx400", i+1, p.W, p.H, pdftest.Width(i))
		}
	}
	info, err := pdfdoc.Info(res.Output)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"Title", "Author", "Producer"} {
		if _, ok := info[k]; ok {
			t.Errorf("%s survived rasterization", k)
		}
	}

	again, err := NewSelector(&rastertest.Fake{}).Compress(context.Background(), res.Output, Screen, nil)
	if err != nil {
		t.Fatalf("second Compress() error: %v", err)
	}
	if again.CompressedSize > res.CompressedSize {
		t.Errorf("recompression grew %d -> %d", res.CompressedSize, again.CompressedSize)
	}
}

func TestCompress_PageFailureDiscardsRasterization(t *testing.T) {
	t.Parallel()

	src := padded(3)
	fr := &rastertest.Fake{FailAt: 2}
	res, err := NewSelector(fr).Compress(context.Background(), src, Ebook, nil)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}
	if res.Strategy == "rasterize" {
		t.Error("rasterization won despite a failed page")
	}
	if diff := cmp.Diff([]int{1, 2}, fr.Rendered()); diff != "" {
		t.Errorf("pages rendered after the failure (-want +got):\n%s", diff)
	}
}

func TestCompress_AllStrategiesFail(t *testing.T) {
	t.Parallel()

	fail := func(*pdfdoc.Document) ([]byte, error) { return nil, errors.New("boom") }
	sel := NewSelectorWith(funcStrategy{"a", fail}, funcStrategy{"b", fail})

	src := pdftest.Simple(1)
	res, err := sel.Compress(context.Background(), src, Ebook, nil)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}
	if res.Strategy != Original || !bytes.Equal(res.Output, src) {
		t.Errorf("Strategy = %q, want the untouched original", res.Strategy)
	}
	if res.SavingsPercent() != 0 {
		t.Errorf("SavingsPercent() = %d, want 0", res.SavingsPercent())
	}
	if !strings.HasPrefix(res.Summary(), "Already optimal") {
		t.Errorf("Summary() = %q", res.Summary())
	}
}

func TestCompress_TieKeepsOriginal(t *testing.T) {
	t.Parallel()

	same := func(doc *pdfdoc.Document) ([]byte, error) { return bytes.Clone(doc.Bytes), nil }
	sel := NewSelectorWith(funcStrategy{"copy", same})

	res, err := sel.Compress(context.Background(), pdftest.Simple(1), Ebook, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != Original {
		t.Errorf("Strategy = %q, want %q on a tie", res.Strategy, Original)
	}
}

func TestCompress_Unreadable(t *testing.T) {
	t.Parallel()

	_, err := NewSelector(&rastertest.Fake{}).Compress(context.Background(), []byte("%PDF-1.4 junk"), Ebook, nil)
	if !errors.Is(err, models.ErrDocumentUnreadable) {
		t.Errorf("error = %v, want ErrDocumentUnreadable", err)
	}

	_, err = NewSelector(&rastertest.Fake{}).Compress(context.Background(), pdftest.Simple(1), Level("max"), nil)
	if !errors.Is(err, models.ErrInvalidSelection) {
		t.Errorf("error = %v, want ErrInvalidSelection", err)
	}
}

func TestCompress_Progress(t *testing.T) {
	t.Parallel()

	var got []int
	_, err := NewSelector(&rastertest.Fake{}).Compress(context.Background(), pdftest.Simple(4), Ebook, func(p int) {
		got = append(got, p)
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) == 0 || got[0] != 10 || got[len(got)-1] != 100 {
		t.Fatalf("progress = %v, want 10 ... 100", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("progress not increasing at %d: %v", i, got)
		}
	}
	for _, want := range []int{20, 30, 45, 60, 75, 90, 95} {
		if !contains(got, want) {
			t.Errorf("progress %v lacks %d", got, want)
		}
	}
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func TestCompress_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fr := &rastertest.Fake{CancelAt: 1, Cancel: cancel}

	_, err := NewSelector(fr).Compress(ctx, pdftest.Simple(3), Ebook, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if diff := cmp.Diff([]int{1}, fr.Rendered()); diff != "" {
		t.Errorf("rendering continued after cancellation (-want +got):\n%s", diff)
	}
}

func TestStrategies_ClearProducer(t *testing.T) {
	t.Parallel()

	src := pdftest.Build(pdftest.Doc{
		Pages: pdftest.Pages(2),
		Info:  map[string]string{"Producer": "Printer", "Creator": "Writer", "Author": "A"},
	})
	doc, err := pdfdoc.Open(src, pdfdoc.Credentials{})
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range []Strategy{MetadataStrip{}, Rasterize{Rasterizer: &rastertest.Fake{}}} {
		t.Run(s.Name(), func(t *testing.T) {
			t.Parallel()

			out, err := s.Apply(context.Background(), doc, Screen, func(float64) {})
			if err != nil {
				t.Fatalf("Apply() error: %v", err)
			}
			info, err := pdfdoc.Info(out)
			if err != nil {
				t.Fatalf("Info() error: %v", err)
			}
			for _, k := range []string{"Producer", "Creator", "Author"} {
				if v, ok := info[k]; ok {
					t.Errorf("%s = %q, want it cleared", k, v)
				}
			}
		})
	}
}

func TestRasterize_FractionalPageSize(t *testing.T) {
	t.Parallel()

	a4 := pdftest.Page{W: 595.28, H: 841.89}
	landscape := pdftest.Page{W: 595.28, H: 841.89, Rotate: 90}
	src := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{a4, landscape}})
	doc, err := pdfdoc.Open(src, pdfdoc.Credentials{})
	if err != nil {
		t.Fatal(err)
	}

	out, err := Rasterize{Rasterizer: &rastertest.Fake{}}.Apply(context.Background(), doc, Ebook, func(float64) {})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	got, err := pdfdoc.Open(out, pdfdoc.Credentials{})
	if err != nil {
		t.Fatalf("output unreadable: %v", err)
	}

	want := [][2]float64{{595.28, 841.89}, {841.89, 595.28}}
	for i, p := range got.Pages {
		size := p.Display()
		if math.Abs(size.W-want[i][0]) > 0.01 || math.Abs(size.H-want[i][1]) > 0.01 {
			t.Errorf("page %d size = %vx%v, want %vx%v", i+1, size.W, size.H, want[i][0], want[i][1])
		}
	}
}

func TestSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		i, n, lo, hi int
	}{
		{0, 1, 20, 30},
		{0, 2, 20, 30},
		{1, 2, 30, 90},
		{1, 3, 30, 60},
		{2, 3, 60, 90},
	}
	for _, tt := range tests {
		lo, hi := span(tt.i, tt.n)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("span(%d, %d) = %d, %d, want %d, %d", tt.i, tt.n, lo, hi, tt.lo, tt.hi)
		}
	}
}
