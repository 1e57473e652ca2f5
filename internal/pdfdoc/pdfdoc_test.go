package pdfdoc

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/pdftest"
)

// widths returns the page widths of src, which identify pdftest pages.
func widths(t *testing.T, src []byte) []float64 {
	t.Helper()
	doc, err := Open(src, Credentials{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	ws := make([]float64, len(doc.Pages))
	for i, p := range doc.Pages {
		ws[i] = p.W
	}
	return ws
}

func TestOpen(t *testing.T) {
	t.Parallel()

	src := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{
		{W: 300, H: 500},
		{W: 600, H: 400, Rotate: 90},
		{W: 200, H: 200, Rotate: -90},
	}})

	doc, err := Open(src, Credentials{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if doc.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", doc.PageCount)
	}
	if doc.Encrypted {
		t.Error("Encrypted = true for a plain document")
	}
	if !bytes.Equal(doc.Bytes, src) {
		t.Error("Bytes differ from the plain source")
	}

	want := []layout.Page{
		{W: 300, H: 500},
		{W: 600, H: 400, Rotate: 90},
		{W: 200, H: 200, Rotate: 270},
	}
	if diff := cmp.Diff(want, doc.Pages); diff != "" {
		t.Errorf("Pages mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_Unreadable(t *testing.T) {
	t.Parallel()

	tests := map[string][]byte{
		"empty":     nil,
		"garbage":   []byte("definitely not a pdf"),
		"truncated": pdftest.Simple(2)[:60],
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Open(src, Credentials{})
			if !errors.Is(err, models.ErrDocumentUnreadable) {
				t.Errorf("Open() error = %v, want ErrDocumentUnreadable", err)
			}
		})
	}
}

func TestOpen_EmptyUserPassword(t *testing.T) {
	t.Parallel()

	conf := newConfig(Credentials{Owner: "owner-secret"})
	var enc bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(pdftest.Simple(2)), &enc, conf); err != nil {
		t.Fatalf("api.Encrypt() error: %v", err)
	}

	doc, err := Open(enc.Bytes(), Credentials{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if !doc.Encrypted {
		t.Error("Encrypted = false, want true")
	}
	if len(doc.Warnings) == 0 {
		t.Error("no warning recorded for a protected document")
	}
	if doc.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", doc.PageCount)
	}

	plain, err := Open(doc.Bytes, Credentials{})
	if err != nil {
		t.Fatalf("Open(decrypted) error: %v", err)
	}
	if plain.Encrypted {
		t.Error("decrypted bytes still report encryption")
	}
}

func TestStripMetadata(t *testing.T) {
	t.Parallel()

	info := map[string]string{
		"Title":    "Quarterly",
		"Author":   "Someone",
		"Subject":  "Numbers",
		"Keywords": "q3",
		"Creator":  "Writer",
		"Producer": "Printer",
	}
	src := pdftest.Build(pdftest.Doc{Pages: pdftest.Pages(2), Info: info})

	tests := []struct {
		name         string
		includeTitle bool
		want         map[string]string
	}{
		{"keep title", false, map[string]string{"Title": "Quarterly"}},
		{"drop title", true, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := StripMetadata(src, tt.includeTitle)
			if err != nil {
				t.Fatalf("StripMetadata() error: %v", err)
			}
			got, err := Info(out)
			if err != nil {
				t.Fatalf("Info() error: %v", err)
			}
			for _, k := range strippedInfoKeys {
				if _, ok := got[k]; ok {
					t.Errorf("%s survived stripping", k)
				}
			}
			if tt.want["Title"] != got["Title"] {
				t.Errorf("Title = %q, want %q", got["Title"], tt.want["Title"])
			}
			if diff := cmp.Diff(pdftest.Pages(2)[1].W, widths(t, out)[1]); diff != "" {
				t.Errorf("page geometry changed (-want +got):\n%s", diff)
			}
		})
	}
}

// Passes differ only in the rewritten date strings and document ID.
const stripSizeTolerance = 32

func TestStripMetadata_SizeStable(t *testing.T) {
	t.Parallel()

	src := pdftest.Build(pdftest.Doc{
		Pages: pdftest.Pages(3),
		Info:  map[string]string{"Title": "T", "Producer": "Printer", "Creator": "Writer"},
	})

	first, err := StripMetadata(src, false)
	if err != nil {
		t.Fatalf("first StripMetadata() error: %v", err)
	}
	second, err := StripMetadata(first, false)
	if err != nil {
		t.Fatalf("second StripMetadata() error: %v", err)
	}

	if d := len(second) - len(first); d > stripSizeTolerance || d < -stripSizeTolerance {
		t.Errorf("second pass changed size %d -> %d, tolerance %d bytes", len(first), len(second), stripSizeTolerance)
	}
	info, err := Info(second)
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if p, ok := info["Producer"]; ok {
		t.Errorf("Producer = %q after two passes", p)
	}
}

func TestDropProducer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		producer string
	}{
		{"plain", "pdfcpu v0.11.0 dev"},
		{"nested parentheses", "Tool (beta) 1.0"},
		{"escaped parenthesis", `Tool \) 2`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := pdftest.Build(pdftest.Doc{
				Pages: pdftest.Pages(2),
				Info:  map[string]string{"Producer": tt.producer, "Title": "Kept"},
			})
			out := dropProducer(src)
			if len(out) != len(src) {
				t.Fatalf("length %d -> %d, offsets would shift", len(src), len(out))
			}

			info, err := Info(out)
			if err != nil {
				t.Fatalf("Info() error: %v", err)
			}
			want := map[string]string{"Title": "Kept"}
			if diff := cmp.Diff(want, info); diff != "" {
				t.Errorf("info mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(pdftest.Pages(2)[1].W, widths(t, out)[1]); diff != "" {
				t.Errorf("page geometry changed (-want +got):\n%s", diff)
			}
		})
	}

	if got := dropProducer(pdftest.Simple(1)); !bytes.Equal(got, pdftest.Simple(1)) {
		t.Error("document without an info dictionary was modified")
	}
}

func TestCollect(t *testing.T) {
	t.Parallel()

	src := pdftest.Simple(5)
	out, err := Collect(src, []int{4, 2, 2, 5})
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}

	want := []float64{pdftest.Width(3), pdftest.Width(1), pdftest.Width(1), pdftest.Width(4)}
	if diff := cmp.Diff(want, widths(t, out)); diff != "" {
		t.Errorf("page order mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	a := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{W: 111, H: 400}}})
	b := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{W: 222, H: 400}, {W: 223, H: 400}}})
	c := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{W: 333, H: 400}}})

	out, err := Merge([][]byte{a, b, c})
	if err != nil {
		t.Fatalf("Merge() error: %v", err)
	}
	if diff := cmp.Diff([]float64{111, 222, 223, 333}, widths(t, out)); diff != "" {
		t.Errorf("merged order mismatch (-want +got):\n%s", diff)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error: %v", err)
	}
	return buf.Bytes()
}

func TestImportImages(t *testing.T) {
	t.Parallel()

	pages := []ImagePage{
		{Image: pngBytes(t, 20, 10), W: 300, H: 150},
		{Image: pngBytes(t, 20, 10), W: 300, H: 150},
		{Image: pngBytes(t, 10, 20), W: 150, H: 300},
	}
	out, err := ImportImages(pages)
	if err != nil {
		t.Fatalf("ImportImages() error: %v", err)
	}
	if diff := cmp.Diff([]float64{300, 300, 150}, widths(t, out)); diff != "" {
		t.Errorf("page sizes mismatch (-want +got):\n%s", diff)
	}

	if _, err := ImportImages(nil); err == nil {
		t.Error("ImportImages(nil) succeeded, want error")
	}
}

func TestApplyStamps(t *testing.T) {
	t.Parallel()

	src := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{
		{W: 300, H: 500},
		{W: 600, H: 400, Rotate: 90},
	}})
	doc, err := Open(src, Credentials{})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	logo := &Picture{Img: image.NewNRGBA(image.Rect(0, 0, 8, 4))}
	box := TextBox("DRAFT", 48)
	stamps := []Stamp{
		{Page: 1, Mark: doc.Pages[0].Anchored(box, layout.Center, 45), Opacity: 0.3, Text: "DRAFT", FontSize: 48},
		{Page: 2, Mark: doc.Pages[1].Anchored(box, layout.TopLeft, 0), Opacity: 0.3, Text: "DRAFT", FontSize: 48},
		{Page: 2, Mark: doc.Pages[1].Upright(layout.Normalized{X: 0.1, Y: 0.1, W: 0.2, H: 0.1}), Opacity: 1, Picture: logo},
	}

	out, err := ApplyStamps(src, stamps)
	if err != nil {
		t.Fatalf("ApplyStamps() error: %v", err)
	}

	stamped, err := Open(out, Credentials{})
	if err != nil {
		t.Fatalf("Open(stamped) error: %v", err)
	}
	if diff := cmp.Diff(doc.Pages, stamped.Pages); diff != "" {
		t.Errorf("page geometry changed (-want +got):\n%s", diff)
	}

	ctx, err := readContext(out, Credentials{})
	if err != nil {
		t.Fatalf("readContext() error: %v", err)
	}
	for _, tc := range []struct {
		page int
		kind string
		name string
	}{
		{1, "Font", "Fptb"},
		{2, "Font", "Fptb"},
		{1, "ExtGState", "GSptb30"},
	} {
		d, _, _, err := ctx.PageDict(tc.page, false)
		if err != nil {
			t.Fatalf("PageDict(%d) error: %v", tc.page, err)
		}
		res, err := ctx.DereferenceDict(d["Resources"])
		if err != nil || res == nil {
			t.Fatalf("page %d: no resources (%v)", tc.page, err)
		}
		sub, err := ctx.DereferenceDict(res[tc.kind])
		if err != nil || sub == nil {
			t.Fatalf("page %d: no %s resources (%v)", tc.page, tc.kind, err)
		}
		if _, ok := sub[tc.name]; !ok {
			t.Errorf("page %d: %s resource %s missing", tc.page, tc.kind, tc.name)
		}
	}

	if _, err := ApplyStamps(src, []Stamp{{Page: 3, Text: "x", FontSize: 20}}); err == nil {
		t.Error("ApplyStamps() accepted a page out of range")
	}
}

func TestWinAnsi(t *testing.T) {
	t.Parallel()

	got, err := winAnsi("Café €5 ✓")
	if err != nil {
		t.Fatalf("winAnsi() error: %v", err)
	}
	want := []byte{'C', 'a', 'f', 0xe9, ' ', 0x80, '5', ' ', '?'}
	if !bytes.Equal(got, want) {
		t.Errorf("winAnsi() = % x, want % x", got, want)
	}
}

func TestNums(t *testing.T) {
	t.Parallel()

	if got, want := nums(1, 0.5, -0.00001, 12.34567), "1 0.5 0 12.3457"; got != want {
		t.Errorf("nums() = %q, want %q", got, want)
	}
}
