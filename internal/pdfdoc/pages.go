package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Collect copies the given 1-based pages of src into a new document in the
// order listed. Pages may repeat.
func Collect(src []byte, pages []int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to collect")
	}
	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(src), &buf, sel, newConfig(Credentials{})); err != nil {
		return nil, fmt.Errorf("failed to collect pages: %w", err)
	}
	return buf.Bytes(), nil
}

// Merge concatenates the documents in order.
func Merge(srcs [][]byte) ([]byte, error) {
	if len(srcs) == 1 {
		return srcs[0], nil
	}
	rsc := make([]io.ReadSeeker, len(srcs))
	for i, s := range srcs {
		rsc[i] = bytes.NewReader(s)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rsc, &buf, false, newConfig(Credentials{})); err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	return buf.Bytes(), nil
}

// ImagePage is one encoded image (JPEG, PNG, TIFF or WebP) that becomes a
// page of the given size. Scale is the fraction of the page the image may
// occupy; 1 fills it edge to edge.
type ImagePage struct {
	Image []byte
	W, H  float64
	Scale float64
}

func (p ImagePage) sameLayout(q ImagePage) bool {
	return p.W == q.W && p.H == q.H && p.Scale == q.Scale
}

// ImportImages builds a document with one page per image, in order. Runs of
// pages sharing a layout are imported in one pass.
func ImportImages(pages []ImagePage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no images to import")
	}

	conf := newConfig(Credentials{})
	var out []byte
	for start := 0; start < len(pages); {
		end := start + 1
		for end < len(pages) && pages[end].sameLayout(pages[start]) {
			end++
		}

		imgs := make([]io.Reader, 0, end-start)
		for _, p := range pages[start:end] {
			imgs = append(imgs, bytes.NewReader(p.Image))
		}

		imp := pdfcpu.DefaultImportConfig()
		imp.PageDim = &types.Dim{Width: pages[start].W, Height: pages[start].H}
		imp.UserDim = true
		imp.Pos = types.Center
		imp.Scale = pages[start].Scale
		if imp.Scale <= 0 || imp.Scale > 1 {
			imp.Scale = 1
		}
		imp.ScaleAbs = false

		var rs io.ReadSeeker
		if out != nil {
			rs = bytes.NewReader(out)
		}
		var buf bytes.Buffer
		if err := api.ImportImages(rs, &buf, imgs, imp, conf); err != nil {
			return nil, fmt.Errorf("failed to import images %d-%d: %w", start+1, end, err)
		}
		out = buf.Bytes()
		start = end
	}
	return out, nil
}
