// Package pdftest writes small, valid PDF files for tests. Pages carry
// distinct media boxes so that page identity survives copying and can be
// asserted through page geometry.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Page describes one page of a generated document.
type Page struct {
	W, H   float64
	Rotate int
}

// Doc describes a generated document.
type Doc struct {
	Pages []Page
	Info  map[string]string
	// Padding adds an uncompressed comment block to every content stream,
	// making the file large enough for compression to have an effect.
	Padding int
}

// Pages returns n portrait pages whose widths are 200, 210, 220, ... so page
// i can be recognised by its width.
func Pages(n int) []Page {
	ps := make([]Page, n)
	for i := range ps {
		ps[i] = Page{W: Width(i), H: 400}
	}
	return ps
}

// Width is the width given to the i-th (0-based) page by Pages.
func Width(i int) float64 {
	return 200 + float64(10*i)
}

// Build renders d to PDF bytes with a classic cross-reference table.
func Build(d Doc) []byte {
	var buf bytes.Buffer
	offsets := []int{0}

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets)-1, body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	n := len(d.Pages)
	kids := make([]string, n)
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	for i, p := range d.Pages {
		rot := ""
		if p.Rotate != 0 {
			rot = fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << >> /Contents %d 0 R%s >>",
			num(p.W), num(p.H), 4+2*i, rot))

		content := fmt.Sprintf("q 0.%d 0.2 0.2 rg 10 10 %s %s re f Q\n", i%10, num(p.W/2), num(p.H/2))
		if d.Padding > 0 {
			content += "%" + strings.Repeat("x", d.Padding) + "\n"
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	infoRef := 0
	if len(d.Info) > 0 {
		keys := make([]string, 0, len(d.Info))
		for k := range d.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString("<<")
		for _, k := range keys {
			fmt.Fprintf(&sb, " /%s (%s)", k, d.Info[k])
		}
		sb.WriteString(" >>")
		obj(sb.String())
		infoRef = len(offsets) - 1
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets[1:] {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	buf.WriteString("trailer\n")
	if infoRef > 0 {
		fmt.Fprintf(&buf, "<< /Size %d /Root 1 0 R /Info %d 0 R >>\n", len(offsets), infoRef)
	} else {
		fmt.Fprintf(&buf, "<< /Size %d /Root 1 0 R >>\n", len(offsets))
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

// Simple is Build for n recognisable pages without metadata.
func Simple(n int) []byte {
	return Build(Doc{Pages: Pages(n)})
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
