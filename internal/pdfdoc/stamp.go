package pdfdoc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// StampFont is the standard font used for text marks.
const StampFont = "Helvetica-Bold"

// Vertical metrics of Helvetica-Bold per 1000 units of font size.
const (
	stampAscent  = 718
	stampDescent = -207
)

// RGB is a colour with components in [0,1].
type RGB struct{ R, G, B float64 }

// Picture is an image placed by one or more marks. A Picture is embedded once
// no matter how many pages show it.
type Picture struct {
	Img image.Image
}

// Stamp is one draw operation on one page.
type Stamp struct {
	Page    int // 1-based
	Mark    layout.Mark
	Opacity float64

	// Exactly one of Text or Picture is set.
	Text     string
	FontSize float64
	Color    RGB
	Picture  *Picture
}

// TextBox returns the bounding box of text set in the stamp font.
func TextBox(text string, size float64) layout.Size {
	w := font.TextWidth(text, StampFont, int(size+0.5))
	h := size * float64(stampAscent-stampDescent) / 1000
	return layout.Size{W: w, H: h}
}

// ApplyStamps draws every stamp onto its page and returns the new document.
// Stamps are independent; their order only decides overlap.
func ApplyStamps(src []byte, stamps []Stamp) ([]byte, error) {
	ctx, err := readContext(src, Credentials{})
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	s := &stamper{
		ctx:      ctx,
		pictures: map[*Picture]*types.IndirectRef{},
		states:   map[string]*types.IndirectRef{},
	}

	byPage := map[int][]Stamp{}
	var order []int
	for _, st := range stamps {
		if st.Page < 1 || st.Page > ctx.PageCount {
			return nil, fmt.Errorf("page %d out of range 1-%d", st.Page, ctx.PageCount)
		}
		if _, ok := byPage[st.Page]; !ok {
			order = append(order, st.Page)
		}
		byPage[st.Page] = append(byPage[st.Page], st)
	}

	for _, pageNr := range order {
		if err := s.stampPage(pageNr, byPage[pageNr]); err != nil {
			return nil, &models.PageError{Page: pageNr, Err: err}
		}
	}
	return write(ctx)
}

type stamper struct {
	ctx      *model.Context
	font     *types.IndirectRef
	pictures map[*Picture]*types.IndirectRef
	states   map[string]*types.IndirectRef
}

func (s *stamper) stampPage(pageNr int, stamps []Stamp) error {
	d, _, inh, err := s.ctx.PageDict(pageNr, false)
	if err != nil {
		return err
	}

	res, err := s.pageResources(d, inh)
	if err != nil {
		return err
	}

	var ops strings.Builder
	ops.WriteString("Q\n")
	for _, st := range stamps {
		gs, err := s.opacityState(st.Opacity)
		if err != nil {
			return err
		}
		gsName := "GSptb" + opacityKey(st.Opacity)
		if err := addResource(s.ctx, res, "ExtGState", gsName, *gs); err != nil {
			return err
		}

		m := st.Mark.Matrix()
		fmt.Fprintf(&ops, "q\n/%s gs\n%s cm\n", gsName, nums(m[:]...))

		switch {
		case st.Picture != nil:
			ref, err := s.picture(st.Picture)
			if err != nil {
				return err
			}
			name := "Imptb" + strconv.Itoa(ref.ObjectNumber.Value())
			if err := addResource(s.ctx, res, "XObject", name, *ref); err != nil {
				return err
			}
			w, h := st.Mark.Size.W, st.Mark.Size.H
			fmt.Fprintf(&ops, "%s cm\n/%s Do\n", nums(w, 0, 0, h, -w/2, -h/2), name)

		default:
			ref, err := s.stampFont()
			if err != nil {
				return err
			}
			if err := addResource(s.ctx, res, "Font", "Fptb", *ref); err != nil {
				return err
			}
			enc, err := winAnsi(st.Text)
			if err != nil {
				return err
			}
			w, h := st.Mark.Size.W, st.Mark.Size.H
			baseline := -h/2 - st.FontSize*stampDescent/1000
			fmt.Fprintf(&ops, "BT\n/Fptb %s Tf\n%s rg\n%s Td\n<%s> Tj\nET\n",
				nums(st.FontSize), nums(st.Color.R, st.Color.G, st.Color.B), nums(-w/2, baseline), hex.EncodeToString(enc))
		}
		ops.WriteString("Q\n")
	}

	d.Update("Resources", res)
	return s.wrapContents(d, []byte(ops.String()))
}

// wrapContents brackets the existing content in q/Q so its graphics state
// cannot leak into the stamps appended after it.
func (s *stamper) wrapContents(d types.Dict, ops []byte) error {
	pre, err := s.newStream([]byte("q\n"))
	if err != nil {
		return err
	}
	post, err := s.newStream(ops)
	if err != nil {
		return err
	}

	arr := types.Array{*pre}
	if o, found := d.Find("Contents"); found && o != nil {
		switch c := o.(type) {
		case types.IndirectRef:
			deref, err := s.ctx.Dereference(c)
			if err != nil {
				return err
			}
			if inner, ok := deref.(types.Array); ok {
				arr = append(arr, inner...)
			} else {
				arr = append(arr, c)
			}
		case types.Array:
			arr = append(arr, c...)
		default:
			return fmt.Errorf("unexpected page contents type %T", o)
		}
	}
	arr = append(arr, *post)
	d.Update("Contents", arr)
	return nil
}

func (s *stamper) pageResources(d types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	if o, found := d.Find("Resources"); found {
		res, err := s.ctx.DereferenceDict(o)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	if inh != nil && inh.Resources != nil {
		if res, ok := inh.Resources.Clone().(types.Dict); ok {
			return res, nil
		}
	}
	return types.NewDict(), nil
}

func addResource(ctx *model.Context, res types.Dict, kind, name string, ref types.IndirectRef) error {
	sub := types.NewDict()
	if o, found := res.Find(kind); found {
		d, err := ctx.DereferenceDict(o)
		if err != nil {
			return err
		}
		if d != nil {
			sub = d
		}
	}
	sub.Update(name, ref)
	res.Update(kind, sub)
	return nil
}

func (s *stamper) stampFont() (*types.IndirectRef, error) {
	if s.font != nil {
		return s.font, nil
	}
	d := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(StampFont),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ref, err := s.ctx.IndRefForNewObject(d)
	if err != nil {
		return nil, err
	}
	s.font = ref
	return ref, nil
}

func (s *stamper) opacityState(op float64) (*types.IndirectRef, error) {
	key := opacityKey(op)
	if ref, ok := s.states[key]; ok {
		return ref, nil
	}
	d := types.Dict{
		"Type": types.Name("ExtGState"),
		"CA":   types.Float(op),
		"ca":   types.Float(op),
	}
	ref, err := s.ctx.IndRefForNewObject(d)
	if err != nil {
		return nil, err
	}
	s.states[key] = ref
	return ref, nil
}

func (s *stamper) picture(p *Picture) (*types.IndirectRef, error) {
	if ref, ok := s.pictures[p]; ok {
		return ref, nil
	}

	b := p.Img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image")
	}
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := p.Img.At(x, y).RGBA()
			if a != 0 {
				// Un-premultiply so the soft mask alone carries transparency.
				r, g, bl = r*0xffff/a, g*0xffff/a, bl*0xffff/a
			}
			rgb = append(rgb, byte(r>>8), byte(g>>8), byte(bl>>8))
			alpha = append(alpha, byte(a>>8))
			if a != 0xffff {
				opaque = false
			}
		}
	}

	d := imageDict(w, h, "DeviceRGB")
	if !opaque {
		mask, err := s.newImage(imageDict(w, h, "DeviceGray"), alpha)
		if err != nil {
			return nil, err
		}
		d.Insert("SMask", *mask)
	}
	ref, err := s.newImage(d, rgb)
	if err != nil {
		return nil, err
	}
	s.pictures[p] = ref
	return ref, nil
}

func imageDict(w, h int, cs string) types.Dict {
	return types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(w),
		"Height":           types.Integer(h),
		"ColorSpace":       types.Name(cs),
		"BitsPerComponent": types.Integer(8),
	}
}

func (s *stamper) newImage(d types.Dict, data []byte) (*types.IndirectRef, error) {
	return s.flateStream(d, data)
}

func (s *stamper) newStream(data []byte) (*types.IndirectRef, error) {
	return s.flateStream(types.NewDict(), data)
}

func (s *stamper) flateStream(d types.Dict, data []byte) (*types.IndirectRef, error) {
	d.Insert("Filter", types.Name(filter.Flate))
	sd := types.StreamDict{
		Dict:           d,
		Content:        data,
		FilterPipeline: []types.PDFFilter{{Name: filter.Flate, DecodeParms: nil}},
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("failed to encode stream: %w", err)
	}
	return s.ctx.IndRefForNewObject(sd)
}

// winAnsi encodes text for the stamp font. Characters outside the encoding
// become '?'.
func winAnsi(text string) ([]byte, error) {
	enc := charmap.Windows1252.NewEncoder()
	var buf bytes.Buffer
	for _, r := range text {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil || len(b) == 0 {
			buf.WriteByte('?')
			continue
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

func opacityKey(op float64) string {
	return strconv.Itoa(int(op*100 + 0.5))
}

func nums(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		s := strconv.FormatFloat(f, 'f', 4, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
		if s == "-0" || s == "" {
			s = "0"
		}
		parts[i] = s
	}
	return strings.Join(parts, " ")
}
