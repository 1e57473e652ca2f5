// Package layout holds the page geometry used to place watermarks and
// signatures. Everything here is a pure function of page size, anchor, and the
// bounding box of the content being placed.
//
// Two coordinate spaces are involved. Display space is the page as a viewer
// shows it after applying /Rotate, origin bottom-left. User space is the
// unrotated coordinate system that content streams are written in.
package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// Margin is the distance kept between an anchored box and the page edge, in points.
const Margin = 40.0

// Anchor is one of the nine positions of the placement grid.
type Anchor int

const (
	Center Anchor = iota
	TopLeft
	Top
	TopRight
	Left
	Right
	BottomLeft
	Bottom
	BottomRight
)

var anchorNames = map[Anchor]string{
	Center:      "center",
	TopLeft:     "top-left",
	Top:         "top",
	TopRight:    "top-right",
	Left:        "left",
	Right:       "right",
	BottomLeft:  "bottom-left",
	Bottom:      "bottom",
	BottomRight: "bottom-right",
}

func (a Anchor) String() string {
	if s, ok := anchorNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Anchor(%d)", int(a))
}

// ParseAnchor accepts the grid names used by the UI ("top-left", "center", ...).
func ParseAnchor(s string) (Anchor, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Center, nil
	}
	for a, name := range anchorNames {
		if name == s {
			return a, nil
		}
	}
	return Center, models.Invalidf("unknown position %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Anchor) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Anchor) UnmarshalText(b []byte) error {
	v, err := ParseAnchor(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Point is a position in points.
type Point struct{ X, Y float64 }

// Size is a width and height in points.
type Size struct{ W, H float64 }

// Place returns the lower-left corner of a box of the given size anchored on a
// page of the given display size.
func Place(page, box Size, a Anchor) Point {
	left := Margin
	right := page.W - box.W - Margin
	hmid := (page.W - box.W) / 2
	top := page.H - box.H - Margin
	bottom := Margin
	vmid := (page.H - box.H) / 2

	switch a {
	case Top:
		return Point{hmid, top}
	case Bottom:
		return Point{hmid, bottom}
	case TopLeft:
		return Point{left, top}
	case TopRight:
		return Point{right, top}
	case BottomLeft:
		return Point{left, bottom}
	case BottomRight:
		return Point{right, bottom}
	case Left:
		return Point{left, vmid}
	case Right:
		return Point{right, vmid}
	default:
		return Point{hmid, vmid}
	}
}

// Page is the geometry of one page: its media box in user space and the
// clockwise /Rotate applied by viewers.
type Page struct {
	LLX, LLY float64
	W, H     float64
	Rotate   int
}

// NormRotate reduces r to one of 0, 90, 180, 270.
func NormRotate(r int) int {
	r %= 360
	if r < 0 {
		r += 360
	}
	return (r / 90) * 90
}

// Display returns the size of the page as shown by a viewer.
func (p Page) Display() Size {
	switch NormRotate(p.Rotate) {
	case 90, 270:
		return Size{p.H, p.W}
	default:
		return Size{p.W, p.H}
	}
}

// ToUser maps a display-space point to user space. The viewer turns user space
// clockwise by Rotate and shifts it back into the positive quadrant; this is
// the inverse of that transform.
func (p Page) ToUser(d Point) Point {
	var u Point
	switch NormRotate(p.Rotate) {
	case 90:
		u = Point{p.W - d.Y, d.X}
	case 180:
		u = Point{p.W - d.X, p.H - d.Y}
	case 270:
		u = Point{d.Y, p.H - d.X}
	default:
		u = d
	}
	return Point{u.X + p.LLX, u.Y + p.LLY}
}

// UserAngle returns the user-space rotation, counter-clockwise in degrees,
// that makes content appear at the visual angle deg once the viewer applies
// the page rotation.
func (p Page) UserAngle(deg float64) float64 {
	return deg + float64(NormRotate(p.Rotate))
}

// Mark is a box to be drawn centred on Center, rotated by Angle degrees
// counter-clockwise around its centre, all in user space.
type Mark struct {
	Center Point
	Size   Size
	Angle  float64
}

// Anchored places a box of the given size at anchor a on the displayed page,
// turned by deg visually, and returns it in user space.
func (p Page) Anchored(box Size, a Anchor, deg float64) Mark {
	ll := Place(p.Display(), box, a)
	c := Point{ll.X + box.W/2, ll.Y + box.H/2}
	return Mark{Center: p.ToUser(c), Size: box, Angle: p.UserAngle(deg)}
}

// Normalized is a rectangle given as fractions of the displayed page with a
// top-left origin, as produced by a pointer on a rendered preview.
type Normalized struct {
	X, Y, W, H float64
}

// Validate reports whether the rectangle lies on the page.
func (n Normalized) Validate() error {
	if n.W <= 0 || n.H <= 0 {
		return models.Invalidf("signature size must be positive")
	}
	if n.X < 0 || n.Y < 0 || n.X+n.W > 1.0001 || n.Y+n.H > 1.0001 {
		return models.Invalidf("signature must lie within the page")
	}
	return nil
}

// Upright converts a normalized rectangle into a mark that reads upright on
// the displayed page.
func (p Page) Upright(n Normalized) Mark {
	d := p.Display()
	w, h := n.W*d.W, n.H*d.H
	x := n.X * d.W
	y := d.H - (n.Y+n.H)*d.H
	c := Point{x + w/2, y + h/2}
	return Mark{Center: p.ToUser(c), Size: Size{w, h}, Angle: p.UserAngle(0)}
}

// Matrix returns the cm operands that move the origin to the mark centre and
// rotate by its angle.
func (m Mark) Matrix() [6]float64 {
	rad := m.Angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return [6]float64{cos, sin, -sin, cos, m.Center.X, m.Center.Y}
}
