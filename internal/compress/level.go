package compress

import (
	"strings"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// Level is a compression preset.
type Level string

const (
	Screen  Level = "screen"
	Ebook   Level = "ebook"
	Printer Level = "printer"
)

// DefaultLevel is used when no level is given.
const DefaultLevel = Ebook

// Settings are the parameters a Level stands for.
type Settings struct {
	// Scale is the render scale relative to 72 dpi.
	Scale float64
	// Quality is the JPEG quality in (0,1].
	Quality float64
	// Rasterize enables the page rasterization strategy.
	Rasterize bool
}

var levels = map[Level]Settings{
	Screen:  {Scale: 0.75, Quality: 0.30, Rasterize: true},
	Ebook:   {Scale: 1.0, Quality: 0.50, Rasterize: true},
	Printer: {Scale: 1.5, Quality: 0.80, Rasterize: true},
}

// Levels lists every level from smallest to highest fidelity.
func Levels() []Level { return []Level{Screen, Ebook, Printer} }

// ParseLevel maps a level name to a Level. An empty name selects
// DefaultLevel.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLevel, nil
	}
	l := Level(s)
	if _, ok := levels[l]; !ok {
		return "", models.Invalidf("unknown compression level %q (want screen, ebook or printer)", s)
	}
	return l, nil
}

// Settings returns the parameters of l.
func (l Level) Settings() Settings { return levels[l] }

// StripTitle reports whether the metadata strategy also removes the title.
func (l Level) StripTitle() bool { return l == Screen }

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
