package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

// ErrUsage marks bad arguments.
var ErrUsage = errors.New("invalid usage")

func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	output  string
	quiet   bool
	verbose bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file path (default $PDFTOOLBOX_CONFIG)")
	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// parseFlags parses args and returns the positional arguments.
// flag.ErrHelp is passed through so the caller can exit cleanly.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return fs.Args(), nil
}

// parsePages reads "1-3,5,8" into page numbers in the order written.
func parsePages(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		for p := r.From; p <= r.To; p++ {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, models.Invalidf("no pages in %q", s)
	}
	return pages, nil
}

// parseRanges reads "1-3,4-6,9" into ranges; a single number is a one-page range.
func parseRanges(s string) ([]tools.PageRange, error) {
	var ranges []tools.PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, models.Invalidf("no page ranges in %q", s)
	}
	return ranges, nil
}

func parseRange(s string) (tools.PageRange, error) {
	from, to, isRange := strings.Cut(s, "-")
	a, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return tools.PageRange{}, models.Invalidf("bad page %q", s)
	}
	b := a
	if isRange {
		if b, err = strconv.Atoi(strings.TrimSpace(to)); err != nil {
			return tools.PageRange{}, models.Invalidf("bad page range %q", s)
		}
	}
	if a < 1 || b < a {
		return tools.PageRange{}, models.Invalidf("bad page range %q", s)
	}
	return tools.PageRange{From: a, To: b}, nil
}

// parsePlacement reads "PAGE:X,Y,W,H" with fractions of the displayed page
// measured from its top-left corner.
func parsePlacement(s string) (int, layout.Normalized, error) {
	pageStr, rectStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, layout.Normalized{}, usagef("placement %q: want PAGE:X,Y,W,H", s)
	}
	page, err := strconv.Atoi(strings.TrimSpace(pageStr))
	if err != nil {
		return 0, layout.Normalized{}, usagef("placement %q: bad page", s)
	}
	fields := strings.Split(rectStr, ",")
	if len(fields) != 4 {
		return 0, layout.Normalized{}, usagef("placement %q: want four numbers after the page", s)
	}
	var v [4]float64
	for i, f := range fields {
		if v[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64); err != nil {
			return 0, layout.Normalized{}, usagef("placement %q: bad number %q", s, f)
		}
	}
	return page, layout.Normalized{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
