package pdfdoc

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Info dictionary fields cleared when metadata is stripped. Title is only
// cleared on request.
var strippedInfoKeys = []string{"Author", "Subject", "Keywords", "Creator", "Producer"}

// StripMetadata clears the descriptive document information fields and
// re-serializes src with object streams, a cross-reference stream, and
// pdfcpu's resource deduplication. With includeTitle the title and the XMP
// metadata stream are removed as well. The output carries no Producer.
func StripMetadata(src []byte, includeTitle bool) ([]byte, error) {
	ctx, err := readContext(src, Credentials{})
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if err := api.OptimizeContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to optimize document: %w", err)
	}
	if err := clearInfo(ctx, includeTitle); err != nil {
		return nil, err
	}
	out, err := write(ctx)
	if err != nil {
		return nil, err
	}
	return dropProducer(out), nil
}

var (
	infoRefRE = regexp.MustCompile(`/Info\s+(\d+)\s+(\d+)\s+R`)
	// A literal string with at most one level of nested parentheses, or a
	// hex string.
	producerRE = regexp.MustCompile(`/Producer\s*(?:\((?:[^()\\]|\\.|\((?:[^()\\]|\\.)*\))*\)|<[0-9A-Fa-f\s]*>)`)
)

// dropProducer removes the Producer entry the pdfcpu writer stamps into the
// information dictionary on every write. The entry is overwritten with
// spaces in place, so every cross-reference offset stays valid. pdf is
// returned unchanged when the dictionary is not stored as a plain object.
func dropProducer(pdf []byte) []byte {
	refs := infoRefRE.FindAllSubmatch(pdf, -1)
	if len(refs) == 0 {
		return pdf
	}
	ref := refs[len(refs)-1]

	header := regexp.MustCompile(`(?:^|\s)` + string(ref[1]) + `\s+` + string(ref[2]) + `\s+obj\b`)
	heads := header.FindAllIndex(pdf, -1)
	if len(heads) == 0 {
		return pdf
	}
	start := heads[len(heads)-1][1]
	end := bytes.Index(pdf[start:], []byte("endobj"))
	if end < 0 {
		return pdf
	}

	loc := producerRE.FindIndex(pdf[start : start+end])
	if loc == nil {
		return pdf
	}
	out := bytes.Clone(pdf)
	for i := start + loc[0]; i < start+loc[1]; i++ {
		out[i] = ' '
	}
	return out
}

func clearInfo(ctx *model.Context, includeTitle bool) error {
	keys := strippedInfoKeys
	if includeTitle {
		keys = append(append([]string(nil), keys...), "Title")
	}

	if ctx.Info != nil {
		d, err := ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			return fmt.Errorf("failed to read info dictionary: %w", err)
		}
		for _, k := range keys {
			d.Delete(k)
		}
	}

	if includeTitle {
		root, err := ctx.Catalog()
		if err != nil {
			return fmt.Errorf("failed to read catalog: %w", err)
		}
		root.Delete("Metadata")
	}
	return nil
}

func write(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}

// Info returns the raw string values of the document information dictionary.
func Info(src []byte) (map[string]string, error) {
	ctx, err := readContext(src, Credentials{})
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	out := map[string]string{}
	if ctx.Info == nil {
		return out, nil
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		return nil, fmt.Errorf("failed to read info dictionary: %w", err)
	}
	for k, v := range d {
		o, err := ctx.Dereference(v)
		if err != nil {
			continue
		}
		switch s := o.(type) {
		case types.StringLiteral:
			out[k] = string(s)
		case types.HexLiteral:
			out[k] = string(s)
		}
	}
	return out, nil
}
