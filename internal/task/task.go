// Package task defines the closed set of operations and runs them either
// synchronously or on a background goroutine that reports progress events.
package task

import (
	"strings"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

// Kind names an operation.
type Kind int

const (
	KindCompress Kind = iota + 1
	KindMerge
	KindSplit
	KindImagesToPDF
	KindPDFToImages
	KindWatermark
	KindSign
)

var kindNames = map[Kind]string{
	KindCompress:    "compress",
	KindMerge:       "merge",
	KindSplit:       "split",
	KindImagesToPDF: "images-to-pdf",
	KindPDFToImages: "pdf-to-images",
	KindWatermark:   "watermark",
	KindSign:        "sign",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Kinds lists every operation.
func Kinds() []Kind {
	return []Kind{KindCompress, KindMerge, KindSplit, KindImagesToPDF, KindPDFToImages, KindWatermark, KindSign}
}

// ParseKind maps an operation name to its Kind.
func ParseKind(s string) (Kind, error) {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		if k.String() == s {
			return k, nil
		}
		names[i] = k.String()
	}
	return 0, models.Invalidf("unknown operation %q, want one of %s", s, strings.Join(names, ", "))
}

// Params is the payload of one operation. The set of implementations is
// closed; the unexported method keeps it that way.
type Params interface {
	Kind() Kind
	// Validate rejects bad parameters before any document is read.
	Validate() error
	params()
}

// CompressParams compresses File at Level.
type CompressParams struct {
	File  models.File
	Level compress.Level
}

// MergeParams merges the sources in order.
type MergeParams struct {
	tools.MergeParams
}

// SplitParams splits File.
type SplitParams struct {
	File models.File
	tools.SplitParams
}

// ImagesToPDFParams converts images into one document.
type ImagesToPDFParams struct {
	tools.ImagesToPDFParams
}

// PDFToImagesParams renders the pages of File.
type PDFToImagesParams struct {
	File models.File
	tools.PDFToImagesParams
}

// WatermarkParams stamps File.
type WatermarkParams struct {
	File models.File
	tools.WatermarkParams
}

// SignParams places signatures on File.
type SignParams struct {
	File models.File
	tools.SignParams
}

func (CompressParams) Kind() Kind    { return KindCompress }
func (MergeParams) Kind() Kind       { return KindMerge }
func (SplitParams) Kind() Kind       { return KindSplit }
func (ImagesToPDFParams) Kind() Kind { return KindImagesToPDF }
func (PDFToImagesParams) Kind() Kind { return KindPDFToImages }
func (WatermarkParams) Kind() Kind   { return KindWatermark }
func (SignParams) Kind() Kind        { return KindSign }

func (CompressParams) params()    {}
func (MergeParams) params()       {}
func (SplitParams) params()       {}
func (ImagesToPDFParams) params() {}
func (PDFToImagesParams) params() {}
func (WatermarkParams) params()   {}
func (SignParams) params()        {}

func (p CompressParams) Validate() error {
	if len(p.File.Data) == 0 {
		return models.Invalidf("select a PDF file to compress")
	}
	if _, err := compress.ParseLevel(string(p.Level)); err != nil {
		return err
	}
	return nil
}

func (p SplitParams) Validate() error {
	if err := requireFile(p.File); err != nil {
		return err
	}
	return p.SplitParams.Validate()
}

func (p PDFToImagesParams) Validate() error {
	if err := requireFile(p.File); err != nil {
		return err
	}
	return p.PDFToImagesParams.Validate()
}

func (p WatermarkParams) Validate() error {
	if err := requireFile(p.File); err != nil {
		return err
	}
	return p.WatermarkParams.Validate()
}

func (p SignParams) Validate() error {
	if err := requireFile(p.File); err != nil {
		return err
	}
	return p.SignParams.Validate()
}

func requireFile(f models.File) error {
	if len(f.Data) == 0 {
		return models.Invalidf("select a PDF file")
	}
	return nil
}
