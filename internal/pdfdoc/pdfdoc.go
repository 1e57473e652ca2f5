// Package pdfdoc is the document assembler: every operation that reads,
// rewrites, or constructs PDF bytes goes through here, on top of pdfcpu.
package pdfdoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Lllllllleong/pdftoolbox/internal/layout"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

var disableConfigDir sync.Once

// Credentials are the passwords tried when opening an encrypted document.
type Credentials struct {
	User  string
	Owner string
}

func (c Credentials) blank() bool { return c.User == "" && c.Owner == "" }

// newConfig returns the pdfcpu configuration shared by all operations: relaxed
// validation, and object plus xref streams for a compact layout.
func newConfig(c Credentials) *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true
	conf.UserPW = c.User
	conf.OwnerPW = c.Owner
	return conf
}

// Document is a source that has been parsed successfully.
type Document struct {
	// Bytes holds the document without encryption. For unencrypted input it
	// is the input itself.
	Bytes     []byte
	PageCount int
	Pages     []layout.Page
	Encrypted bool
	Warnings  []string
}

// Open parses src and records page geometry. When src is protected and the
// given credentials are rejected, a blank credential is tried exactly once
// before the document is declared unreadable.
func Open(src []byte, creds Credentials) (*Document, error) {
	ctx, err := readContext(src, creds)
	if err != nil && isPasswordErr(err) && !creds.blank() {
		slog.Debug("Retrying with blank credentials.", "error", err)
		creds = Credentials{}
		ctx, err = readContext(src, creds)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDocumentUnreadable, err)
	}

	doc := &Document{Bytes: src, PageCount: ctx.PageCount}
	if doc.PageCount == 0 {
		return nil, fmt.Errorf("%w: document has no pages", models.ErrDocumentUnreadable)
	}

	doc.Pages, err = pageGeometry(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDocumentUnreadable, err)
	}

	if ctx.Encrypt != nil {
		doc.Encrypted = true
		doc.Warnings = append(doc.Warnings, "Document is password protected; it was opened with an empty password.")
		plain, err := decrypt(src, creds)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("Encryption could not be removed: %v", err))
		} else {
			doc.Bytes = plain
		}
	}
	return doc, nil
}

// Decrypt removes encryption from src using a blank credential.
func Decrypt(src []byte) ([]byte, error) {
	return decrypt(src, Credentials{})
}

func decrypt(src []byte, creds Credentials) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(src), &out, newConfig(creds)); err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages in src.
func PageCount(src []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(src), newConfig(Credentials{}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrDocumentUnreadable, err)
	}
	return n, nil
}

func readContext(src []byte, creds Credentials) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(src), newConfig(creds))
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func isPasswordErr(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "password")
}

func pageGeometry(ctx *model.Context) ([]layout.Page, error) {
	pages := make([]layout.Page, 0, ctx.PageCount)
	for i := 1; i <= ctx.PageCount; i++ {
		d, _, inh, err := ctx.PageDict(i, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		var p layout.Page
		box := rectEntry(ctx, d, "CropBox")
		if box == nil {
			box = rectEntry(ctx, d, "MediaBox")
		}
		if box == nil && inh != nil {
			box = inh.CropBox
			if box == nil {
				box = inh.MediaBox
			}
		}
		if box == nil {
			return nil, fmt.Errorf("page %d: missing media box", i)
		}
		p.LLX, p.LLY = box.LL.X, box.LL.Y
		p.W, p.H = box.Width(), box.Height()

		if r := d.IntEntry("Rotate"); r != nil {
			p.Rotate = layout.NormRotate(*r)
		} else if inh != nil {
			p.Rotate = layout.NormRotate(inh.Rotate)
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func rectEntry(ctx *model.Context, d types.Dict, key string) *types.Rectangle {
	o, found := d.Find(key)
	if !found {
		return nil
	}
	o, err := ctx.Dereference(o)
	if err != nil {
		return nil
	}
	arr, ok := o.(types.Array)
	if !ok || len(arr) != 4 {
		return nil
	}
	var f [4]float64
	for i, v := range arr {
		v, err := ctx.Dereference(v)
		if err != nil {
			return nil
		}
		switch n := v.(type) {
		case types.Integer:
			f[i] = float64(n)
		case types.Float:
			f[i] = float64(n)
		default:
			return nil
		}
	}
	return types.NewRectangle(f[0], f[1], f[2], f[3])
}
