package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdftoolbox/internal/compress"
	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/raster"
	"github.com/Lllllllleong/pdftoolbox/internal/tools"
)

// Outcome is what a finished operation produced.
type Outcome struct {
	Kind  Kind
	Files []models.File
	// Compression is set for KindCompress.
	Compression *compress.Result
	Warnings    []string
}

// Runner executes operations.
type Runner struct {
	selector *compress.Selector
	toolbox  *tools.Toolbox
	log      *slog.Logger
}

// NewRunner returns a Runner rendering pages with r.
func NewRunner(r raster.Rasterizer) *Runner {
	return &Runner{
		selector: compress.NewSelector(r),
		toolbox:  tools.New(r),
		log:      slog.Default(),
	}
}

// Toolbox exposes the tools used by the runner, for operations outside the
// task set such as Inspect.
func (r *Runner) Toolbox() *tools.Toolbox { return r.toolbox }

// Run validates p and executes it on the calling goroutine.
func (r *Runner) Run(ctx context.Context, p Params, progress models.ProgressFunc) (*Outcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	log := r.log.With("operation", p.Kind().String())
	log.Debug("Operation started.")

	out := &Outcome{Kind: p.Kind()}
	switch p := p.(type) {
	case CompressParams:
		level, _ := compress.ParseLevel(string(p.Level))
		res, err := r.selector.Compress(ctx, p.File.Data, level, progress)
		if err != nil {
			return nil, err
		}
		out.Compression = res
		out.Warnings = res.Warnings
		out.Files = []models.File{{Name: compressedName(p.File.Name), Data: res.Output}}

	case MergeParams:
		f, err := r.toolbox.Merge(ctx, p.MergeParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = []models.File{f}

	case SplitParams:
		fs, err := r.toolbox.Split(ctx, p.File, p.SplitParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = fs

	case ImagesToPDFParams:
		f, err := r.toolbox.ImagesToPDF(ctx, p.ImagesToPDFParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = []models.File{f}

	case PDFToImagesParams:
		fs, err := r.toolbox.PDFToImages(ctx, p.File, p.PDFToImagesParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = fs

	case WatermarkParams:
		f, err := r.toolbox.Watermark(ctx, p.File, p.WatermarkParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = []models.File{f}

	case SignParams:
		f, err := r.toolbox.Sign(ctx, p.File, p.SignParams, progress)
		if err != nil {
			return nil, err
		}
		out.Files = []models.File{f}

	default:
		return nil, fmt.Errorf("unsupported operation %T", p)
	}

	log.Debug("Operation finished.", "outputs", len(out.Files))
	return out, nil
}

// EventType distinguishes the messages sent by Start.
type EventType int

const (
	EventProgress EventType = iota + 1
	EventComplete
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "progress"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one message from a background operation. Exactly one of Percent,
// Outcome or Err is meaningful, depending on Type.
type Event struct {
	Type    EventType
	Percent int
	Outcome *Outcome
	Err     error
}

// Start runs p on a new goroutine. The channel carries progress events
// followed by exactly one complete or error event and is then closed. The
// caller must drain it. Once ctx is done, progress events are dropped.
func (r *Runner) Start(ctx context.Context, p Params) <-chan Event {
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		progress := func(pct int) {
			select {
			case ch <- Event{Type: EventProgress, Percent: pct}:
			case <-ctx.Done():
			}
		}
		out, err := r.Run(ctx, p, progress)
		if err != nil {
			ch <- Event{Type: EventError, Err: err}
			return
		}
		ch <- Event{Type: EventComplete, Outcome: out}
	}()
	return ch
}

func compressedName(original string) string {
	return fileio.OutputName(original, "compressed", "pdf")
}
