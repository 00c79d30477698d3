// Package assemble orchestrates document extraction: it classifies each
// source page, reconstructs or transcribes its content, converts the result
// to blocks, and commits the whole session into the target document in a
// single atomic insertion.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/blockconv"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/pagesource"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/raster"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/textlayer"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/transcribe"
)

// imageLabel heads the committed content of a standalone image extraction,
// where no page number applies.
const imageLabel = "extracted content"

// State of an extraction session.
type State string

const (
	Idle       State = "idle"
	Extracting State = "extracting"
	Committed  State = "committed"
	Aborted    State = "aborted"
)

// ErrBusy is returned when an extraction is started while another one is
// already in flight on the same assembler. Callers are expected to check
// Busy before starting; the assembler does not queue.
var ErrBusy = errors.New("extraction already in progress")

// Transcriber is the slice of the transcription client the assembler needs.
type Transcriber interface {
	Transcribe(ctx context.Context, images [][]byte) (transcribe.Result, error)
}

// Assembler runs extraction sessions against a transcription backend.
// Pages are processed strictly sequentially: one page's rasterize,
// transcribe and convert chain completes before the next page starts, so at
// most one page bitmap is live at a time.
type Assembler struct {
	transcriber Transcriber
	log         *logrus.Logger

	mu      sync.Mutex
	state   State
	current int
	total   int
}

// New returns an idle assembler using the given transcription client.
func New(t Transcriber, log *logrus.Logger) *Assembler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assembler{transcriber: t, log: log, state: Idle}
}

// State returns the state of the most recent session.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Busy reports whether a session is currently extracting.
func (a *Assembler) Busy() bool {
	return a.State() == Extracting
}

// Progress returns the current and total page counters of the running
// session. Observational only; it has no bearing on commit semantics.
func (a *Assembler) Progress() (current, total int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current, a.total
}

func (a *Assembler) begin(total int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Extracting {
		return ErrBusy
	}
	a.state = Extracting
	a.current = 0
	a.total = total
	return nil
}

func (a *Assembler) setPage(n int) {
	a.mu.Lock()
	a.current = n
	a.mu.Unlock()
}

func (a *Assembler) finish(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Run extracts every page of src and commits the result into doc after the
// block with anchorID (end of document when empty). All-or-nothing: if any
// page fails, or ctx is cancelled mid-session, nothing is inserted and the
// session ends Aborted. Cancelling ctx is the abort handle for an in-flight
// session; it takes effect at the next page boundary or suspension point.
func (a *Assembler) Run(ctx context.Context, src *pagesource.Source, doc *block.Document, anchorID string) error {
	if err := a.begin(len(src.Pages)); err != nil {
		return err
	}

	// Accumulated per page, committed only when every page succeeded.
	perPage := make([][]block.Block, 0, len(src.Pages))
	for _, page := range src.Pages {
		a.setPage(page.Index)
		if err := ctx.Err(); err != nil {
			a.finish(Aborted)
			return err
		}
		blocks, err := a.extractPage(ctx, page)
		if err != nil {
			a.finish(Aborted)
			a.log.WithError(err).WithField("page", page.Index).Warn("extraction aborted")
			return fmt.Errorf("page %d: %w", page.Index, err)
		}
		perPage = append(perPage, blocks)
	}

	merged := make([]block.Block, 0, len(perPage)*2)
	for i, blocks := range perPage {
		merged = append(merged, pageHeading(fmt.Sprintf("Page %d", i+1)))
		merged = append(merged, blocks...)
		if i < len(perPage)-1 {
			merged = append(merged, block.NewRule())
		}
	}

	if err := doc.InsertAfter(anchorID, merged...); err != nil {
		a.finish(Aborted)
		return fmt.Errorf("committing extraction: %w", err)
	}
	a.finish(Committed)
	return nil
}

// ExtractImage transcribes a single standalone image and commits it
// immediately under a fixed label. The image is already at capture
// resolution, so it goes to the backend unchanged; only page bitmaps are
// upscaled.
func (a *Assembler) ExtractImage(ctx context.Context, imageData []byte, doc *block.Document, anchorID string) error {
	if err := a.begin(1); err != nil {
		return err
	}
	a.setPage(1)

	img, err := raster.PassThrough(imageData)
	if err != nil {
		a.finish(Aborted)
		return fmt.Errorf("validating image: %w", err)
	}
	blocks, err := a.transcribe(ctx, img)
	if err != nil {
		a.finish(Aborted)
		return err
	}

	merged := append([]block.Block{pageHeading(imageLabel)}, blocks...)
	if err := doc.InsertAfter(anchorID, merged...); err != nil {
		a.finish(Aborted)
		return fmt.Errorf("committing extraction: %w", err)
	}
	a.finish(Committed)
	return nil
}

// extractPage produces the block subtree for one source page. Born-digital
// pages are reconstructed from their text layer with no backend call;
// scanned pages go through rasterize, transcribe and markup conversion.
func (a *Assembler) extractPage(ctx context.Context, page pagesource.SourcePage) ([]block.Block, error) {
	if textlayer.Classify(page.Fragments) == textlayer.BornDigital {
		return blockconv.LinesToBlocks(textlayer.ReconstructLines(page.Fragments)), nil
	}
	if len(page.ImageData) == 0 {
		return nil, errors.New("scanned page has no raster source")
	}
	rendered, err := raster.RenderPage(page.ImageData)
	if err != nil {
		return nil, fmt.Errorf("rasterizing: %w", err)
	}
	return a.transcribe(ctx, rendered)
}

func (a *Assembler) transcribe(ctx context.Context, image []byte) ([]block.Block, error) {
	res, err := a.transcriber.Transcribe(ctx, [][]byte{image})
	if err != nil {
		return nil, fmt.Errorf("transcribing: %w", err)
	}
	if !res.OK {
		return nil, errors.New("transcription failed")
	}
	return blockconv.ToBlocks(res.Text), nil
}

func pageHeading(label string) block.Block {
	return block.NewHeading(2, label)
}
