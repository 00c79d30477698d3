package block

import (
	"fmt"
	"sync"
)

// Document is an owned, ordered sequence of top-level Blocks.
//
// It is mutated only through the explicit insertion operations below; every
// mutation is applied as a single atomic step, so readers never observe a
// partial insert. Block IDs are stable for the lifetime of the document and
// serve as cursor / insertion-point references.
type Document struct {
	mu     sync.Mutex
	blocks []Block
}

// NewDocument returns an empty document.
func NewDocument() *Document { return &Document{} }

// Len returns the number of top-level blocks.
func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.blocks)
}

// Blocks returns a copy of the top-level block sequence.
func (d *Document) Blocks() []Block {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Block, len(d.blocks))
	copy(out, d.blocks)
	return out
}

// Append inserts blocks at the end of the document.
func (d *Document) Append(blocks ...Block) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.blocks = append(d.blocks, blocks...)
}

// InsertAfter inserts blocks immediately after the block with the given ID.
// An empty anchor inserts at the end of the document. The whole slice is
// inserted in one step.
func (d *Document) InsertAfter(anchorID string, blocks ...Block) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if anchorID == "" {
		d.blocks = append(d.blocks, blocks...)
		return nil
	}
	for i := range d.blocks {
		if d.blocks[i].ID == anchorID {
			rest := make([]Block, len(d.blocks[i+1:]))
			copy(rest, d.blocks[i+1:])
			d.blocks = append(d.blocks[:i+1], blocks...)
			d.blocks = append(d.blocks, rest...)
			return nil
		}
	}
	return fmt.Errorf("anchor block %s not found", anchorID)
}

// ByID returns the top-level block with the given ID.
func (d *Document) ByID(id string) (Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// AppendText appends text to the last run of the block with the given ID,
// creating an unmarked run if the block has none. Used by the completion
// engine's accept step; the append is atomic with respect to readers.
func (d *Document) AppendText(id, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.blocks {
		if d.blocks[i].ID != id {
			continue
		}
		if len(d.blocks[i].Runs) == 0 {
			d.blocks[i].Runs = []InlineRun{{Text: text}}
			return nil
		}
		last := len(d.blocks[i].Runs) - 1
		d.blocks[i].Runs[last].Text += text
		return nil
	}
	return fmt.Errorf("block %s not found", id)
}

// PlainText renders the whole document as plain text, one block per line
// group. Intended for diagnostics and the extraction CLI, not for display.
func (d *Document) PlainText() string {
	var out string
	for i, b := range d.Blocks() {
		if i > 0 {
			out += "\n"
		}
		if b.Kind == Rule {
			out += "---"
			continue
		}
		out += b.Text()
	}
	return out
}
