// Package block defines the canonical structured-document model shared by
// the extraction pipeline and the writing-assistance engine.
//
// A document is an ordered sequence of Blocks. Each Block carries a closed
// Kind discriminant and, depending on the kind, either leaf InlineRuns or
// nested child Blocks. Ownership is strictly hierarchical: a parent owns its
// children and a Block never appears twice in the tree.
package block

import (
	"strings"

	"github.com/google/uuid"
)

// Kind discriminates the structural type of a Block.
type Kind string

// The closed set of block kinds recognized by the converter and the editor.
const (
	Paragraph Kind = "paragraph"
	Heading   Kind = "heading"
	ListItem  Kind = "list_item"
	Quote     Kind = "quote"
	Rule      Kind = "rule"
	Image     Kind = "image"
	Equation  Kind = "equation"
	Table     Kind = "table"
	TableRow  Kind = "table_row"
	Code      Kind = "code"
)

var knownKinds = map[Kind]bool{
	Paragraph: true,
	Heading:   true,
	ListItem:  true,
	Quote:     true,
	Rule:      true,
	Image:     true,
	Equation:  true,
	Table:     true,
	TableRow:  true,
	Code:      true,
}

// KnownKind reports whether k belongs to the closed kind set.
func KnownKind(k Kind) bool { return knownKinds[k] }

// Marks is the set of inline formatting flags carried by an InlineRun.
// Adjacent runs with identical marks are semantically equal to one merged run.
type Marks struct {
	Bold   bool
	Italic bool
	Code   bool
	Link   string // target URL, empty when the run is not a link
}

// InlineRun is leaf text content with optional marks.
type InlineRun struct {
	Text  string
	Marks Marks
}

// ListStyle describes the rendering style of a list item.
type ListStyle string

const (
	Bullet  ListStyle = "bullet"
	Ordered ListStyle = "ordered"
)

// Block is one node of the document tree.
type Block struct {
	ID   string // stable identifier, used for cursor and insertion anchors
	Kind Kind

	// Kind-specific attributes.
	Level int       // heading level 1..6
	Style ListStyle // list items
	URL   string    // image source

	Runs     []InlineRun // leaf content (paragraph, heading, list_item, ...)
	Children []Block     // nested blocks (quote, table rows, nested lists)
}

// New returns a Block of the given kind with a fresh stable ID.
func New(k Kind) Block {
	return Block{ID: uuid.NewString(), Kind: k}
}

// NewParagraph returns a paragraph block holding a single unmarked run.
func NewParagraph(text string) Block {
	b := New(Paragraph)
	b.Runs = []InlineRun{{Text: text}}
	return b
}

// NewHeading returns a heading block of the given level (clamped to 1..6).
func NewHeading(level int, text string) Block {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	b := New(Heading)
	b.Level = level
	b.Runs = []InlineRun{{Text: text}}
	return b
}

// NewRule returns a horizontal-rule separator block.
func NewRule() Block { return New(Rule) }

// Text returns the concatenated plain text of the block's runs and children.
func (b Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	for i, c := range b.Children {
		if i > 0 || sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(c.Text())
	}
	return sb.String()
}
