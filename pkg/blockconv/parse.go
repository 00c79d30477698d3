package blockconv

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
)

// parseMarkup walks the sanitized DOM and builds the block tree.
func parseMarkup(markup string) ([]block.Block, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var blocks []block.Block
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if bs, handled := elementToBlocks(n); handled {
				blocks = append(blocks, bs...)
				return
			}
		}
		if n.Type == html.TextNode {
			// Loose text between elements becomes its own paragraph.
			if text := collapseSpace(n.Data); text != "" {
				blocks = append(blocks, block.NewParagraph(text))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return blocks, nil
}

// elementToBlocks converts one structural element. The second return value
// reports whether the element was structural; non-structural elements fall
// through to the generic walk. List elements expand into one block per item.
func elementToBlocks(n *html.Node) ([]block.Block, bool) {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		runs := inlineRuns(n, block.Marks{})
		if len(runs) == 0 {
			return nil, true
		}
		b := block.New(block.Heading)
		b.Level = level
		b.Runs = runs
		return []block.Block{b}, true

	case atom.P:
		runs := inlineRuns(n, block.Marks{})
		if len(runs) == 0 {
			return nil, true
		}
		b := block.New(block.Paragraph)
		b.Runs = runs
		return []block.Block{b}, true

	case atom.Ul, atom.Ol:
		style := block.Bullet
		if n.DataAtom == atom.Ol {
			style = block.Ordered
		}
		return listItems(n, style), true

	case atom.Blockquote:
		children := childBlocks(n)
		if len(children) == 0 {
			runs := inlineRuns(n, block.Marks{})
			if len(runs) == 0 {
				return nil, true
			}
			p := block.New(block.Paragraph)
			p.Runs = runs
			children = []block.Block{p}
		}
		b := block.New(block.Quote)
		b.Children = children
		return []block.Block{b}, true

	case atom.Hr:
		return []block.Block{block.NewRule()}, true

	case atom.Pre:
		text := textContent(n)
		if text == "" {
			return nil, true
		}
		b := block.New(block.Code)
		b.Runs = []block.InlineRun{{Text: text, Marks: block.Marks{Code: true}}}
		return []block.Block{b}, true

	case atom.Img:
		src := attrVal(n, "src")
		if src == "" {
			return nil, true
		}
		b := block.New(block.Image)
		b.URL = src
		return []block.Block{b}, true

	case atom.Table:
		rows := tableRows(n)
		if len(rows) == 0 {
			return nil, true
		}
		b := block.New(block.Table)
		b.Children = rows
		return []block.Block{b}, true
	}
	return nil, false
}

func listItems(n *html.Node, style block.ListStyle) []block.Block {
	var items []block.Block
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		runs := inlineRuns(c, block.Marks{})
		item := block.New(block.ListItem)
		item.Style = style
		item.Runs = runs
		// Nested lists inside the item become its children.
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type == html.ElementNode && (g.DataAtom == atom.Ul || g.DataAtom == atom.Ol) {
				nested := block.Bullet
				if g.DataAtom == atom.Ol {
					nested = block.Ordered
				}
				item.Children = append(item.Children, listItems(g, nested)...)
			}
		}
		if len(item.Runs) == 0 && len(item.Children) == 0 {
			continue
		}
		items = append(items, item)
	}
	return items
}

func tableRows(n *html.Node) []block.Block {
	var rows []block.Block
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.DataAtom == atom.Tr {
			row := block.New(block.TableRow)
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
					row.Runs = append(row.Runs, block.InlineRun{Text: textContent(c)})
				}
			}
			if len(row.Runs) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return rows
}

// childBlocks converts the structural children of a container element.
func childBlocks(n *html.Node) []block.Block {
	var blocks []block.Block
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if bs, handled := elementToBlocks(c); handled {
			blocks = append(blocks, bs...)
		}
	}
	return blocks
}

// inlineRuns flattens the inline content of an element into marked runs,
// skipping any nested structural elements (handled by the caller).
func inlineRuns(n *html.Node, marks block.Marks) []block.InlineRun {
	var runs []block.InlineRun
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if text := collapseSpace(c.Data); text != "" {
				runs = append(runs, block.InlineRun{Text: text, Marks: marks})
			}
		case html.ElementNode:
			m := marks
			switch c.DataAtom {
			case atom.Strong, atom.B:
				m.Bold = true
			case atom.Em, atom.I:
				m.Italic = true
			case atom.Code:
				m.Code = true
			case atom.A:
				m.Link = attrVal(c, "href")
			case atom.Br:
				continue
			case atom.Ul, atom.Ol, atom.P, atom.Blockquote, atom.Table, atom.Pre:
				continue // structural, not inline
			}
			runs = append(runs, inlineRuns(c, m)...)
		}
	}
	return runs
}

// textContent gathers all text of a subtree, whitespace-collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if text := collapseSpace(node.Data); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
