// Package blockconv deserializes transcription output — HTML-ish markup or
// plain text — into the canonical block tree.
//
// Unsafe or unrecognized markup (script, style, event-handler attributes) is
// stripped before parsing, never carried through inert. Malformed markup
// degrades to a best-effort paragraph split instead of failing; identical
// input always yields identical output.
package blockconv

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/charmap"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
)

// policy keeps only the structural and inline elements the block tree can
// represent. Everything else — scripts, styles, on* handlers, unknown
// tags — is removed by bluemonday before the DOM walk.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li", "blockquote", "hr", "br",
		"em", "i", "strong", "b", "code", "pre",
		"table", "thead", "tbody", "tr", "td", "th",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src").OnElements("img")
	p.AllowStandardURLs()
	p.AllowElements("a", "img")
	return p
}

var markupRe = regexp.MustCompile(`(?i)</?(p|h[1-6]|ul|ol|li|blockquote|hr|br|em|i|strong|b|code|pre|a|img|table|tr|td|th|div|span)[\s/>]`)

// ToBlocks converts transcription output into blocks. Input containing
// recognized markup is parsed as HTML; anything else is treated as plain
// text, one paragraph per non-empty line.
func ToBlocks(input string) []block.Block {
	input = decodeCharset(input)
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if !markupRe.MatchString(input) {
		return PlainTextBlocks(input)
	}
	blocks, err := parseMarkup(policy.Sanitize(input))
	if err != nil || len(blocks) == 0 {
		// Malformed markup: degrade to a paragraph split of the visible text.
		return PlainTextBlocks(stripTags(input))
	}
	return blocks
}

// PlainTextBlocks converts plain text into one paragraph block per
// non-empty line. Used directly for born-digital pages.
func PlainTextBlocks(text string) []block.Block {
	var blocks []block.Block
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, block.NewParagraph(line))
	}
	return blocks
}

// LinesToBlocks converts reconstructed text-layer lines into paragraphs.
func LinesToBlocks(lines []string) []block.Block {
	var blocks []block.Block
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, block.NewParagraph(line))
	}
	return blocks
}

// decodeCharset mirrors the transcription backend's occasional habit of
// returning Latin-1 payloads with an explicit charset declaration. Input
// that is already valid UTF-8 is never re-decoded, even when it merely
// quotes a charset declaration in its text.
func decodeCharset(input string) string {
	if utf8.ValidString(input) {
		return input
	}
	if !strings.Contains(input, "charset=") {
		return input
	}
	idx := strings.Index(input, "charset=") + len("charset=")
	rest := strings.ToLower(input[idx:])
	if strings.HasPrefix(rest, "utf-8") || strings.HasPrefix(rest, `"utf-8`) {
		return input
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(input)
	if err != nil {
		return input
	}
	return decoded
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripTags(input string) string {
	return tagRe.ReplaceAllString(input, " ")
}
