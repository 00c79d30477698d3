// Package pagesource opens an uploaded document and produces one SourcePage
// per page: the positioned text fragments of the page's text layer plus the
// page's primary embedded image, which serves as the raster source for
// scanned pages.
package pagesource

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/textlayer"
)

// SourcePage is the per-page unit of work handed to the assembler.
// It is created when the source is opened and discarded once the page's
// block subtree has been produced.
type SourcePage struct {
	Index     int // 1-based page number
	Fragments []textlayer.Fragment
	ImageData []byte // primary embedded image, nil when the page has none
}

// Source is an opened multi-page document.
type Source struct {
	Pages []SourcePage
}

// Open reads and validates a PDF and extracts every page's text fragments
// and primary image.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read is Open for an already-open reader.
func Read(rs io.ReadSeeker) (*Source, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	src := &Source{}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		page := SourcePage{Index: pageNr}
		page.Fragments = extractFragments(ctx, pageNr)
		page.ImageData = extractPrimaryImage(ctx, pageNr)
		src.Pages = append(src.Pages, page)
	}
	if len(src.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return src, nil
}

// extractFragments parses the page's content stream into positioned text
// fragments.
func extractFragments(ctx *model.Context, pageNr int) []textlayer.Fragment {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return nil
	}
	return parseContentStream(data)
}

// extractPrimaryImage returns the bytes of the first image XObject on the
// page. Scanned pages typically carry exactly one full-page image.
func extractPrimaryImage(ctx *model.Context, pageNr int) []byte {
	if len(pdfcpu.ImageObjNrs(ctx, pageNr)) == 0 {
		return nil
	}
	images, err := pdfcpu.ExtractPageImages(ctx, pageNr, false)
	if err != nil {
		return nil
	}
	for _, img := range images {
		data, err := io.ReadAll(img)
		if err != nil || len(data) == 0 {
			continue
		}
		return data
	}
	return nil
}

// HasImages reports whether any page of the document carries image streams.
func HasImages(s *Source) bool {
	for _, p := range s.Pages {
		if len(p.ImageData) > 0 {
			return true
		}
	}
	return false
}
