package assemble

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/pagesource"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/textlayer"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/transcribe"
)

type fakeTranscriber struct {
	responses []string
	errs      []error
	calls     int
	images    [][]byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, images [][]byte) (transcribe.Result, error) {
	i := f.calls
	f.calls++
	f.images = append(f.images, images...)
	if i < len(f.errs) && f.errs[i] != nil {
		return transcribe.Result{}, f.errs[i]
	}
	if i < len(f.responses) {
		return transcribe.Result{Text: f.responses[i], OK: true}, nil
	}
	return transcribe.Result{}, errors.New("unexpected call")
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func bornDigitalPage(index int, text string) pagesource.SourcePage {
	return pagesource.SourcePage{
		Index:     index,
		Fragments: []textlayer.Fragment{{Text: text, Y: 700}},
	}
}

func scannedPage(t *testing.T, index int) pagesource.SourcePage {
	return pagesource.SourcePage{Index: index, ImageData: testPNG(t)}
}

func TestRunBornDigitalPageSkipsBackend(t *testing.T) {
	ft := &fakeTranscriber{}
	a := New(ft, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		bornDigitalPage(1, "Hello world, this page has a perfectly usable text layer."),
	}}

	require.NoError(t, a.Run(context.Background(), src, doc, ""))

	assert.Equal(t, Committed, a.State())
	assert.Zero(t, ft.calls)

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, block.Heading, blocks[0].Kind)
	assert.Equal(t, "Page 1", blocks[0].Text())
	assert.Equal(t, "Hello world, this page has a perfectly usable text layer.", blocks[1].Text())
}

func TestRunScannedPageTranscribes(t *testing.T) {
	ft := &fakeTranscriber{responses: []string{"<p>A</p>"}}
	a := New(ft, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{scannedPage(t, 1)}}

	require.NoError(t, a.Run(context.Background(), src, doc, ""))

	assert.Equal(t, 1, ft.calls)
	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "A", blocks[1].Text())
}

func TestRunAbortsWithoutCommittingOnPageFailure(t *testing.T) {
	ft := &fakeTranscriber{
		responses: []string{"<p>A</p>", ""},
		errs:      []error{nil, errors.New("backend down")},
	}
	a := New(ft, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		scannedPage(t, 1),
		scannedPage(t, 2),
	}}

	err := a.Run(context.Background(), src, doc, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	assert.Equal(t, Aborted, a.State())
	assert.Zero(t, doc.Len())
}

func TestRunSeparatorBetweenPagesOnly(t *testing.T) {
	a := New(&fakeTranscriber{}, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		bornDigitalPage(1, "First page with enough text to count as born digital here."),
		bornDigitalPage(2, "Second page with enough text to count as born digital too."),
	}}

	require.NoError(t, a.Run(context.Background(), src, doc, ""))

	blocks := doc.Blocks()
	// heading, content, rule, heading, content — no trailing rule.
	require.Len(t, blocks, 5)
	assert.Equal(t, block.Rule, blocks[2].Kind)
	assert.NotEqual(t, block.Rule, blocks[4].Kind)

	var kinds []string
	for _, b := range blocks {
		kinds = append(kinds, string(b.Kind))
	}
	assert.Equal(t, "heading,paragraph,rule,heading,paragraph", strings.Join(kinds, ","))
}

func TestRunInsertsAfterAnchor(t *testing.T) {
	a := New(&fakeTranscriber{}, nil)
	doc := block.NewDocument()
	existing := block.NewParagraph("existing")
	tail := block.NewParagraph("tail")
	doc.Append(existing, tail)
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		bornDigitalPage(1, "Inserted page content with a comfortably long text layer."),
	}}

	require.NoError(t, a.Run(context.Background(), src, doc, existing.ID))

	blocks := doc.Blocks()
	require.Len(t, blocks, 4)
	assert.Equal(t, "existing", blocks[0].Text())
	assert.Equal(t, "Page 1", blocks[1].Text())
	assert.Equal(t, "tail", blocks[3].Text())
}

func TestRunRejectsConcurrentSession(t *testing.T) {
	a := New(&fakeTranscriber{}, nil)
	a.state = Extracting

	err := a.Run(context.Background(), &pagesource.Source{}, block.NewDocument(), "")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunCancelledContextAborts(t *testing.T) {
	a := New(&fakeTranscriber{}, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		bornDigitalPage(1, "Some page text that is long enough to be born digital here."),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Run(ctx, src, doc, "")
	require.Error(t, err)
	assert.Equal(t, Aborted, a.State())
	assert.Zero(t, doc.Len())
}

func TestExtractImageCommitsUnderFixedLabel(t *testing.T) {
	ft := &fakeTranscriber{responses: []string{"<p>figure text</p>"}}
	a := New(ft, nil)
	doc := block.NewDocument()

	require.NoError(t, a.ExtractImage(context.Background(), testPNG(t), doc, ""))

	blocks := doc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, block.Heading, blocks[0].Kind)
	assert.Equal(t, "extracted content", blocks[0].Text())
	assert.Equal(t, "figure text", blocks[1].Text())
	assert.Equal(t, Committed, a.State())
}

func TestExtractImageSendsOriginalBytes(t *testing.T) {
	ft := &fakeTranscriber{responses: []string{"<p>ok</p>"}}
	a := New(ft, nil)
	original := testPNG(t)

	require.NoError(t, a.ExtractImage(context.Background(), original, block.NewDocument(), ""))

	require.Len(t, ft.images, 1)
	assert.Equal(t, original, ft.images[0])
}

func TestRunUpscalesScannedPageBeforeSending(t *testing.T) {
	ft := &fakeTranscriber{responses: []string{"<p>ok</p>"}}
	a := New(ft, nil)
	original := testPNG(t)
	src := &pagesource.Source{Pages: []pagesource.SourcePage{{Index: 1, ImageData: original}}}

	require.NoError(t, a.Run(context.Background(), src, block.NewDocument(), ""))

	require.Len(t, ft.images, 1)
	assert.NotEqual(t, original, ft.images[0])

	sent, _, err := image.Decode(bytes.NewReader(ft.images[0]))
	require.NoError(t, err)
	assert.Equal(t, 8, sent.Bounds().Dx())
	assert.Equal(t, 8, sent.Bounds().Dy())
}

func TestProgressCounters(t *testing.T) {
	a := New(&fakeTranscriber{}, nil)
	doc := block.NewDocument()
	src := &pagesource.Source{Pages: []pagesource.SourcePage{
		bornDigitalPage(1, "First page with enough text to count as born digital here."),
		bornDigitalPage(2, "Second page with enough text to count as born digital too."),
	}}

	require.NoError(t, a.Run(context.Background(), src, doc, ""))

	current, total := a.Progress()
	assert.Equal(t, 2, current)
	assert.Equal(t, 2, total)
}
