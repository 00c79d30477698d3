package ghost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
)

const testDebounce = 20 * time.Millisecond

type fakeRequester struct {
	mu        sync.Mutex
	response  string
	err       error
	delay     time.Duration
	calls     int32
	cancelled int32
}

func (f *fakeRequester) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			atomic.AddInt32(&f.cancelled, 1)
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.response, f.err
}

func newTestEngine(resp string) (*Engine, *block.Document, *fakeRequester, string) {
	doc := block.NewDocument()
	b := block.NewParagraph("The quick brown fox")
	doc.Append(b)
	fr := &fakeRequester{response: resp}
	e := New(doc, fr, WithDebounce(testDebounce))
	return e, doc, fr, b.ID
}

func waitShown(t *testing.T, e *Engine) string {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, ok := e.Suggestion(); ok {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no suggestion shown")
	return ""
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.State() == Idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine stuck in %s", e.State())
}

func TestSuggestionShownAfterDebounce(t *testing.T) {
	e, _, fr, id := newTestEngine(" jumps over the lazy dog.")

	e.OnEdit(id)
	assert.Equal(t, Debouncing, e.State())

	got := waitShown(t, e)
	assert.Equal(t, " jumps over the lazy dog.", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fr.calls))
}

func TestEditsWithinDebounceCoalesce(t *testing.T) {
	e, _, fr, id := newTestEngine(" continues.")

	for i := 0; i < 5; i++ {
		e.OnEdit(id)
		time.Sleep(testDebounce / 4)
	}
	waitShown(t, e)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fr.calls))
}

func TestSentinelNeverShown(t *testing.T) {
	e, _, _, id := newTestEngine("0")

	e.Trigger(id)

	waitIdle(t, e)
	_, ok := e.Suggestion()
	assert.False(t, ok)
}

func TestAcceptCommitsFullSuggestion(t *testing.T) {
	e, doc, _, id := newTestEngine(" jumps.")

	e.Trigger(id)
	waitShown(t, e)
	e.Accept()

	b, ok := doc.ByID(id)
	require.True(t, ok)
	assert.Equal(t, "The quick brown fox jumps.", b.Text())
	assert.Equal(t, Idle, e.State())
}

func TestAcceptWordCommitsLeadingWordOnly(t *testing.T) {
	e, doc, _, id := newTestEngine(" jumps over")

	e.Trigger(id)
	waitShown(t, e)
	e.AcceptWord()

	b, _ := doc.ByID(id)
	assert.Equal(t, "The quick brown fox jumps", b.Text())

	rest, ok := e.Suggestion()
	require.True(t, ok)
	assert.Equal(t, " over", rest)

	e.AcceptWord()
	b, _ = doc.ByID(id)
	assert.Equal(t, "The quick brown fox jumps over", b.Text())
	assert.Equal(t, Idle, e.State())
}

func TestRejectLeavesDocumentUntouched(t *testing.T) {
	e, doc, _, id := newTestEngine(" jumps.")

	e.Trigger(id)
	waitShown(t, e)
	e.Reject()

	b, _ := doc.ByID(id)
	assert.Equal(t, "The quick brown fox", b.Text())
	assert.Equal(t, Idle, e.State())
	_, ok := e.Suggestion()
	assert.False(t, ok)
}

func TestEditSupersedesShownSuggestion(t *testing.T) {
	e, doc, _, id := newTestEngine(" jumps.")

	e.Trigger(id)
	waitShown(t, e)
	e.OnEdit(id)

	_, ok := e.Suggestion()
	assert.False(t, ok)
	b, _ := doc.ByID(id)
	assert.Equal(t, "The quick brown fox", b.Text())
}

func TestStaleResponseDiscardedAfterSupersede(t *testing.T) {
	doc := block.NewDocument()
	b := block.NewParagraph("Some text")
	doc.Append(b)
	fr := &fakeRequester{response: " stale answer.", delay: 100 * time.Millisecond}
	e := New(doc, fr, WithDebounce(testDebounce))

	e.Trigger(b.ID)
	time.Sleep(10 * time.Millisecond) // request is in flight
	e.OnEdit(b.ID)                    // supersedes; cancels the in-flight context

	time.Sleep(200 * time.Millisecond)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fr.cancelled), int32(1))
}

func TestBackendFailureIsSilent(t *testing.T) {
	doc := block.NewDocument()
	b := block.NewParagraph("Some text")
	doc.Append(b)
	fr := &fakeRequester{err: errors.New("backend down")}
	e := New(doc, fr, WithDebounce(testDebounce))

	e.Trigger(b.ID)

	waitIdle(t, e)
	_, ok := e.Suggestion()
	assert.False(t, ok)
	got, _ := doc.ByID(b.ID)
	assert.Equal(t, "Some text", got.Text())
}

func TestEmptyBlockDoesNotRequest(t *testing.T) {
	doc := block.NewDocument()
	b := block.NewParagraph("")
	doc.Append(b)
	fr := &fakeRequester{response: "anything"}
	e := New(doc, fr, WithDebounce(testDebounce))

	e.Trigger(b.ID)

	waitIdle(t, e)
	assert.Zero(t, atomic.LoadInt32(&fr.calls))
}

func TestStripMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", StripMarkdown("plain text"))
	assert.Equal(t, "fenced", StripMarkdown("```\nfenced\n```"))
	assert.Equal(t, "quoted", StripMarkdown("`quoted`"))
	assert.Equal(t, "bold", StripMarkdown("**bold**"))
}

func TestBuildPromptCarriesBlockText(t *testing.T) {
	b := block.NewParagraph("Une phrase en français")
	prompt := BuildPrompt(b)
	assert.Contains(t, prompt, "Une phrase en français")
	assert.Contains(t, prompt, `"0"`)
}
