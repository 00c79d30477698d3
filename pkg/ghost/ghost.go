// Package ghost implements the inline completion engine: it watches edits,
// debounces them, asks the AI backend for a short continuation of the text
// at the cursor, and surfaces the answer as non-committed ghost text the
// user can accept word by word, in full, or reject.
//
// Failures are silent. A backend error or a superseded request never reaches
// the user; the ghost text simply does not appear.
package ghost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/block"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/usagelog"
)

// sentinel is the backend's "no confident continuation" answer. It is
// discarded without showing anything.
const sentinel = "0"

// DefaultDebounce is the settle time between the last qualifying edit and
// the backend request.
const DefaultDebounce = 500 * time.Millisecond

// State of the engine.
type State string

const (
	Idle       State = "idle"
	Debouncing State = "debouncing"
	Requesting State = "requesting"
	Shown      State = "shown"
)

// Requester asks the completion backend for a continuation. It returns the
// raw model text, the sentinel included.
type Requester interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Engine drives the suggestion lifecycle for one document. At most one
// request is in flight at any time; every qualifying edit cancels the
// pending timer or in-flight request and restarts the debounce.
type Engine struct {
	doc       *block.Document
	requester Requester
	usage     usagelog.Recorder
	log       *logrus.Logger
	debounce  time.Duration

	mu         sync.Mutex
	state      State
	gen        uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	suggestion string
	blockID    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce overrides the debounce interval, mainly for tests.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithUsageRecorder sets the recorder for failed-request accounting.
func WithUsageRecorder(r usagelog.Recorder) Option {
	return func(e *Engine) { e.usage = r }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an idle engine bound to doc.
func New(doc *block.Document, r Requester, opts ...Option) *Engine {
	e := &Engine{
		doc:       doc,
		requester: r,
		usage:     usagelog.Nop{},
		log:       logrus.StandardLogger(),
		debounce:  DefaultDebounce,
		state:     Idle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Suggestion returns the currently shown ghost text, if any.
func (e *Engine) Suggestion() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Shown {
		return "", false
	}
	return e.suggestion, true
}

// OnEdit notes a qualifying edit in the block with the given ID. Any shown
// suggestion is superseded, any pending timer or in-flight request is
// cancelled, and the debounce restarts.
func (e *Engine) OnEdit(blockID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.supersedeLocked()
	e.blockID = blockID
	e.state = Debouncing

	gen := e.gen
	e.timer = time.AfterFunc(e.debounce, func() { e.fire(gen, blockID) })
}

// Trigger forces immediate evaluation for the block, bypassing the debounce.
func (e *Engine) Trigger(blockID string) {
	e.mu.Lock()
	e.supersedeLocked()
	e.blockID = blockID
	gen := e.gen
	e.mu.Unlock()

	go e.fire(gen, blockID)
}

// supersedeLocked invalidates whatever is pending: the generation counter is
// bumped so late responses are discarded, the timer is stopped and the
// in-flight request context cancelled.
func (e *Engine) supersedeLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.suggestion = ""
	e.state = Idle
}

// fire runs the backend request for generation gen. It is a no-op if a newer
// edit superseded gen in the meantime.
func (e *Engine) fire(gen uint64, blockID string) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	b, ok := e.doc.ByID(blockID)
	if !ok || strings.TrimSpace(b.Text()) == "" {
		e.state = Idle
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.state = Requesting
	e.mu.Unlock()

	prompt := BuildPrompt(b)
	start := time.Now()
	text, err := e.requester.Complete(ctx, prompt)
	elapsed := time.Since(start)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		status := usagelog.StatusError
		if errors.Is(err, context.Canceled) {
			status = usagelog.StatusTimeout
		}
		e.usage.Record(usagelog.Entry{
			ServiceType:      "copilot",
			Status:           status,
			ProcessingTimeMs: elapsed.Milliseconds(),
			PromptSummary:    prompt,
		})
		e.log.WithError(err).Debug("completion request failed")
		if gen == e.gen {
			e.cancel = nil
			e.state = Idle
		}
		return
	}
	if gen != e.gen {
		// A newer edit won while we were waiting; the stale answer is dropped.
		return
	}
	e.cancel = nil

	cleaned := StripMarkdown(text)
	if cleaned == "" || strings.TrimSpace(cleaned) == sentinel {
		e.state = Idle
		return
	}
	e.suggestion = cleaned
	e.state = Shown
}

// Accept commits the full shown suggestion into the document at the cursor
// block and returns to Idle.
func (e *Engine) Accept() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Shown {
		return
	}
	if err := e.doc.AppendText(e.blockID, e.suggestion); err != nil {
		e.log.WithError(err).Debug("accept dropped")
	}
	e.gen++
	e.suggestion = ""
	e.state = Idle
}

// AcceptWord commits only the leading word of the suggestion. The remainder
// stays shown; when nothing remains the engine returns to Idle.
func (e *Engine) AcceptWord() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Shown {
		return
	}
	word, rest := splitLeadingWord(e.suggestion)
	if word == "" {
		e.gen++
		e.suggestion = ""
		e.state = Idle
		return
	}
	if err := e.doc.AppendText(e.blockID, word); err != nil {
		e.log.WithError(err).Debug("accept dropped")
		e.gen++
		e.suggestion = ""
		e.state = Idle
		return
	}
	if strings.TrimSpace(rest) == "" {
		e.gen++
		e.suggestion = ""
		e.state = Idle
		return
	}
	e.suggestion = rest
}

// Reject discards the shown suggestion without touching the document.
func (e *Engine) Reject() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Shown {
		return
	}
	e.gen++
	e.suggestion = ""
	e.state = Idle
}

// BuildPrompt serializes the cursor's block and wraps it in the continuation
// instruction sent to the backend.
func BuildPrompt(b block.Block) string {
	return fmt.Sprintf(
		"Continue the following text up to the next punctuation mark. "+
			"Write in the same language as the text. Do not start a new "+
			"paragraph, heading or list. If you cannot confidently continue, "+
			"reply with exactly %q.\n\nText:\n%s", sentinel, b.Text())
}

// splitLeadingWord cuts the suggestion after its first word. Leading
// whitespace travels with the word so accepted fragments join correctly.
func splitLeadingWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && unicode.IsSpace(rune(s[i])) {
		i++
	}
	for i < len(s) && !unicode.IsSpace(rune(s[i])) {
		i++
	}
	return s[:i], s[i:]
}

// StripMarkdown removes the light markdown decoration models habitually wrap
// answers in: code fences, stray backticks and emphasis markers.
func StripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.Index(s, "\n"); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			// Drop a language tag on the opening fence.
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	s = strings.Trim(s, "`")
	s = strings.TrimPrefix(s, "**")
	s = strings.TrimSuffix(s, "**")
	return s
}
