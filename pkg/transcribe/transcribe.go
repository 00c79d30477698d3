// Package transcribe is the client for the transcription backend. A request
// carries one or more rasterized page images; the response body is streamed
// and its fully drained content is the transcription, either HTML-ish markup
// or plain text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/raster"
)

const defaultTimeout = 5 * time.Minute

// Result is the drained transcription of one unit of work.
type Result struct {
	Text string
	OK   bool
}

// Chunk is one piece of the streamed response body. A non-nil Err means the
// stream broke before draining; the channel is closed right after.
type Chunk struct {
	Data string
	Err  error
}

// Client talks to the transcription endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	log      *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient returns a client for the given transcription endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: defaultTimeout},
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Images []string `json:"images"`
}

// Stream sends the images and returns a channel of response chunks. The
// channel is closed once the body is fully drained or the stream breaks;
// cancelling ctx aborts the read. A non-2xx status is reported as an error
// before any chunk is delivered.
func (c *Client) Stream(ctx context.Context, images [][]byte) (<-chan Chunk, error) {
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = raster.EncodeTransport(img)
	}
	body, err := json.Marshal(request{Images: encoded})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("transcription backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case out <- Chunk{Data: string(buf[:n])}:
				case <-ctx.Done():
					return
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				select {
				case out <- Chunk{Err: fmt.Errorf("reading stream: %w", err)}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out, nil
}

// Transcribe sends the images and drains the streamed response into a single
// Result. Any failure — request, status, broken stream — yields ok=false and
// an error; partial text from a broken stream is never returned.
func (c *Client) Transcribe(ctx context.Context, images [][]byte) (Result, error) {
	start := time.Now()
	chunks, err := c.Stream(ctx, images)
	if err != nil {
		return Result{}, err
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			return Result{}, chunk.Err
		}
		sb.WriteString(chunk.Data)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c.log.WithFields(logrus.Fields{
		"images":   len(images),
		"chars":    sb.Len(),
		"duration": time.Since(start),
	}).Debug("transcription drained")

	return Result{Text: sb.String(), OK: true}, nil
}
