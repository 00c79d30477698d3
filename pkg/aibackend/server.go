// Package aibackend is the HTTP surface the editor talks to: a streaming
// transcription endpoint for the extraction pipeline and a completion
// endpoint for the ghost-text engine. Both resolve their provider and model
// through pkg/provider and record usage through pkg/usagelog.
package aibackend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"

	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/provider"
	"github.com/Toumai-Digital-Solutions/Afribac-sub002/pkg/usagelog"
)

// transcriptionPrompt instructs the model to return clean structural markup
// the converter understands.
const transcriptionPrompt = "Transcribe the document page in this image. " +
	"Return the content as simple HTML using only p, h1-h6, ul, ol, li, " +
	"blockquote, table, tr, td, em, strong and code tags. Preserve the " +
	"reading order. Do not add commentary."

// Server serves the AI endpoints.
type Server struct {
	log     *logrus.Logger
	usage   usagelog.Recorder
	keys    func() provider.Credentials
	factory ModelFactory
	configs *provider.ConfigStore
}

// NewServer wires the endpoints. A nil factory uses the real providers; a
// nil recorder discards usage.
func NewServer(log *logrus.Logger, usage usagelog.Recorder, factory ModelFactory) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if usage == nil {
		usage = usagelog.Nop{}
	}
	if factory == nil {
		factory = DefaultModelFactory
	}
	return &Server{
		log:     log,
		usage:   usage,
		keys:    provider.CredentialsFromEnv,
		factory: factory,
	}
}

// UseConfigs installs per-service configuration overrides. Without them the
// built-in defaults apply.
func (s *Server) UseConfigs(c *provider.ConfigStore) { s.configs = c }

// Router returns the chi router for the AI endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/api/ai/transcription", s.handleTranscription)
	r.Post("/api/ai/copilot", s.handleCopilot)
	return r
}

type transcriptionRequest struct {
	Images   []string `json:"images"`
	Model    string   `json:"model,omitempty"`
	Provider string   `json:"provider,omitempty"`
}

// handleTranscription accepts base64 page images and streams the model's
// transcription back as a chunked plain-text body. The client treats the
// fully drained body as the transcription.
func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var req transcriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Images) == 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	keys := s.keys()
	if keys.None() {
		http.Error(w, "no AI provider configured", http.StatusUnauthorized)
		return
	}
	cfg := s.configs.ServiceConfig(provider.Extraction)
	res := provider.Resolve(req.Model, req.Provider, keys, cfg)

	parts := []llms.ContentPart{llms.TextPart(transcriptionPrompt)}
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			http.Error(w, "invalid image encoding", http.StatusBadRequest)
			return
		}
		parts = append(parts, llms.BinaryPart("image/png", data))
	}

	model, err := s.factory(r.Context(), res)
	if err != nil {
		s.log.WithError(err).Error("building transcription model")
		http.Error(w, "provider unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	flusher, _ := w.(http.Flusher)

	start := time.Now()
	streamed := false
	completion, err := model.GenerateContent(r.Context(),
		[]llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}},
		llms.WithTemperature(cfg.Temperature),
		llms.WithMaxTokens(cfg.MaxOutputTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			streamed = true
			if flusher != nil {
				flusher.Flush()
			}
			return nil
		}),
	)

	entry := usagelog.Entry{
		ServiceType:      string(provider.Extraction),
		Provider:         string(res.Provider),
		ModelName:        res.Model,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = statusFor(r.Context(), err)
		s.usage.Record(entry)
		s.log.WithError(err).Error("transcription generation failed")
		if !streamed {
			if entry.Status == usagelog.StatusTimeout {
				http.Error(w, "request aborted", http.StatusRequestTimeout)
			} else {
				http.Error(w, "generation failed", http.StatusInternalServerError)
			}
			return
		}
		// Headers are already sent once streaming began; a finalized chunked
		// body would look like a complete transcription to the client, so the
		// connection is torn down instead to break the client's stream read.
		panic(http.ErrAbortHandler)
	}
	if len(completion.Choices) > 0 {
		if info := completion.Choices[0].GenerationInfo; info != nil {
			entry.InputTokens = inputTokens(info)
			entry.OutputTokens = outputTokens(info)
		}
	}
	entry.Status = usagelog.StatusSuccess
	s.usage.Record(entry)
}

type copilotRequest struct {
	Prompt   string `json:"prompt"`
	Model    string `json:"model,omitempty"`
	Provider string `json:"provider,omitempty"`
}

type copilotResponse struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
}

// handleCopilot answers a single completion request. 401 when no provider
// key is configured, 408 when the request was aborted, 500 otherwise.
func (s *Server) handleCopilot(w http.ResponseWriter, r *http.Request) {
	var req copilotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	keys := s.keys()
	if keys.None() {
		http.Error(w, "no AI provider configured", http.StatusUnauthorized)
		return
	}
	cfg := s.configs.ServiceConfig(provider.Copilot)
	res := provider.Resolve(req.Model, req.Provider, keys, cfg)

	model, err := s.factory(r.Context(), res)
	if err != nil {
		s.log.WithError(err).Error("building copilot model")
		http.Error(w, "provider unavailable", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	completion, err := model.GenerateContent(r.Context(),
		[]llms.MessageContent{{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
		}},
		llms.WithTemperature(cfg.Temperature),
		llms.WithMaxTokens(cfg.MaxOutputTokens),
	)

	entry := usagelog.Entry{
		ServiceType:      string(provider.Copilot),
		Provider:         string(res.Provider),
		ModelName:        res.Model,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		PromptSummary:    req.Prompt,
	}
	if err != nil {
		entry.Status = statusFor(r.Context(), err)
		s.usage.Record(entry)
		s.log.WithError(err).Warn("copilot generation failed")
		if entry.Status == usagelog.StatusTimeout {
			http.Error(w, "request aborted", http.StatusRequestTimeout)
		} else {
			http.Error(w, "generation failed", http.StatusInternalServerError)
		}
		return
	}

	resp := copilotResponse{}
	if len(completion.Choices) > 0 {
		resp.Text = completion.Choices[0].Content
		if info := completion.Choices[0].GenerationInfo; info != nil {
			resp.InputTokens = inputTokens(info)
			resp.OutputTokens = outputTokens(info)
		}
	}
	entry.Status = usagelog.StatusSuccess
	entry.InputTokens = resp.InputTokens
	entry.OutputTokens = resp.OutputTokens
	s.usage.Record(entry)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// statusFor maps a generation error to a usage status. Aborted requests are
// recorded as timeouts.
func statusFor(ctx context.Context, err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return usagelog.StatusTimeout
	}
	return usagelog.StatusError
}
