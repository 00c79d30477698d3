// Package provider resolves which AI backend, provider and model a request
// is addressed to, given the caller's wishes and the credentials actually
// configured.
package provider

import (
	"os"
	"strings"
)

// Name identifies an AI provider.
type Name string

const (
	OpenAI Name = "openai"
	Gemini Name = "gemini"
)

// Service identifies which backend feature is making the call. Usage log
// entries and per-service model defaults are keyed by it.
type Service string

const (
	Copilot    Service = "copilot"
	Extraction Service = "extraction"
)

// Credentials reports which provider keys are configured.
type Credentials struct {
	OpenAI bool
	Gemini bool
}

// CredentialsFromEnv probes the two provider key variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		OpenAI: os.Getenv("OPENAI_API_KEY") != "",
		Gemini: os.Getenv("GEMINI_API_KEY") != "",
	}
}

// None reports whether no provider key is configured at all. Callers treat
// this as a precondition failure (HTTP 401 at the boundary) before any
// backend call is attempted.
func (c Credentials) None() bool { return !c.OpenAI && !c.Gemini }

func (c Credentials) has(p Name) bool {
	if p == OpenAI {
		return c.OpenAI
	}
	return c.Gemini
}

// Config is the per-service AI configuration: the preferred provider and
// model plus generation parameters. Values come from the platform's AI
// configuration store; Defaults supplies the hard-coded fallback.
type Config struct {
	Provider        Name
	ModelName       string
	Temperature     float64
	MaxOutputTokens int
}

// Defaults returns the built-in configuration for a service.
func Defaults(svc Service) Config {
	switch svc {
	case Extraction:
		return Config{Provider: Gemini, ModelName: "gemini-2.0-flash", Temperature: 0.2, MaxOutputTokens: 8192}
	default:
		return Config{Provider: Gemini, ModelName: "gemini-2.0-flash", Temperature: 0.7, MaxOutputTokens: 50}
	}
}

// defaultModel is the last-resort model per provider, used when neither the
// request nor the service configuration pins one.
func defaultModel(p Name) string {
	if p == OpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-2.0-flash"
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Provider Name
	Model    string
}

// Resolve picks the provider and model for a request. In order:
//
//  1. A "/"-prefixed model forces its provider ("openai/...", "google/...",
//     "gemini/..."); an unrecognized prefix discards the model entirely.
//  2. Otherwise an explicit requested provider wins.
//  3. Otherwise gemini when its key is present, else openai.
//  4. A provider whose key is missing is swapped for the other configured
//     provider, and any explicitly requested model is discarded with it —
//     the model is not guaranteed to exist on the fallback provider.
//  5. The final model is the surviving explicit model, else the service
//     configuration's model, else the provider's hard-coded default.
//
// Resolve never fails; a total absence of keys is the caller's problem.
func Resolve(requestedModel, requestedProvider string, keys Credentials, cfg Config) Resolution {
	model := strings.TrimSpace(requestedModel)
	var prov Name

	if prefix, rest, ok := strings.Cut(model, "/"); ok {
		switch strings.ToLower(prefix) {
		case "openai":
			prov = OpenAI
			model = rest
		case "google", "gemini":
			prov = Gemini
			model = rest
		default:
			model = ""
		}
	}

	if prov == "" {
		switch strings.ToLower(strings.TrimSpace(requestedProvider)) {
		case "openai":
			prov = OpenAI
		case "gemini":
			prov = Gemini
		}
	}

	if prov == "" {
		if keys.Gemini {
			prov = Gemini
		} else {
			prov = OpenAI
		}
	}

	if !keys.has(prov) {
		other := Gemini
		if prov == Gemini {
			other = OpenAI
		}
		if keys.has(other) {
			prov = other
			model = ""
		}
	}

	if model == "" {
		if cfg.ModelName != "" && (cfg.Provider == "" || cfg.Provider == prov) {
			model = cfg.ModelName
		} else {
			model = defaultModel(prov)
		}
	}

	return Resolution{Provider: prov, Model: model}
}
