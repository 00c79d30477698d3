package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var bothKeys = Credentials{OpenAI: true, Gemini: true}

func TestResolvePrefixForcesProvider(t *testing.T) {
	cfg := Defaults(Copilot)

	res := Resolve("openai/gpt-4o", "", bothKeys, cfg)
	assert.Equal(t, OpenAI, res.Provider)
	assert.Equal(t, "gpt-4o", res.Model)

	res = Resolve("google/gemini-1.5-pro", "", bothKeys, cfg)
	assert.Equal(t, Gemini, res.Provider)
	assert.Equal(t, "gemini-1.5-pro", res.Model)

	res = Resolve("gemini/gemini-1.5-pro", "", bothKeys, cfg)
	assert.Equal(t, Gemini, res.Provider)
	assert.Equal(t, "gemini-1.5-pro", res.Model)
}

func TestResolveUnrecognizedPrefixDiscardsModel(t *testing.T) {
	res := Resolve("anthropic/claude-3", "", bothKeys, Defaults(Copilot))

	assert.Equal(t, Gemini, res.Provider)
	assert.Equal(t, "gemini-2.0-flash", res.Model)
}

func TestResolveExplicitProvider(t *testing.T) {
	res := Resolve("", "openai", bothKeys, Defaults(Copilot))

	assert.Equal(t, OpenAI, res.Provider)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestResolveDefaultsToGeminiWhenKeyed(t *testing.T) {
	res := Resolve("", "", Credentials{Gemini: true}, Defaults(Copilot))
	assert.Equal(t, Gemini, res.Provider)

	res = Resolve("", "", Credentials{OpenAI: true}, Defaults(Copilot))
	assert.Equal(t, OpenAI, res.Provider)
}

func TestResolveFallbackDiscardsExplicitModel(t *testing.T) {
	// A gemini model requested with only the openai key configured: the
	// provider switches and the model is not carried across.
	res := Resolve("gemini/gemini-1.5-pro", "", Credentials{OpenAI: true}, Defaults(Copilot))

	assert.Equal(t, OpenAI, res.Provider)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestResolveServiceConfigModelWins(t *testing.T) {
	cfg := Config{Provider: Gemini, ModelName: "gemini-2.5-pro"}
	res := Resolve("", "gemini", bothKeys, cfg)

	assert.Equal(t, "gemini-2.5-pro", res.Model)
}

func TestResolveConfigModelIgnoredForOtherProvider(t *testing.T) {
	cfg := Config{Provider: Gemini, ModelName: "gemini-2.5-pro"}
	res := Resolve("", "openai", bothKeys, cfg)

	assert.Equal(t, OpenAI, res.Provider)
	assert.Equal(t, "gpt-4o-mini", res.Model)
}

func TestResolveNoKeysStillResolves(t *testing.T) {
	// Key absence is the caller's 401, not a resolver failure.
	res := Resolve("", "", Credentials{}, Defaults(Copilot))

	assert.Equal(t, OpenAI, res.Provider)
	assert.NotEmpty(t, res.Model)
}

func TestDefaultsPerService(t *testing.T) {
	copilot := Defaults(Copilot)
	assert.Equal(t, Gemini, copilot.Provider)
	assert.Equal(t, "gemini-2.0-flash", copilot.ModelName)
	assert.Equal(t, 0.7, copilot.Temperature)
	assert.Equal(t, 50, copilot.MaxOutputTokens)

	extraction := Defaults(Extraction)
	assert.Greater(t, extraction.MaxOutputTokens, copilot.MaxOutputTokens)
}

func TestCredentialsNone(t *testing.T) {
	assert.True(t, Credentials{}.None())
	assert.False(t, Credentials{Gemini: true}.None())
}
