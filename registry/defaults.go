package registry

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// NewWithDefaults returns a registry pre-populated with a built-in catalog
// keyed by the provider SDKs' model identifiers. Identity embeddings are
// derived deterministically from the model id (see Register), so the catalog
// is reproducible across runs without an embedding service. Costs are USD
// per 1K tokens at list price; capability strengths are coarse editorial
// scores, not measurements.
func NewWithDefaults() *Registry {
	r := New()

	r.Register(ModelEntry{
		ID: string(openai.ChatModelGPT4o),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.9},
			{Name: "coding", Strength: 0.85},
			{Name: "vision", Strength: 0.8},
		},
		CostPer1K:  0.0025,
		MaxContext: 128_000,
	})
	r.Register(ModelEntry{
		ID: string(openai.ChatModelGPT4oMini),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.7},
			{Name: "coding", Strength: 0.65},
			{Name: "speed", Strength: 0.95},
		},
		CostPer1K:  0.00015,
		MaxContext: 128_000,
	})
	r.Register(ModelEntry{
		ID: string(openai.ChatModelGPT4Turbo),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.85},
			{Name: "coding", Strength: 0.8},
		},
		CostPer1K:  0.01,
		MaxContext: 128_000,
	})
	r.Register(ModelEntry{
		ID: string(anthropic.ModelClaude3_5Sonnet20241022),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.92},
			{Name: "coding", Strength: 0.9},
			{Name: "writing", Strength: 0.9},
		},
		CostPer1K:  0.003,
		MaxContext: 200_000,
	})
	r.Register(ModelEntry{
		ID: string(anthropic.ModelClaude3_5HaikuLatest),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.7},
			{Name: "speed", Strength: 0.9},
		},
		CostPer1K:  0.0008,
		MaxContext: 200_000,
	})
	r.Register(ModelEntry{
		ID: string(anthropic.ModelClaude3OpusLatest),
		Capabilities: []Capability{
			{Name: "reasoning", Strength: 0.95},
			{Name: "writing", Strength: 0.95},
		},
		CostPer1K:  0.015,
		MaxContext: 200_000,
	})

	return r
}
