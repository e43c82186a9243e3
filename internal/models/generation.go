package models

import (
	"errors"
	"fmt"
)

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 5000

	DefaultTemperature = 1.0
	DefaultTopP        = 0.94
	DefaultMaxTokens   = 2000
)

// ErrInvalidConfig marks generation parameters outside the panel bounds.
var ErrInvalidConfig = errors.New("invalid generation config")

// ModelOption is one entry of the model catalog.
type ModelOption struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// GenerationConfig holds the tunable parameters of one inference call.
type GenerationConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultGenerationConfig returns the panel defaults for the given model.
func DefaultGenerationConfig(model string) GenerationConfig {
	return GenerationConfig{
		Model:       model,
		Temperature: DefaultTemperature,
		TopP:        DefaultTopP,
		MaxTokens:   DefaultMaxTokens,
	}
}

// Validate checks the bounds and resolves the model against the catalog.
func (g GenerationConfig) Validate(catalog []ModelOption) (ModelOption, error) {
	if !(g.Temperature >= MinTemperature && g.Temperature <= MaxTemperature) { // also rejects NaN
		return ModelOption{}, fmt.Errorf("%w: temperature %.2f outside [%.1f, %.1f]", ErrInvalidConfig, g.Temperature, MinTemperature, MaxTemperature)
	}
	if !(g.TopP >= MinTopP && g.TopP <= MaxTopP) {
		return ModelOption{}, fmt.Errorf("%w: top_p %.2f outside [%.1f, %.1f]", ErrInvalidConfig, g.TopP, MinTopP, MaxTopP)
	}
	if g.MaxTokens < MinMaxTokens || g.MaxTokens > MaxMaxTokens {
		return ModelOption{}, fmt.Errorf("%w: max_tokens %d outside [%d, %d]", ErrInvalidConfig, g.MaxTokens, MinMaxTokens, MaxMaxTokens)
	}
	for _, opt := range catalog {
		if opt.Name == g.Model {
			return opt, nil
		}
	}
	return ModelOption{}, fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, g.Model)
}

// Options is what the parameter panel renders.
type Options struct {
	MediaTypes []MediaType            `json:"media_types"`
	Models     []ModelOption          `json:"models"`
	Defaults   GenerationConfig       `json:"defaults"`
	Bounds     map[string][2]any      `json:"bounds"`
	Accept     map[MediaType][]string `json:"accept"`
}
