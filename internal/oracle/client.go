package oracle

import (
	"context"
	"errors"
)

// ErrOracle marks any failure of the external AI service: unreachable,
// non-2xx, or malformed output. Callers degrade rather than propagate it.
var ErrOracle = errors.New("oracle error")

// DreamAnalysis is the structured output of dream interpretation.
type DreamAnalysis struct {
	Themes       []string `json:"themes"`
	Emotions     []string `json:"emotions"`
	Symbols      []string `json:"symbols"`
	Narrative    string   `json:"narrative"`
	Tags         []string `json:"tags"`
	VisualPrompt string   `json:"visual_prompt"`
}

// Refinement is the oracle's second-stage resonance verdict.
type Refinement struct {
	Score       int    `json:"score"`
	Explanation string `json:"explanation"`
}

// RefineInput carries both sides of a candidate resonance to the oracle.
type RefineInput struct {
	DreamThemes   []string
	DreamEmotions []string
	DreamTags     []string
	MomentCaption string
	MomentTags    []string
}

// Client is the boundary to the external AI service. All methods are
// best-effort from the caller's perspective; content creation never
// depends on them succeeding.
type Client interface {
	AnalyzeDream(ctx context.Context, description string) (*DreamAnalysis, error)
	TagMoment(ctx context.Context, caption, mediaType string) ([]string, error)
	RefineResonance(ctx context.Context, in RefineInput) (*Refinement, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Moderate(ctx context.Context, text string) (bool, error)
}
