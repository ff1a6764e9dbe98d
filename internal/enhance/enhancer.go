// Package enhance is the text-enhancement collaborator: it rewrites a
// selected passage with the generative model under one of four focus
// modes. A failed call returns an error; the caller's content is never
// silently replaced with an echo of the input.
package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects the enhancement focus.
type Mode string

const (
	ModeGeneral     Mode = "general"
	ModeConciseness Mode = "conciseness"
	ModeClarity     Mode = "clarity"
	ModeImpact      Mode = "impact"
)

var modeInstructions = map[Mode]string{
	ModeGeneral:     "Enhance this military text while maintaining accuracy and clarity.",
	ModeConciseness: "Make this military text more concise while preserving key information.",
	ModeClarity:     "Improve the clarity of this military text while maintaining technical accuracy.",
	ModeImpact:      "Enhance the impact and directness of this military text.",
}

// ValidMode reports whether s names a known enhancement mode.
func ValidMode(s string) bool {
	_, ok := modeInstructions[Mode(s)]
	return ok
}

// TextGenerator is the slice of the genai client this package needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Result pairs the input with the model's suggested replacement.
type Result struct {
	OriginalText string `json:"original_text"`
	EnhancedText string `json:"enhanced_text"`
}

// Enhancer calls the generative model with mode-specific instructions.
type Enhancer struct {
	gen TextGenerator
	log *slog.Logger
}

func New(gen TextGenerator, log *slog.Logger) *Enhancer {
	if log == nil {
		log = slog.Default()
	}
	return &Enhancer{gen: gen, log: log}
}

// BuildPrompt assembles the enhancement prompt for a mode.
func BuildPrompt(text string, mode Mode) string {
	focus, ok := modeInstructions[mode]
	if !ok {
		focus = modeInstructions[ModeGeneral]
	}
	var sb strings.Builder
	sb.WriteString("You are a military writing expert. Your task is to enhance the following text.\n\n")
	sb.WriteString("Instructions: ")
	sb.WriteString(focus)
	sb.WriteString("\n- Preserve all tactical and operational meaning\n")
	sb.WriteString("- Maintain military terminology and doctrine\n")
	sb.WriteString("- Keep the same level of detail and specificity\n")
	sb.WriteString("- Focus on readability and effectiveness\n")
	sb.WriteString("\nText to enhance:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nEnhanced version:")
	return sb.String()
}

// EnhanceText rewrites text under the given mode.
func (e *Enhancer) EnhanceText(ctx context.Context, text string, mode Mode) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("enhance: input text cannot be empty")
	}
	if _, ok := modeInstructions[mode]; !ok {
		return nil, fmt.Errorf("enhance: unknown mode %q", mode)
	}

	raw, err := e.gen.GenerateText(ctx, BuildPrompt(text, mode))
	if err != nil {
		return nil, fmt.Errorf("enhancement call: %w", err)
	}
	enhanced := strings.TrimSpace(raw)
	if enhanced == "" {
		return nil, fmt.Errorf("enhance: empty suggestion from model")
	}
	return &Result{OriginalText: text, EnhancedText: enhanced}, nil
}

// Enhance implements editor.Enhancer.
func (e *Enhancer) Enhance(ctx context.Context, text, mode string) (string, error) {
	result, err := e.EnhanceText(ctx, text, Mode(mode))
	if err != nil {
		return "", err
	}
	return result.EnhancedText, nil
}
