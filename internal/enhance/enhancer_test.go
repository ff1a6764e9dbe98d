package enhance

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGen struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeGen) GenerateText(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestEnhanceText(t *testing.T) {
	gen := &fakeGen{response: "  Seize OBJ LION no later than 0600.  "}
	e := New(gen, nil)

	res, err := e.EnhanceText(context.Background(), "take the objective by morning", ModeConciseness)
	if err != nil {
		t.Fatalf("EnhanceText: %v", err)
	}
	if res.EnhancedText != "Seize OBJ LION no later than 0600." {
		t.Errorf("enhanced = %q, want trimmed model output", res.EnhancedText)
	}
	if res.OriginalText != "take the objective by morning" {
		t.Errorf("original = %q", res.OriginalText)
	}
	if !strings.Contains(gen.gotPrompt, "more concise") {
		t.Errorf("prompt missing conciseness instructions:\n%s", gen.gotPrompt)
	}
	if !strings.Contains(gen.gotPrompt, "take the objective by morning") {
		t.Errorf("prompt missing input text")
	}
}

func TestEnhanceTextEmptyInput(t *testing.T) {
	e := New(&fakeGen{response: "x"}, nil)
	if _, err := e.EnhanceText(context.Background(), "   ", ModeGeneral); err == nil {
		t.Fatal("expected error for whitespace-only input")
	}
}

func TestEnhanceTextUnknownMode(t *testing.T) {
	e := New(&fakeGen{response: "x"}, nil)
	if _, err := e.EnhanceText(context.Background(), "hold the bridge", Mode("aggressive")); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestEnhanceTextGeneratorFailure(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	e := New(&fakeGen{err: wantErr}, nil)
	_, err := e.EnhanceText(context.Background(), "hold the bridge", ModeGeneral)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped generator error", err)
	}
}

func TestEnhanceTextEmptyModelOutput(t *testing.T) {
	e := New(&fakeGen{response: "   \n"}, nil)
	if _, err := e.EnhanceText(context.Background(), "hold the bridge", ModeClarity); err == nil {
		t.Fatal("expected error when model returns nothing")
	}
}

func TestEnhanceStringMode(t *testing.T) {
	e := New(&fakeGen{response: "Destroy the enemy force on OBJ BEAR."}, nil)
	got, err := e.Enhance(context.Background(), "beat them at the hill", "impact")
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if got != "Destroy the enemy force on OBJ BEAR." {
		t.Errorf("got %q", got)
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"general", "conciseness", "clarity", "impact"} {
		if !ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if ValidMode("verbose") {
		t.Error(`ValidMode("verbose") = true`)
	}
}
