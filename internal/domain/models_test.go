package domain

import (
	"errors"
	"testing"
)

func TestParseChoice(t *testing.T) {
	cases := map[string]struct {
		label string
		ok    bool
	}{
		"a":   {"A", true},
		" D ": {"D", true},
		"E":   {"", false},
		"AB":  {"", false},
		"":    {"", false},
	}
	for raw, want := range cases {
		label, ok := ParseChoice(raw)
		if label != want.label || ok != want.ok {
			t.Fatalf("ParseChoice(%q) = %q, %v; want %q, %v", raw, label, ok, want.label, want.ok)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	choice := Question{
		Prompt:  "Largest planet?",
		Options: map[string]string{"A": "Mars", "B": "Jupiter", "C": "Venus", "D": "Earth"},
		Correct: "B",
	}
	if err := choice.Validate(PolicyOpen); err != nil {
		t.Fatalf("expected valid choice question, got %v", err)
	}
	if got := choice.CanonicalAnswer(); got != "B) Jupiter" {
		t.Fatalf("unexpected canonical answer %q", got)
	}

	missing := choice
	missing.Options = map[string]string{"A": "Mars", "B": "Jupiter"}
	if err := missing.Validate(PolicyOpen); err == nil {
		t.Fatalf("expected missing options to fail")
	}

	lower := choice
	lower.Correct = "b"
	if err := lower.Validate(PolicyOpen); err == nil {
		t.Fatalf("expected non-normalized label to fail")
	}

	free := Question{Prompt: "Capital of France?", Answer: "Paris"}
	if err := free.Validate(PolicyOwner); err != nil {
		t.Fatalf("expected valid free-text question, got %v", err)
	}
	if err := (Question{Prompt: "?"}).Validate(PolicyOwner); err == nil {
		t.Fatalf("expected empty answer to fail")
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("", PolicyOpen)
	if err != nil || p != PolicyOpen {
		t.Fatalf("expected fallback, got %q %v", p, err)
	}
	p, err = ParsePolicy("Solo", PolicyOpen)
	if err != nil || p != PolicyOwner {
		t.Fatalf("expected owner policy, got %q %v", p, err)
	}
	if _, err := ParsePolicy("team", PolicyOpen); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}
