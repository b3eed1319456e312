package memory

import (
	"context"
	"testing"
	"time"

	"chat-trivia-service/internal/domain"
)

func TestQuestionBankCachesPool(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(DemoBank())}
	bank := NewQuestionBank(loader, time.Minute)

	questions, err := bank.Generate(context.Background(), "Space", 3, domain.PolicyOpen)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.Generate(context.Background(), "space", 2, domain.PolicyOpen); err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankSamplesWithoutRepeats(t *testing.T) {
	bank := NewQuestionBank(NewStaticBankLoader(DemoBank()), time.Minute)

	questions, err := bank.Generate(context.Background(), "geography", 20, domain.PolicyOwner)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("expected whole pool of 5, got %d", len(questions))
	}
	seen := make(map[string]bool)
	for _, q := range questions {
		if seen[q.Prompt] {
			t.Fatalf("question repeated: %q", q.Prompt)
		}
		seen[q.Prompt] = true
	}
}

func TestQuestionBankUnknownTopic(t *testing.T) {
	bank := NewQuestionBank(NewStaticBankLoader(DemoBank()), time.Minute)
	if _, err := bank.Generate(context.Background(), "cooking", 5, domain.PolicyOpen); err == nil {
		t.Fatalf("expected error for empty pool")
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, topic string, policy domain.Policy) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, topic, policy)
}
