package memory

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"chat-trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches the full question pool for a topic from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, topic string, policy domain.Policy) ([]domain.Question, error)
}

// QuestionBank is a question generator that samples from a cached pool per
// topic and policy, refreshing pools after a TTL.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedPool
}

type cachedPool struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPool),
	}
}

// Generate returns up to count questions drawn at random from the topic's pool.
func (b *QuestionBank) Generate(ctx context.Context, topic string, count int, policy domain.Policy) ([]domain.Question, error) {
	pool, err := b.pool(ctx, topic, policy)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no questions stored for %q", topic)
	}

	b.mu.Lock()
	order := b.rnd.Perm(len(pool))
	b.mu.Unlock()

	if count > len(order) {
		count = len(order)
	}
	out := make([]domain.Question, 0, count)
	for _, i := range order[:count] {
		out = append(out, pool[i])
	}
	return out, nil
}

func (b *QuestionBank) pool(ctx context.Context, topic string, policy domain.Policy) ([]domain.Question, error) {
	key := string(policy) + ":" + strings.ToLower(strings.TrimSpace(topic))
	if pool, ok := b.cached(key); ok {
		return pool, nil
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		if pool, ok := b.cached(key); ok {
			return pool, nil
		}
		pool, err := b.loader.LoadBank(ctx, topic, policy)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = cachedPool{
			questions: pool,
			expiresAt: b.clock().Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) cached(key string) ([]domain.Question, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.cache[key]
	if !ok || !entry.expiresAt.After(b.clock()) {
		return nil, false
	}
	return entry.questions, true
}

// ttlWithJitter must be called with mu held.
func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader serves pools from an in-memory map keyed by lower-cased topic
// (useful for tests/demos). Questions that do not fit the requested policy are skipped.
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	normalized := make(map[string][]domain.Question, len(banks))
	for topic, questions := range banks {
		key := strings.ToLower(strings.TrimSpace(topic))
		normalized[key] = append(normalized[key], questions...)
	}
	return &StaticBankLoader{banks: normalized}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, topic string, policy domain.Policy) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range l.banks[strings.ToLower(strings.TrimSpace(topic))] {
		q = q.ForPolicy(policy)
		if q.Validate(policy) == nil {
			out = append(out, q)
		}
	}
	return out, nil
}

// DemoBank is the built-in pool used by the static generator backend.
func DemoBank() map[string][]domain.Question {
	return map[string][]domain.Question{
		"space": {
			{Prompt: "Largest planet in the solar system?", Answer: "Jupiter",
				Options: map[string]string{"A": "Saturn", "B": "Jupiter", "C": "Neptune", "D": "Earth"}, Correct: "B"},
			{Prompt: "Closest star to Earth?", Answer: "The Sun",
				Options: map[string]string{"A": "Proxima Centauri", "B": "Sirius", "C": "The Sun", "D": "Vega"}, Correct: "C"},
			{Prompt: "Which planet is known as the red planet?", Answer: "Mars",
				Options: map[string]string{"A": "Mars", "B": "Venus", "C": "Mercury", "D": "Uranus"}, Correct: "A"},
			{Prompt: "What is the name of Earth's natural satellite?", Answer: "Moon",
				Options: map[string]string{"A": "Phobos", "B": "Titan", "C": "Europa", "D": "Moon"}, Correct: "D"},
			{Prompt: "Which planet has the shortest year?", Answer: "Mercury",
				Options: map[string]string{"A": "Venus", "B": "Mercury", "C": "Mars", "D": "Earth"}, Correct: "B"},
		},
		"geography": {
			{Prompt: "Capital of France?", Answer: "Paris",
				Options: map[string]string{"A": "Lyon", "B": "Marseille", "C": "Paris", "D": "Nice"}, Correct: "C"},
			{Prompt: "Longest river in South America?", Answer: "Amazon",
				Options: map[string]string{"A": "Amazon", "B": "Parana", "C": "Orinoco", "D": "Madeira"}, Correct: "A"},
			{Prompt: "Which country has the most islands?", Answer: "Sweden",
				Options: map[string]string{"A": "Indonesia", "B": "Philippines", "C": "Norway", "D": "Sweden"}, Correct: "D"},
			{Prompt: "Capital of Japan?", Answer: "Tokyo",
				Options: map[string]string{"A": "Kyoto", "B": "Tokyo", "C": "Osaka", "D": "Nagoya"}, Correct: "B"},
			{Prompt: "Smallest country in the world?", Answer: "Vatican City",
				Options: map[string]string{"A": "Monaco", "B": "San Marino", "C": "Vatican City", "D": "Malta"}, Correct: "C"},
		},
	}
}
