package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chat-trivia-service/internal/domain"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = goopenai.GPT4oMini

// Config selects the endpoint and model. BaseURL is optional.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Generator asks a chat-completion model for a question list in JSON.
type Generator struct {
	client *goopenai.Client
	model  string
}

func NewGenerator(c Config) *Generator {
	cfg := goopenai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: goopenai.NewClientWithConfig(cfg), model: model}
}

// Generate makes exactly one completion call. Any malformed record fails the whole list.
func (g *Generator) Generate(ctx context.Context, topic string, count int, policy domain.Policy) ([]domain.Question, error) {
	resp, err := g.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: g.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt(policy)},
			{Role: goopenai.ChatMessageRoleUser, Content: fmt.Sprintf("Topic: %s\nNumber of questions: %d", topic, count)},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	return parseQuestions(resp.Choices[0].Message.Content, policy)
}

func systemPrompt(policy domain.Policy) string {
	if policy == domain.PolicyOwner {
		return `You write trivia questions. Reply with JSON only: {"questions":[{"question":"...","answer":"..."}]}. ` +
			`Answers must be one or two words so they can be typed exactly.`
	}
	return `You write multiple-choice trivia questions. Reply with JSON only: ` +
		`{"questions":[{"question":"...","options":{"A":"...","B":"...","C":"...","D":"..."},"correct":"A"}]}. ` +
		`Exactly one option is correct and "correct" is its letter.`
}

// parseQuestions accepts a bare array or an object with a "questions" array,
// optionally wrapped in a markdown code fence.
func parseQuestions(content string, policy domain.Policy) ([]domain.Question, error) {
	body := stripFence(content)

	var questions []domain.Question
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &questions); err != nil {
			return nil, fmt.Errorf("decode question array: %w", err)
		}
	} else {
		var wrapped struct {
			Questions []domain.Question `json:"questions"`
		}
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("decode question object: %w", err)
		}
		questions = wrapped.Questions
	}
	if len(questions) == 0 {
		return nil, errors.New("model returned no questions")
	}

	for i := range questions {
		q := &questions[i]
		q.Prompt = strings.TrimSpace(q.Prompt)
		q.Answer = strings.TrimSpace(q.Answer)
		if label, ok := domain.ParseChoice(q.Correct); ok {
			q.Correct = label
		}
		if err := q.Validate(policy); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return questions, nil
}

func stripFence(content string) string {
	body := strings.TrimSpace(content)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
