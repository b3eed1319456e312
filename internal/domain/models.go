package domain

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects how answers are evaluated and who earns points.
type Policy string

const (
	// PolicyOwner is the free-text variant: anyone may close a question, only the owner scores.
	PolicyOwner Policy = "owner"
	// PolicyOpen is the multiple-choice variant: the first correct participant scores.
	PolicyOpen Policy = "open"
)

// ParsePolicy maps user input to a Policy, falling back when the value is empty.
func ParsePolicy(raw string, fallback Policy) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return fallback, nil
	case PolicyOwner, "solo", "freetext":
		return PolicyOwner, nil
	case PolicyOpen, "choice", "mc":
		return PolicyOpen, nil
	}
	return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidRequest, raw)
}

// ChoiceLabels is the fixed label set for multiple-choice questions.
var ChoiceLabels = []string{"A", "B", "C", "D"}

// ParseChoice normalizes a submitted token and reports whether it is a valid label.
func ParseChoice(raw string) (string, bool) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	for _, label := range ChoiceLabels {
		if token == label {
			return token, true
		}
	}
	return "", false
}

// Question is an immutable quiz question. Free-text questions set Answer;
// multiple-choice questions set Options and Correct.
type Question struct {
	Prompt  string            `json:"question"`
	Answer  string            `json:"answer,omitempty"`
	Options map[string]string `json:"options,omitempty"`
	Correct string            `json:"correct,omitempty"`
}

// CanonicalAnswer is the answer text revealed when the question closes.
func (q Question) CanonicalAnswer() string {
	if len(q.Options) == 0 {
		return q.Answer
	}
	return fmt.Sprintf("%s) %s", q.Correct, q.Options[q.Correct])
}

// ForPolicy drops the fields the policy does not use, so free-text questions
// never render options.
func (q Question) ForPolicy(policy Policy) Question {
	switch policy {
	case PolicyOwner:
		q.Options = nil
		q.Correct = ""
	case PolicyOpen:
		q.Answer = ""
	}
	return q
}

// Validate checks that the question is well-formed for the given policy.
func (q Question) Validate(policy Policy) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("empty prompt")
	}
	switch policy {
	case PolicyOwner:
		if strings.TrimSpace(q.Answer) == "" {
			return fmt.Errorf("empty answer for %q", q.Prompt)
		}
	case PolicyOpen:
		for _, label := range ChoiceLabels {
			if strings.TrimSpace(q.Options[label]) == "" {
				return fmt.Errorf("missing option %s for %q", label, q.Prompt)
			}
		}
		if label, ok := ParseChoice(q.Correct); !ok || label != q.Correct {
			return fmt.Errorf("invalid correct label %q for %q", q.Correct, q.Prompt)
		}
	default:
		return fmt.Errorf("unknown policy %q", policy)
	}
	return nil
}

// Verdict is the outcome of evaluating one submitted answer.
type Verdict struct {
	Correct         bool   `json:"correct"`
	CanonicalAnswer string `json:"canonicalAnswer"`
	// Scorer is the participant credited with a point, empty when nobody scores.
	Scorer string `json:"scorer,omitempty"`
}

// LeaderboardEntry is one participant's standing.
type LeaderboardEntry struct {
	ParticipantID string `json:"participantId"`
	Score         int    `json:"score"`
}

// Leaderboard is ordered by score descending; ties keep the order in which participants first scored.
type Leaderboard struct {
	ChannelID string             `json:"channelId"`
	Entries   []LeaderboardEntry `json:"entries"`
	Total     int                `json:"total"`
}

// SessionSnapshot is a read-only copy of a session's state.
type SessionSnapshot struct {
	SessionID    string      `json:"sessionId"`
	ChannelID    string      `json:"channelId"`
	Topic        string      `json:"topic"`
	Policy       Policy      `json:"policy"`
	OwnerID      string      `json:"ownerId,omitempty"`
	CurrentIndex int         `json:"currentIndex"`
	Total        int         `json:"total"`
	Consumed     bool        `json:"consumed"`
	Active       bool        `json:"active"`
	Leaderboard  Leaderboard `json:"leaderboard"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// QuizResult is handed to result recorders once a quiz finishes.
type QuizResult struct {
	SessionID   string      `json:"sessionId"`
	ChannelID   string      `json:"channelId"`
	Topic       string      `json:"topic"`
	Policy      Policy      `json:"policy"`
	OwnerID     string      `json:"ownerId,omitempty"`
	Leaderboard Leaderboard `json:"leaderboard"`
	FinishedAt  time.Time   `json:"finishedAt"`
}
