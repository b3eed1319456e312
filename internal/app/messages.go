package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-trivia-service/internal/domain"
)

func mention(participantID string) string {
	return "<@" + participantID + ">"
}

func introText(snapshot domain.SessionSnapshot, timeout time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quiz on **%s**: %d question(s), %s each.", snapshot.Topic, snapshot.Total, timeout)
	switch snapshot.Policy {
	case domain.PolicyOpen:
		b.WriteString(" Answer with A, B, C or D. First correct answer scores.")
	case domain.PolicyOwner:
		fmt.Fprintf(&b, " Only %s scores in this quiz.", mention(snapshot.OwnerID))
	}
	return b.String()
}

func questionText(q domain.Question, number, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Question %d/%d**: %s", number, total, q.Prompt)
	if len(q.Options) > 0 {
		for _, label := range domain.ChoiceLabels {
			fmt.Fprintf(&b, "\n%s) %s", label, q.Options[label])
		}
	}
	return b.String()
}

func correctText(policy domain.Policy, ownerID, participantID string, verdict domain.Verdict) string {
	if policy == domain.PolicyOwner && verdict.Scorer == "" {
		return fmt.Sprintf("%s got it: **%s**. No point, only %s scores here.",
			mention(participantID), verdict.CanonicalAnswer, mention(ownerID))
	}
	return fmt.Sprintf("Correct, %s! The answer was **%s**.", mention(participantID), verdict.CanonicalAnswer)
}

func wrongText(participantID string) string {
	return fmt.Sprintf("Not quite, %s.", mention(participantID))
}

func timeoutText(q domain.Question) string {
	return fmt.Sprintf("Time's up! The answer was **%s**.", q.CanonicalAnswer())
}

func resultText(result domain.QuizResult) string {
	if result.Policy == domain.PolicyOwner {
		score := 0
		for _, e := range result.Leaderboard.Entries {
			if e.ParticipantID == result.OwnerID {
				score = e.Score
			}
		}
		return fmt.Sprintf("Quiz over! %s scored %d/%d.", mention(result.OwnerID), score, result.Leaderboard.Total)
	}
	return "Quiz over! " + standingsText(result.Leaderboard)
}

func stoppedText(snapshot domain.SessionSnapshot) string {
	return "Quiz stopped. " + standingsText(snapshot.Leaderboard)
}

func standingsText(lb domain.Leaderboard) string {
	if len(lb.Entries) == 0 {
		return "Nobody scored."
	}
	var b strings.Builder
	b.WriteString("Final standings:")
	for i, e := range lb.Entries {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, mention(e.ParticipantID), e.Score)
	}
	return b.String()
}

// StandingsText renders all-time standings for chat.
func StandingsText(lb domain.Leaderboard) string {
	if len(lb.Entries) == 0 {
		return "No finished quizzes in this channel yet."
	}
	var b strings.Builder
	b.WriteString("All-time standings:")
	for i, e := range lb.Entries {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, mention(e.ParticipantID), e.Score)
	}
	return b.String()
}

func startFailedText(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionConflict):
		return "A quiz is already running in this channel. Stop it first."
	case errors.Is(err, domain.ErrInvalidRequest):
		return "Could not start the quiz: " + err.Error()
	default:
		return "Could not generate questions for that topic. Try again."
	}
}
