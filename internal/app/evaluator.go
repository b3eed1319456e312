package app

import (
	"sort"
	"strings"

	"chat-trivia-service/internal/domain"
	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Evaluate checks raw against q under the given policy. It performs no I/O and
// mutates nothing; the session applies Verdict.Scorer.
//
// Owner policy: trimmed, case-folded exact match. Anyone can close the
// question, but only the owner is ever credited.
// Open policy: the token must equal the correct label; the submitter is credited.
func Evaluate(policy domain.Policy, q domain.Question, ownerID, participantID, raw string) domain.Verdict {
	verdict := domain.Verdict{CanonicalAnswer: q.CanonicalAnswer()}

	switch policy {
	case domain.PolicyOwner:
		verdict.Correct = normalizeFreeText(raw) == normalizeFreeText(q.Answer)
		if verdict.Correct && participantID == ownerID {
			verdict.Scorer = ownerID
		}
	case domain.PolicyOpen:
		label, ok := domain.ParseChoice(raw)
		verdict.Correct = ok && label == q.Correct
		if verdict.Correct {
			verdict.Scorer = participantID
		}
	}
	return verdict
}

// AcceptsAnswer reports whether a raw chat message should be forwarded as an
// answer under policy. Open quizzes only take A-D tokens.
func AcceptsAnswer(policy domain.Policy, raw string) bool {
	if policy == domain.PolicyOpen {
		_, ok := domain.ParseChoice(raw)
		return ok
	}
	return strings.TrimSpace(raw) != ""
}

func normalizeFreeText(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// NewLeaderboard orders participants by score, highest first. Ties keep the
// order in which participants first scored.
func NewLeaderboard(channelID string, total int, order []string, scores map[string]int) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, domain.LeaderboardEntry{ParticipantID: id, Score: scores[id]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return domain.Leaderboard{ChannelID: channelID, Entries: entries, Total: total}
}
