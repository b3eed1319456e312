package app

import (
	"sync"
	"time"

	"chat-trivia-service/internal/domain"
	"github.com/google/uuid"
)

// SessionParams describes a quiz to be created by a SessionRepository.
// When Schedule is set the first deadline is armed before the session is
// returned, so it is never visible without one.
type SessionParams struct {
	Topic     string
	Policy    domain.Policy
	OwnerID   string
	Questions []domain.Question
	Schedule  func(Deadline) Timer
}

// Session is the per-channel quiz record. All state changes happen under mu so
// that a question can be consumed at most once, whichever trigger gets there first.
type Session struct {
	id        string
	channelID string
	topic     string
	policy    domain.Policy
	ownerID   string
	questions []domain.Question
	createdAt time.Time

	mu       sync.Mutex
	index    int
	consumed bool
	active   bool
	// presented is false until the first question has been announced.
	presented bool
	scores    map[string]int
	order     []string
	deadline  Timer
}

// NewSession is exported for infrastructure layers that own the session slots.
func NewSession(channelID string, params SessionParams) *Session {
	questions := make([]domain.Question, len(params.Questions))
	copy(questions, params.Questions)

	s := &Session{
		id:        uuid.Must(uuid.NewV7()).String(),
		channelID: channelID,
		topic:     params.Topic,
		policy:    params.Policy,
		ownerID:   params.OwnerID,
		questions: questions,
		createdAt: time.Now(),
		active:    len(questions) > 0,
		scores:    make(map[string]int),
	}
	if s.policy == domain.PolicyOwner {
		s.scores[s.ownerID] = 0
		s.order = append(s.order, s.ownerID)
	}
	if s.active && params.Schedule != nil {
		s.armLocked(params.Schedule)
	}
	return s
}

func (s *Session) ID() string            { return s.id }
func (s *Session) ChannelID() string     { return s.channelID }
func (s *Session) Policy() domain.Policy { return s.policy }
func (s *Session) OwnerID() string       { return s.ownerID }
func (s *Session) Topic() string         { return s.topic }
func (s *Session) QuestionCount() int    { return len(s.questions) }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }

// step is the outcome of advancing past a consumed question.
type step struct {
	question domain.Question
	number   int
	total    int
	finished bool
}

// submit evaluates an answer against the current question. A correct verdict
// consumes the question and applies the score in the same critical section.
func (s *Session) submit(participantID, raw string) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.Verdict{}, domain.ErrNoActiveSession
	}
	if s.consumed || !s.presented {
		return domain.Verdict{}, domain.ErrStaleTransition
	}

	verdict := Evaluate(s.policy, s.questions[s.index], s.ownerID, participantID, raw)
	if !verdict.Correct {
		return verdict, nil
	}
	s.consumeLocked()
	if verdict.Scorer != "" {
		if _, ok := s.scores[verdict.Scorer]; !ok {
			s.order = append(s.order, verdict.Scorer)
		}
		s.scores[verdict.Scorer]++
	}
	return verdict, nil
}

// expire consumes question index on behalf of its deadline.
func (s *Session) expire(index int) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.Question{}, domain.ErrNoActiveSession
	}
	if s.consumed || s.index != index {
		return domain.Question{}, domain.ErrStaleTransition
	}
	s.consumeLocked()
	return s.questions[s.index], nil
}

func (s *Session) consumeLocked() {
	s.consumed = true
	s.disarmLocked()
}

// advance moves the cursor past a consumed question and, when questions
// remain, arms the next deadline before releasing the lock.
func (s *Session) advance(schedule func(Deadline) Timer) (step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || !s.consumed {
		return step{}, domain.ErrStaleTransition
	}
	s.index++
	if s.index >= len(s.questions) {
		s.active = false
		return step{number: s.index, total: len(s.questions), finished: true}, nil
	}
	s.consumed = false
	s.presented = true
	s.armLocked(schedule)
	return step{
		question: s.questions[s.index],
		number:   s.index + 1,
		total:    len(s.questions),
	}, nil
}

// present marks the first question as announced and starts accepting answers.
// It fails once the first question has been consumed or the session closed.
func (s *Session) present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.ErrNoActiveSession
	}
	if s.index != 0 || s.consumed {
		return domain.ErrStaleTransition
	}
	s.presented = true
	return nil
}

// armLocked replaces any pending deadline with one for the current question.
func (s *Session) armLocked(schedule func(Deadline) Timer) {
	s.disarmLocked()
	s.deadline = schedule(Deadline{ChannelID: s.channelID, SessionID: s.id, Index: s.index})
}

func (s *Session) disarmLocked() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
}

// Close deactivates the session and disarms its deadline. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.disarmLocked()
}

// Armed reports whether a deadline is pending.
func (s *Session) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deadline != nil
}

// Snapshot returns a read-only copy of the session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		SessionID:    s.id,
		ChannelID:    s.channelID,
		Topic:        s.topic,
		Policy:       s.policy,
		OwnerID:      s.ownerID,
		CurrentIndex: s.index,
		Total:        len(s.questions),
		Consumed:     s.consumed,
		Active:       s.active,
		Leaderboard:  NewLeaderboard(s.channelID, len(s.questions), s.order, s.scores),
		CreatedAt:    s.createdAt,
	}
}

func (s *Session) result(finishedAt time.Time) domain.QuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.QuizResult{
		SessionID:   s.id,
		ChannelID:   s.channelID,
		Topic:       s.topic,
		Policy:      s.policy,
		OwnerID:     s.ownerID,
		Leaderboard: NewLeaderboard(s.channelID, len(s.questions), s.order, s.scores),
		FinishedAt:  finishedAt,
	}
}
