package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chat-trivia-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxQuestions caps the count a start request may ask for.
const DefaultMaxQuestions = 20

// SessionRepository abstracts where channel sessions live (in-memory, Redis-backed, etc).
// Implementations hold at most one session per channel and close a session when
// removing it, so its deadline is disarmed synchronously.
type SessionRepository interface {
	Create(channelID string, params SessionParams) (*Session, error)
	Get(channelID string) (*Session, bool)
	// End removes the slot only if it still holds sessionID, reporting
	// whether it did. Ending an absent session is a no-op.
	End(channelID, sessionID string) bool
}

// QuestionGenerator produces the full question list for a new quiz in one call.
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string, count int, policy domain.Policy) ([]domain.Question, error)
}

// Notifier delivers text to a chat surface. Failures are logged by the caller, never retried.
type Notifier interface {
	Announce(ctx context.Context, channelID, text string) error
	Acknowledge(ctx context.Context, channelID, participantID, text string) error
}

// ResultRecorder persists finished quizzes.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result domain.QuizResult) error
}

// StandingsReader serves all-time points per channel, highest first.
type StandingsReader interface {
	Top(ctx context.Context, channelID string, limit int) ([]domain.LeaderboardEntry, error)
}

// DefaultStandingsLimit is how many entries Standings returns when asked for none.
const DefaultStandingsLimit = 10

// Metrics receives orchestration events.
type Metrics interface {
	QuizStarted(policy domain.Policy)
	GenerationFailed()
	QuestionClosed(trigger string)
	StaleTransition()
	QuizFinished(policy domain.Policy)
}

const (
	TriggerAnswer  = "answer"
	TriggerTimeout = "timeout"
)

type nopMetrics struct{}

func (nopMetrics) QuizStarted(domain.Policy)  {}
func (nopMetrics) GenerationFailed()          {}
func (nopMetrics) QuestionClosed(string)      {}
func (nopMetrics) StaleTransition()           {}
func (nopMetrics) QuizFinished(domain.Policy) {}

// Config wires the orchestrator's collaborators.
type Config struct {
	Sessions      SessionRepository
	Generator     QuestionGenerator
	Notifier      Notifier
	Recorders     []ResultRecorder
	Standings     StandingsReader
	Metrics       Metrics
	Clock         Clock
	AnswerTimeout time.Duration
	MaxQuestions  int
	DefaultPolicy domain.Policy
}

// StartRequest asks for a new quiz in a channel. Policy is raw user input and
// falls back to the configured default when empty.
type StartRequest struct {
	ChannelID   string
	RequesterID string
	Topic       string
	Count       int
	Policy      string
}

// QuizService is the per-channel quiz state machine. Answers and deadlines both
// enter through it; each question is consumed at most once.
type QuizService struct {
	sessions      SessionRepository
	generator     QuestionGenerator
	notifier      Notifier
	recorders     []ResultRecorder
	standings     StandingsReader
	metrics       Metrics
	deadlines     *DeadlineScheduler
	maxQuestions  int
	defaultPolicy domain.Policy
	now           func() time.Time
	starts        singleflight.Group
}

func NewQuizService(c Config) *QuizService {
	s := &QuizService{
		sessions:      c.Sessions,
		generator:     c.Generator,
		notifier:      c.Notifier,
		recorders:     c.Recorders,
		standings:     c.Standings,
		metrics:       c.Metrics,
		maxQuestions:  c.MaxQuestions,
		defaultPolicy: c.DefaultPolicy,
		now:           time.Now,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.notifier == nil {
		s.notifier = Notifiers{}
	}
	if s.maxQuestions <= 0 {
		s.maxQuestions = DefaultMaxQuestions
	}
	if s.defaultPolicy == "" {
		s.defaultPolicy = domain.PolicyOpen
	}
	s.deadlines = NewDeadlineScheduler(c.Clock, c.AnswerTimeout, s.onDeadline)
	return s
}

// Start generates questions and creates the channel's session with its first
// deadline armed, then announces the first question. Answers are accepted only
// once that announcement is out. Failures are acknowledged to the requester
// once and leave no session behind.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (domain.SessionSnapshot, error) {
	session, err := s.start(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) {
			s.metrics.GenerationFailed()
		}
		log.Printf("quiz start failed channel=%s requester=%s: %v", req.ChannelID, req.RequesterID, err)
		s.acknowledge(ctx, req.ChannelID, req.RequesterID, startFailedText(err))
		return domain.SessionSnapshot{}, err
	}

	s.metrics.QuizStarted(session.Policy())
	log.Printf("quiz started channel=%s session=%s topic=%q questions=%d policy=%s",
		session.ChannelID(), session.ID(), session.Topic(), session.QuestionCount(), session.Policy())

	snapshot := session.Snapshot()
	s.announce(ctx, session.ChannelID(), introText(snapshot, s.deadlines.Timeout()))
	s.announce(ctx, session.ChannelID(), questionText(session.questions[0], 1, session.QuestionCount()))
	if err := session.present(); err != nil {
		// Stopped, or the first deadline already fired, while announcing.
		log.Printf("open first question channel=%s session=%s: %v", session.ChannelID(), session.ID(), err)
	}
	return session.Snapshot(), nil
}

func (s *QuizService) start(ctx context.Context, req StartRequest) (*Session, error) {
	policy, err := domain.ParsePolicy(req.Policy, s.defaultPolicy)
	if err != nil {
		return nil, err
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", domain.ErrInvalidRequest)
	}
	if req.Count < 1 || req.Count > s.maxQuestions {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidRequest, s.maxQuestions)
	}
	// Reject before paying for generation.
	if _, ok := s.sessions.Get(req.ChannelID); ok {
		return nil, domain.ErrSessionConflict
	}

	owner := ""
	if policy == domain.PolicyOwner {
		owner = req.RequesterID
	}

	created := false
	v, err, _ := s.starts.Do(req.ChannelID, func() (any, error) {
		created = true
		questions, err := s.generate(ctx, topic, req.Count, policy)
		if err != nil {
			return nil, err
		}
		return s.sessions.Create(req.ChannelID, SessionParams{
			Topic:     topic,
			Policy:    policy,
			OwnerID:   owner,
			Questions: questions,
			Schedule:  s.deadlines.schedule,
		})
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Another request for this channel won the race.
		return nil, domain.ErrSessionConflict
	}
	return v.(*Session), nil
}

func (s *QuizService) generate(ctx context.Context, topic string, count int, policy domain.Policy) ([]domain.Question, error) {
	questions, err := s.generator.Generate(ctx, topic, count, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions for %q", domain.ErrGenerationFailed, topic)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	for i := range questions {
		questions[i] = questions[i].ForPolicy(policy)
		if err := questions[i].Validate(policy); err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", domain.ErrGenerationFailed, i+1, err)
		}
	}
	return questions, nil
}

// SubmitAnswer evaluates a participant's message against the channel's current
// question. Incorrect verdicts never change state. A correct verdict consumes
// the question, announces the result and advances.
func (s *QuizService) SubmitAnswer(ctx context.Context, channelID, participantID, raw string) (domain.Verdict, error) {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return domain.Verdict{}, domain.ErrNoActiveSession
	}
	if !AcceptsAnswer(session.Policy(), raw) {
		return domain.Verdict{}, domain.ErrInvalidAnswer
	}

	verdict, err := session.submit(participantID, raw)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTransition) {
			s.metrics.StaleTransition()
		}
		return domain.Verdict{}, err
	}
	if !verdict.Correct {
		if session.Policy() == domain.PolicyOpen {
			s.acknowledge(ctx, channelID, participantID, wrongText(participantID))
		}
		return verdict, nil
	}

	s.metrics.QuestionClosed(TriggerAnswer)
	s.announce(ctx, channelID, correctText(session.Policy(), session.OwnerID(), participantID, verdict))
	if err := s.advance(ctx, session); err != nil {
		return verdict, err
	}
	return verdict, nil
}

// Timeout closes the question named by tag if it is still open. Tags from a
// replaced or ended session, or for an already consumed index, are stale.
func (s *QuizService) Timeout(ctx context.Context, tag Deadline) error {
	session, ok := s.sessions.Get(tag.ChannelID)
	if !ok || session.ID() != tag.SessionID {
		return domain.ErrNoActiveSession
	}
	q, err := session.expire(tag.Index)
	if err != nil {
		if errors.Is(err, domain.ErrStaleTransition) {
			s.metrics.StaleTransition()
		}
		return err
	}

	s.metrics.QuestionClosed(TriggerTimeout)
	s.announce(ctx, tag.ChannelID, timeoutText(q))
	return s.advance(ctx, session)
}

func (s *QuizService) onDeadline(tag Deadline) {
	if err := s.Timeout(context.Background(), tag); err != nil {
		log.Printf("dropped deadline channel=%s session=%s index=%d: %v", tag.ChannelID, tag.SessionID, tag.Index, err)
	}
}

// advance moves past the consumed question. The next deadline is armed inside
// the session's critical section; output happens afterwards.
func (s *QuizService) advance(ctx context.Context, session *Session) error {
	st, err := session.advance(s.deadlines.schedule)
	if err != nil {
		// Stopped while the closing announcement was in flight.
		if errors.Is(err, domain.ErrStaleTransition) {
			s.metrics.StaleTransition()
		}
		return err
	}
	if !st.finished {
		s.announce(ctx, session.ChannelID(), questionText(st.question, st.number, st.total))
		return nil
	}

	s.sessions.End(session.ChannelID(), session.ID())
	result := session.result(s.now())
	s.metrics.QuizFinished(result.Policy)
	log.Printf("quiz finished channel=%s session=%s", result.ChannelID, result.SessionID)
	s.announce(ctx, result.ChannelID, resultText(result))
	s.record(ctx, result)
	return nil
}

// Stop ends the channel's quiz early and announces the standings so far.
func (s *QuizService) Stop(ctx context.Context, channelID string) error {
	session, ok := s.sessions.Get(channelID)
	if !ok || !s.sessions.End(channelID, session.ID()) {
		return domain.ErrNoActiveSession
	}
	session.Close()
	snapshot := session.Snapshot()
	log.Printf("quiz stopped channel=%s session=%s index=%d", channelID, snapshot.SessionID, snapshot.CurrentIndex)
	s.announce(ctx, channelID, stoppedText(snapshot))
	return nil
}

// Snapshot returns the channel's session state, if any.
func (s *QuizService) Snapshot(channelID string) (domain.SessionSnapshot, bool) {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return domain.SessionSnapshot{}, false
	}
	return session.Snapshot(), true
}

// Standings returns the channel's all-time leaderboard across finished quizzes.
func (s *QuizService) Standings(ctx context.Context, channelID string, limit int) (domain.Leaderboard, error) {
	if s.standings == nil {
		return domain.Leaderboard{}, domain.ErrStandingsUnavailable
	}
	if limit <= 0 {
		limit = DefaultStandingsLimit
	}
	entries, err := s.standings.Top(ctx, channelID, limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{ChannelID: channelID, Entries: entries}, nil
}

func (s *QuizService) record(ctx context.Context, result domain.QuizResult) {
	for _, r := range s.recorders {
		if err := r.RecordResult(ctx, result); err != nil {
			log.Printf("record result session=%s: %v", result.SessionID, err)
		}
	}
}

func (s *QuizService) announce(ctx context.Context, channelID, text string) {
	if err := s.notifier.Announce(ctx, channelID, text); err != nil {
		log.Printf("announce channel=%s: %v", channelID, err)
	}
}

func (s *QuizService) acknowledge(ctx context.Context, channelID, participantID, text string) {
	if err := s.notifier.Acknowledge(ctx, channelID, participantID, text); err != nil {
		log.Printf("acknowledge channel=%s participant=%s: %v", channelID, participantID, err)
	}
}

// Notifiers fans output out to several chat surfaces.
type Notifiers []Notifier

func (n Notifiers) Announce(ctx context.Context, channelID, text string) error {
	var errs []error
	for _, notifier := range n {
		errs = append(errs, notifier.Announce(ctx, channelID, text))
	}
	return errors.Join(errs...)
}

func (n Notifiers) Acknowledge(ctx context.Context, channelID, participantID, text string) error {
	var errs []error
	for _, notifier := range n {
		errs = append(errs, notifier.Acknowledge(ctx, channelID, participantID, text))
	}
	return errors.Join(errs...)
}
