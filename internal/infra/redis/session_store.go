package redis

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "trivia:session:"

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions and their deadlines live in a local map; they are process-bound.
//   - Redis holds a liveness marker per channel, "<instance>|<session id>", so
//     that other instances can see which channels are busy.
//   - A marker left by another instance makes Create fail with a conflict.
//   - A marker left by this instance with no local session is stale (the
//     process restarted) and is taken over.
//
// Instance ids must be unique among live processes sharing a Redis.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithInstanceID names the process in channel markers. Defaults to the hostname.
func WithInstanceID(id string) Option {
	return func(s *SessionStore) {
		if id != "" {
			s.instance = id
		}
	}
}

func NewSessionStore(client *redis.Client, ttl time.Duration, opts ...Option) *SessionStore {
	s := &SessionStore{
		client:   client,
		ttl:      ttl,
		instance: defaultInstanceID(),
		sessions: make(map[string]*app.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultInstanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "trivia"
}

// InstanceID returns the name this store writes into channel markers.
func (s *SessionStore) InstanceID() string {
	return s.instance
}

func (s *SessionStore) Create(channelID string, params app.SessionParams) (*app.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[channelID]; ok {
		return nil, domain.ErrSessionConflict
	}
	session := app.NewSession(channelID, params)

	ctx := context.Background()
	claimed, err := claimMarker.Run(ctx, s.client, []string{s.key(channelID)},
		s.marker(session.ID()), s.ownerPrefix(), s.ttl.Milliseconds()).Int()
	switch {
	case err != nil:
		// best-effort: Redis outages must not block local play
		log.Printf("redis liveness marker channel=%s: %v", channelID, err)
	case claimed == 0:
		session.Close()
		return nil, domain.ErrSessionConflict
	}
	s.sessions[channelID] = session
	return session, nil
}

func (s *SessionStore) Get(channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[channelID]
	return session, ok
}

// End removes the channel's session if it is still sessionID, clears its
// marker and closes it.
func (s *SessionStore) End(channelID, sessionID string) bool {
	s.mu.Lock()
	session, ok := s.sessions[channelID]
	if !ok || session.ID() != sessionID {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, channelID)
	s.clearMarker(channelID, sessionID)
	s.mu.Unlock()
	session.Close()
	return true
}

// ReleaseStale deletes markers this instance wrote that have no local session,
// typically left behind by a previous run. It returns how many were removed.
func (s *SessionStore) ReleaseStale(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := s.sessions[key[len(sessionKeyPrefix):]]; ok {
			continue
		}
		n, err := releaseIfOwner.Run(ctx, s.client, []string{key}, s.ownerPrefix()).Int()
		if err != nil {
			return released, err
		}
		released += n
	}
	return released, iter.Err()
}

// clearMarker deletes the marker only while it still names sessionID.
func (s *SessionStore) clearMarker(channelID, sessionID string) {
	ctx := context.Background()
	if err := clearIfOwned.Run(ctx, s.client, []string{s.key(channelID)}, s.marker(sessionID)).Err(); err != nil && err != redis.Nil {
		log.Printf("redis clear marker channel=%s: %v", channelID, err)
	}
}

// claimMarker sets KEYS[1] to ARGV[1] unless it holds a marker whose value
// does not start with ARGV[2]. ARGV[3] is the TTL in milliseconds, 0 for none.
var claimMarker = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and string.sub(current, 1, string.len(ARGV[2])) ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

var clearIfOwned = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var releaseIfOwner = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current and string.sub(current, 1, string.len(ARGV[1])) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *SessionStore) ownerPrefix() string {
	return s.instance + "|"
}

func (s *SessionStore) marker(sessionID string) string {
	return s.ownerPrefix() + sessionID
}

func (s *SessionStore) key(channelID string) string {
	return sessionKeyPrefix + channelID
}
