package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func sampleParams() app.SessionParams {
	return app.SessionParams{
		Topic:     "math",
		Policy:    domain.PolicyOwner,
		OwnerID:   "owner",
		Questions: []domain.Question{{Prompt: "What is 2 + 2?", Answer: "4"}},
	}
}

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	session, err := store.Create("chan-1", sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := mr.Get("trivia:session:chan-1")
	if err != nil || got != store.InstanceID()+"|"+session.ID() {
		t.Fatalf("expected marker with instance and session id, got %q %v", got, err)
	}
	if ttl := mr.TTL("trivia:session:chan-1"); ttl != time.Minute {
		t.Fatalf("expected marker ttl, got %v", ttl)
	}

	if !store.End("chan-1", session.ID()) {
		t.Fatalf("expected session to end")
	}
	if mr.Exists("trivia:session:chan-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if session.Snapshot().Active {
		t.Fatalf("expected session closed")
	}
}

func TestSessionStoreRejectsForeignMarker(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("trivia:session:chan-1", "other-instance"); err != nil {
		t.Fatalf("seed marker: %v", err)
	}
	store := NewSessionStore(newClient(mr), time.Minute, WithInstanceID("pod-a"))

	var timers []*time.Timer
	params := sampleParams()
	params.Schedule = func(app.Deadline) app.Timer {
		timer := time.NewTimer(time.Hour)
		timers = append(timers, timer)
		return timer
	}
	if _, err := store.Create("chan-1", params); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(timers) != 1 || timers[0].Stop() {
		t.Fatalf("expected rejected session to be disarmed")
	}
	if got, _ := mr.Get("trivia:session:chan-1"); got != "other-instance" {
		t.Fatalf("foreign marker must survive, got %q", got)
	}
}

func TestSessionStoreTakesOverOwnMarkerAfterRestart(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := newClient(mr)

	before := NewSessionStore(client, 2*time.Hour, WithInstanceID("pod-a"))
	if _, err := before.Create("chan-1", sampleParams()); err != nil {
		t.Fatalf("create before restart: %v", err)
	}

	after := NewSessionStore(client, 2*time.Hour, WithInstanceID("pod-a"))
	if _, ok := after.Get("chan-1"); ok {
		t.Fatalf("restarted store must start empty")
	}
	session, err := after.Create("chan-1", sampleParams())
	if err != nil {
		t.Fatalf("expected create after restart, got %v", err)
	}
	if got, _ := mr.Get("trivia:session:chan-1"); got != "pod-a|"+session.ID() {
		t.Fatalf("expected marker taken over, got %q", got)
	}

	other := NewSessionStore(client, 2*time.Hour, WithInstanceID("pod-b"))
	if _, err := other.Create("chan-1", sampleParams()); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected conflict from another instance, got %v", err)
	}
}

func TestSessionStoreReleaseStale(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := newClient(mr)

	for key, value := range map[string]string{
		"trivia:session:old-1": "pod-a|s1",
		"trivia:session:old-2": "pod-a|s2",
		"trivia:session:peer":  "pod-b|s3",
	} {
		if err := mr.Set(key, value); err != nil {
			t.Fatalf("seed marker: %v", err)
		}
	}

	store := NewSessionStore(client, time.Minute, WithInstanceID("pod-a"))
	live, err := store.Create("live", sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	released, err := store.ReleaseStale(context.Background())
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released != 2 {
		t.Fatalf("expected 2 stale markers released, got %d", released)
	}
	if mr.Exists("trivia:session:old-1") || mr.Exists("trivia:session:old-2") {
		t.Fatalf("expected own stale markers removed")
	}
	if !mr.Exists("trivia:session:peer") {
		t.Fatalf("peer marker must survive")
	}
	if got, _ := mr.Get("trivia:session:live"); got != "pod-a|"+live.ID() {
		t.Fatalf("live marker must survive, got %q", got)
	}
}

func TestSessionStoreSurvivesRedisOutage(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	store := NewSessionStore(client, time.Minute)
	session, err := store.Create("chan-1", sampleParams())
	if err != nil {
		t.Fatalf("expected local session despite outage, got %v", err)
	}
	store.End("chan-1", session.ID())
	if _, ok := store.Get("chan-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}
