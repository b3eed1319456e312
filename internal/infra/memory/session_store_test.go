package memory

import (
	"errors"
	"testing"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
)

func sampleParams() app.SessionParams {
	return app.SessionParams{
		Topic:  "math",
		Policy: domain.PolicyOpen,
		Questions: []domain.Question{{
			Prompt:  "What is 2 + 2?",
			Options: map[string]string{"A": "3", "B": "4", "C": "5", "D": "22"},
			Correct: "B",
		}},
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session, err := store.Create("chan-1", sampleParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got, ok := store.Get("chan-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}
	if _, err := store.Create("chan-1", sampleParams()); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	if !store.End("chan-1", session.ID()) {
		t.Fatalf("expected session to end")
	}
	if _, ok := store.Get("chan-1"); ok {
		t.Fatalf("expected session removed")
	}
	if session.Snapshot().Active {
		t.Fatalf("expected ended session to be inactive")
	}
	if store.End("chan-1", session.ID()) {
		t.Fatalf("expected second end to be a no-op")
	}

	if _, err := store.Create("chan-1", sampleParams()); err != nil {
		t.Fatalf("expected create after end, got %v", err)
	}
}

func TestSessionStoreEndChecksIdentity(t *testing.T) {
	store := NewSessionStore()

	old, _ := store.Create("chan-1", sampleParams())
	store.End("chan-1", old.ID())
	current, _ := store.Create("chan-1", sampleParams())

	if store.End("chan-1", old.ID()) {
		t.Fatalf("expected stale session id to be ignored")
	}
	if _, ok := store.Get("chan-1"); !ok {
		t.Fatalf("expected current session to survive")
	}
	if !store.End("chan-1", current.ID()) {
		t.Fatalf("expected current session to end")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestSessionStoreCreateArmsFirstDeadline(t *testing.T) {
	store := NewSessionStore()
	var tags []app.Deadline
	params := sampleParams()
	params.Schedule = func(tag app.Deadline) app.Timer {
		tags = append(tags, tag)
		return time.NewTimer(time.Hour)
	}

	session, err := store.Create("chan-1", params)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !session.Armed() {
		t.Fatalf("expected first deadline armed on create")
	}
	if len(tags) != 1 || tags[0] != (app.Deadline{ChannelID: "chan-1", SessionID: session.ID(), Index: 0}) {
		t.Fatalf("unexpected deadline tags %+v", tags)
	}
	store.End("chan-1", session.ID())
	if session.Armed() {
		t.Fatalf("expected end to disarm")
	}
}
