package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"ai-loanengine-be/pkg/store"
)

func TestCreateAndGet(t *testing.T) {
	repo := NewSessionRepository(time.Hour, 10*time.Minute)
	session := repo.Create(time.Now())

	if session.ID == "" {
		t.Fatal("session id must not be empty")
	}
	if session.Phase != store.PhaseGreeting {
		t.Errorf("Phase = %s, want %s", session.Phase, store.PhaseGreeting)
	}

	got, found := repo.Get(session.ID)
	if !found || got.ID != session.ID {
		t.Errorf("Get(%s) = %v, %v", session.ID, got, found)
	}
}

func TestEnsure(t *testing.T) {
	repo := NewSessionRepository(time.Hour, 10*time.Minute)

	fresh := repo.Ensure("", time.Now())
	if fresh.ID == "" {
		t.Fatal("Ensure with empty id must create a session")
	}

	same := repo.Ensure(fresh.ID, time.Now())
	if same.ID != fresh.ID {
		t.Errorf("Ensure(%s) returned %s, want same session", fresh.ID, same.ID)
	}

	replaced := repo.Ensure("expired-id", time.Now())
	if replaced.ID == "expired-id" || replaced.ID == "" {
		t.Errorf("Ensure with dead id must create a fresh session, got %q", replaced.ID)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	repo := NewSessionRepository(time.Hour, 10*time.Minute)
	err := repo.Update("missing", time.Now(), func(s *store.Session) error { return nil })
	if err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestUpdateSerializesConcurrentMutations(t *testing.T) {
	repo := NewSessionRepository(time.Hour, 10*time.Minute)
	session := repo.Create(time.Now())

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Update(session.ID, time.Now(), func(s *store.Session) error {
				s.Turns = append(s.Turns, store.Turn{
					ID:      fmt.Sprintf("turn-%d", i),
					Role:    store.RoleUser,
					Content: "hello",
				})
				return nil
			})
			if err != nil {
				t.Errorf("update %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := repo.Get(session.ID)
	if len(got.Turns) != writers {
		t.Errorf("Turns = %d, want %d (lost writes mean mutations interleaved)", len(got.Turns), writers)
	}
}

func TestIdleSessionExpires(t *testing.T) {
	repo := NewSessionRepository(50*time.Millisecond, 10*time.Millisecond)
	session := repo.Create(time.Now())

	time.Sleep(120 * time.Millisecond)

	if _, found := repo.Get(session.ID); found {
		t.Error("idle session should have expired")
	}
}

func TestUpdateRefreshesTTL(t *testing.T) {
	repo := NewSessionRepository(80*time.Millisecond, 10*time.Millisecond)
	session := repo.Create(time.Now())

	for i := 0; i < 4; i++ {
		time.Sleep(40 * time.Millisecond)
		if err := repo.Update(session.ID, time.Now(), func(s *store.Session) error { return nil }); err != nil {
			t.Fatalf("update during activity window: %v", err)
		}
	}

	if _, found := repo.Get(session.ID); !found {
		t.Error("active session must not expire")
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	repo := NewSessionRepository(time.Hour, 10*time.Minute)
	session := repo.Create(time.Now())

	repo.Delete(session.ID)

	if _, found := repo.Get(session.ID); found {
		t.Error("deleted session still present")
	}
}
