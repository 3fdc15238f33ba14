package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) Sweep(time.Time) int {
	c.calls.Add(1)
	return 0
}

func TestHistoryIsCopied(t *testing.T) {
	s := New("id", time.Now())
	s.Append(RoleHuman, "capital of France")
	h := s.History()
	h[0].Content = "mutated"
	if s.History()[0].Content != "capital of France" {
		t.Fatal("History must return a copy")
	}
	s.ResetHistory()
	if len(s.History()) != 0 {
		t.Fatal("ResetHistory did not empty history")
	}
	if info := s.Info(); info.MessageCount != 0 || info.HasIndex || info.ID != "id" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestLockContextGivesUpAtDeadline(t *testing.T) {
	s := New("id", time.Now())
	s.Lock()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.LockContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if s.TryLock() {
		t.Fatal("lock must still belong to the first holder")
	}
	s.Unlock()
	if err := s.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext after release: %v", err)
	}
	s.Unlock()
}

func TestNewJanitorRejectsBadSchedule(t *testing.T) {
	if _, err := NewJanitor(&countingSweeper{}, "not a cron", nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestJanitorRunsOnSchedule(t *testing.T) {
	sw := &countingSweeper{}
	// seven fields: seconds first, fires every second
	j, err := NewJanitor(sw, "* * * * * * *", nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.Start()
	deadline := time.Now().Add(3 * time.Second)
	for sw.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	j.Stop()
	j.Stop()
	if sw.calls.Load() == 0 {
		t.Fatal("janitor never swept")
	}
}

func TestJanitorStopWithoutStart(t *testing.T) {
	j, err := NewJanitor(&countingSweeper{}, "* * * * *", nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.Stop()
}
