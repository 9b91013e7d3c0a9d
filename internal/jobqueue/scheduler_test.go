package jobqueue

import "testing"

func TestSchedulerRejectsInvalidSpec(t *testing.T) {
	q := newFakeQueue()
	s := NewScheduler(q, nil)
	err := s.Register(ScheduledJob{Spec: "not a cron spec", Task: "warm_cache"})
	if err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestSchedulerRegistersValidSpec(t *testing.T) {
	q := newFakeQueue()
	s := NewScheduler(q, nil)
	err := s.Register(ScheduledJob{Spec: "@every 1h", Task: "cleanup_expired"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.Start()
	s.Stop()
}
