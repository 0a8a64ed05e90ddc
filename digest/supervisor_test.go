package digest

import (
	"testing"
	"time"
)

func TestFailureBackoffDoublesUpToCap(t *testing.T) {
	reg := NewRegistry()
	s := NewSupervisor(reg, NewCoordinator(reg, nil))
	defer s.cancel()

	// Defaults: base 5s, cap 60s
	cases := []struct {
		n    int
		want time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
	}

	for _, tc := range cases {
		if got := s.failureBackoff(tc.n); got != tc.want {
			t.Errorf("failureBackoff(%d): expected %v, got %v", tc.n, tc.want, got)
		}
	}
}

func TestSupervisorSingleton(t *testing.T) {
	setupDB(t)

	reg := NewRegistry()
	s1 := NewSupervisor(reg, NewCoordinator(reg, nil))
	if err := s1.Start(); err != nil {
		t.Fatalf("first supervisor failed to start: %v", err)
	}

	s2 := NewSupervisor(reg, NewCoordinator(reg, nil))
	if err := s2.Start(); err == nil {
		t.Error("second supervisor must be rejected")
		s2.Stop()
	}

	s1.Stop()

	// After stopping, a new supervisor may start
	s3 := NewSupervisor(reg, NewCoordinator(reg, nil))
	if err := s3.Start(); err != nil {
		t.Fatalf("supervisor after stop failed to start: %v", err)
	}
	s3.Stop()
}

func TestSupervisorSleepInterruptedByStop(t *testing.T) {
	reg := NewRegistry()
	s := NewSupervisor(reg, NewCoordinator(reg, nil))

	done := make(chan bool, 1)
	go func() {
		done <- s.sleep(10 * time.Second)
	}()

	close(s.stopChan)

	select {
	case ok := <-done:
		if ok {
			t.Error("sleep must report interruption")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sleep did not return after stop")
	}
}
