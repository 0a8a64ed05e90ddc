package fs

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidWrites(t *testing.T) {
	var processed []struct {
		path      string
		eventType EventType
	}
	var mu sync.Mutex

	d := newDebouncer(50*time.Millisecond, func(path string, eventType EventType) {
		mu.Lock()
		processed = append(processed, struct {
			path      string
			eventType EventType
		}{path, eventType})
		mu.Unlock()
	})
	defer d.Stop()

	// Queue multiple rapid writes to the same file
	for i := 0; i < 5; i++ {
		d.Queue("test.txt", EventWrite)
		time.Sleep(10 * time.Millisecond)
	}

	// Wait for debounce to fire
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(processed) != 1 {
		t.Errorf("expected 1 processed event, got %d", len(processed))
	}

	if len(processed) > 0 && processed[0].path != "test.txt" {
		t.Errorf("expected path 'test.txt', got '%s'", processed[0].path)
	}

	if len(processed) > 0 && processed[0].eventType != EventWrite {
		t.Errorf("expected EventWrite, got %v", processed[0].eventType)
	}
}

func TestDebouncer_DeleteIsImmediate(t *testing.T) {
	var processed []EventType
	var mu sync.Mutex
	done := make(chan bool, 1)

	d := newDebouncer(100*time.Millisecond, func(path string, eventType EventType) {
		mu.Lock()
		processed = append(processed, eventType)
		mu.Unlock()
		if eventType == EventDelete {
			done <- true
		}
	})
	defer d.Stop()

	d.Queue("test.txt", EventDelete)

	select {
	case <-done:
		// Delete fired well before the debounce delay
	case <-time.After(50 * time.Millisecond):
		t.Fatal("delete event was not processed immediately")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 1 || processed[0] != EventDelete {
		t.Errorf("expected single delete event, got %v", processed)
	}
}

func TestDebouncer_CreateUpgradesWrite(t *testing.T) {
	var got EventType
	var mu sync.Mutex

	d := newDebouncer(50*time.Millisecond, func(path string, eventType EventType) {
		mu.Lock()
		got = eventType
		mu.Unlock()
	})
	defer d.Stop()

	d.Queue("test.txt", EventWrite)
	d.Queue("test.txt", EventCreate)

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if got != EventCreate {
		t.Errorf("expected create to take precedence, got %v", got)
	}
}

func TestDebouncer_StopIgnoresNewEvents(t *testing.T) {
	fired := false
	d := newDebouncer(10*time.Millisecond, func(string, EventType) {
		fired = true
	})

	d.Stop()
	if d.Queue("test.txt", EventWrite) {
		t.Error("expected Queue to refuse events after Stop")
	}

	time.Sleep(30 * time.Millisecond)
	if fired {
		t.Error("no events should fire after Stop")
	}
}
