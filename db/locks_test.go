package db

import "testing"

func TestFileLockAcquireRelease(t *testing.T) {
	openTestDB(t)

	acquired, err := TryAcquireFileLock("inbox/a.txt", "worker-1")
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	// Second acquire by another owner is refused while the lock is held
	acquired, err = TryAcquireFileLock("inbox/a.txt", "worker-2")
	if err != nil {
		t.Fatal(err)
	}
	if acquired {
		t.Error("expected second acquire to be refused")
	}

	// A different path is independent
	acquired, err = TryAcquireFileLock("inbox/b.txt", "worker-2")
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Error("expected acquire on different path to succeed")
	}

	if err := ReleaseFileLock("inbox/a.txt"); err != nil {
		t.Fatal(err)
	}

	acquired, err = TryAcquireFileLock("inbox/a.txt", "worker-2")
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Error("expected acquire after release to succeed")
	}
}

func TestReleaseFileLockNotHeld(t *testing.T) {
	openTestDB(t)

	if err := ReleaseFileLock("inbox/never-locked.txt"); err != nil {
		t.Errorf("releasing an unheld lock should be a no-op, got %v", err)
	}
}

func TestReleaseStaleFileLocks(t *testing.T) {
	openTestDB(t)

	if _, err := TryAcquireFileLock("inbox/a.txt", "dead-worker"); err != nil {
		t.Fatal(err)
	}

	n, err := ReleaseStaleFileLocks(NowMs() - 60_000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("fresh lock should not be reclaimed, got %d", n)
	}

	n, err = ReleaseStaleFileLocks(NowMs() + 60_000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 reclaimed lock, got %d", n)
	}

	acquired, _ := TryAcquireFileLock("inbox/a.txt", "worker-2")
	if !acquired {
		t.Error("expected acquire after stale reclaim to succeed")
	}
}
