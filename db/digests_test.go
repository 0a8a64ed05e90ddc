package db

import (
	"testing"
)

func TestUpsertDigestIfMissing(t *testing.T) {
	openTestDB(t)
	testFile(t, "inbox/a.txt", 1000)

	inserted, err := UpsertDigestIfMissing("inbox/a.txt", "tags")
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if !inserted {
		t.Error("expected first upsert to insert")
	}

	inserted, err = UpsertDigestIfMissing("inbox/a.txt", "tags")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if inserted {
		t.Error("expected second upsert to be a no-op")
	}

	row, err := GetDigestByFileAndDigester("inbox/a.txt", "tags")
	if err != nil || row == nil {
		t.Fatalf("expected digest row, got %v, %v", row, err)
	}
	if row.Status != DigestStatusTodo {
		t.Errorf("expected todo, got %s", row.Status)
	}
	if row.Attempts != 0 {
		t.Errorf("expected 0 attempts, got %d", row.Attempts)
	}
}

func TestFilesNeedingDigests_OrderingAndFilters(t *testing.T) {
	openTestDB(t)

	// Three files with increasing created_at; no last_scanned_at
	testFile(t, "inbox/newest.txt", 3000)
	testFile(t, "inbox/oldest.txt", 1000)
	testFile(t, "inbox/middle.txt", 2000)
	// Excluded prefix
	testFile(t, "node_modules/skip.txt", 500)
	// Folder
	if _, err := UpsertFile(&FileRecord{Path: "inbox", Name: "inbox", IsFolder: true, ModifiedAt: 1, CreatedAt: 1}); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"inbox/newest.txt", "inbox/oldest.txt", "inbox/middle.txt", "node_modules/skip.txt", "inbox"} {
		if _, err := UpsertDigestIfMissing(path, "tags"); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := FilesNeedingDigests([]string{"tags"}, []string{"node_modules/"}, 4, 10)
	if err != nil {
		t.Fatalf("selection failed: %v", err)
	}

	want := []string{"inbox/oldest.txt", "inbox/middle.txt", "inbox/newest.txt"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %v", len(want), paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("position %d: expected %s, got %s", i, p, paths[i])
		}
	}
}

func TestFilesNeedingDigests_TerminalRowsExcluded(t *testing.T) {
	openTestDB(t)
	testFile(t, "inbox/done.txt", 1000)
	testFile(t, "inbox/deadend.txt", 1000)
	testFile(t, "inbox/retryable.txt", 1000)

	seed := func(path, status string, attempts int) {
		if _, err := UpsertDigestIfMissing(path, "tags"); err != nil {
			t.Fatal(err)
		}
		row, _ := GetDigestByFileAndDigester(path, "tags")
		row.Status = status
		row.Attempts = attempts
		if err := UpdateDigest(row); err != nil {
			t.Fatal(err)
		}
	}

	seed("inbox/done.txt", DigestStatusCompleted, 0)
	seed("inbox/deadend.txt", DigestStatusFailed, 4)
	seed("inbox/retryable.txt", DigestStatusFailed, 2)

	paths, err := FilesNeedingDigests([]string{"tags"}, nil, 4, 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(paths) != 1 || paths[0] != "inbox/retryable.txt" {
		t.Errorf("expected only retryable file, got %v", paths)
	}
}

func TestFilesNeedingDigests_UnregisteredDigesterIgnored(t *testing.T) {
	openTestDB(t)
	testFile(t, "inbox/a.txt", 1000)

	if _, err := UpsertDigestIfMissing("inbox/a.txt", "old-digester"); err != nil {
		t.Fatal(err)
	}

	paths, err := FilesNeedingDigests([]string{"tags"}, nil, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no files, got %v", paths)
	}
}

func TestResetStaleInProgressDigests(t *testing.T) {
	openTestDB(t)
	testFile(t, "inbox/a.txt", 1000)

	if _, err := UpsertDigestIfMissing("inbox/a.txt", "tags"); err != nil {
		t.Fatal(err)
	}
	row, _ := GetDigestByFileAndDigester("inbox/a.txt", "tags")
	row.Status = DigestStatusInProgress
	errMsg := "stuck"
	row.Error = &errMsg
	if err := UpdateDigest(row); err != nil {
		t.Fatal(err)
	}

	// Cutoff in the past: row is fresh, nothing reclaimed
	n, err := ResetStaleInProgressDigests(NowMs() - 60_000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no stale rows yet, got %d", n)
	}

	// Cutoff in the future: row is older than it, reclaimed
	n, err = ResetStaleInProgressDigests(NowMs() + 60_000)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed row, got %d", n)
	}

	row, _ = GetDigestByFileAndDigester("inbox/a.txt", "tags")
	if row.Status != DigestStatusTodo {
		t.Errorf("expected todo after sweep, got %s", row.Status)
	}
	if row.Error != nil {
		t.Errorf("expected error cleared, got %v", *row.Error)
	}
}

func TestDeleteFileWithCascade(t *testing.T) {
	openTestDB(t)
	testFile(t, "inbox/a.txt", 1000)

	if _, err := UpsertDigestIfMissing("inbox/a.txt", "tags"); err != nil {
		t.Fatal(err)
	}
	SqlarStore(GeneratePathHash("inbox/a.txt")+"/tags/blob.bin", []byte("data"), 0)

	if err := DeleteFileWithCascade("inbox/a.txt"); err != nil {
		t.Fatal(err)
	}

	file, _ := GetFileByPath("inbox/a.txt")
	if file != nil {
		t.Error("expected file record deleted")
	}
	digests, _ := ListDigestsForFile("inbox/a.txt")
	if len(digests) != 0 {
		t.Errorf("expected digests deleted, got %d", len(digests))
	}
	if blobs := SqlarList(GeneratePathHash("inbox/a.txt") + "/"); len(blobs) != 0 {
		t.Errorf("expected blobs deleted, got %d", len(blobs))
	}
}
