package digest

import (
	"reflect"
	"testing"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
)

func TestEnsurePlaceholdersCreatesAllOutputs(t *testing.T) {
	setupDB(t)
	addFile(t, &db.FileRecord{Path: "inbox/a.txt"})

	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "url-crawl", outputs: []string{"url-crawl-content", "url-crawl-screenshot"}})
	reg.Register(&fakeDigester{name: "tags"})

	added, orphaned, err := EnsurePlaceholders(reg, "inbox/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if added != 3 || orphaned != 0 {
		t.Errorf("expected 3 added, 0 orphaned; got %d, %d", added, orphaned)
	}

	rows, _ := db.ListDigestsForFile("inbox/a.txt")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Status != db.DigestStatusTodo {
			t.Errorf("%s: expected todo, got %s", row.Digester, row.Status)
		}
	}
}

func TestEnsurePlaceholdersIsIdempotent(t *testing.T) {
	setupDB(t)
	addFile(t, &db.FileRecord{Path: "inbox/a.txt"})

	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "tags"})

	if _, _, err := EnsurePlaceholders(reg, "inbox/a.txt"); err != nil {
		t.Fatal(err)
	}
	first, _ := db.ListDigestsForFile("inbox/a.txt")

	added, orphaned, err := EnsurePlaceholders(reg, "inbox/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 || orphaned != 0 {
		t.Errorf("second call must be a no-op, got %d added, %d orphaned", added, orphaned)
	}

	second, _ := db.ListDigestsForFile("inbox/a.txt")
	if !reflect.DeepEqual(first, second) {
		t.Error("rows changed on idempotent call")
	}
}

func TestEnsurePlaceholdersQuarantinesUnregistered(t *testing.T) {
	setupDB(t)
	addFile(t, &db.FileRecord{Path: "inbox/a.txt"})

	seed := func(name, status string) {
		if _, err := db.UpsertDigestIfMissing("inbox/a.txt", name); err != nil {
			t.Fatal(err)
		}
		row, _ := db.GetDigestByFileAndDigester("inbox/a.txt", name)
		row.Status = status
		if err := db.UpdateDigest(row); err != nil {
			t.Fatal(err)
		}
	}

	seed("gone-todo", db.DigestStatusTodo)
	seed("gone-failed", db.DigestStatusFailed)
	seed("gone-completed", db.DigestStatusCompleted)

	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "tags"})

	_, orphaned, err := EnsurePlaceholders(reg, "inbox/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if orphaned != 2 {
		t.Errorf("expected 2 orphaned rows, got %d", orphaned)
	}

	for _, name := range []string{"gone-todo", "gone-failed"} {
		row := mustRow(t, "inbox/a.txt", name)
		if row.Status != db.DigestStatusSkipped {
			t.Errorf("%s: expected skipped, got %s", name, row.Status)
		}
		if row.Error == nil || *row.Error != "Digester no longer registered" {
			t.Errorf("%s: unexpected reason %v", name, row.Error)
		}
	}

	// Terminal rows keep their history
	if row := mustRow(t, "inbox/a.txt", "gone-completed"); row.Status != db.DigestStatusCompleted {
		t.Errorf("completed orphan must be untouched, got %s", row.Status)
	}

	// The quarantined gone-* rows no longer qualify the file for selection;
	// only the registered digester's placeholder can
	paths, err := SelectFiles(reg, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		if p == "inbox/a.txt" {
			// tags placeholder was added above, so the file is selectable
			// for tags; verify gone-* rows alone don't qualify it
			rows, _ := db.ListDigestsForFile("inbox/a.txt")
			for _, row := range rows {
				if row.Digester != "tags" && (row.Status == db.DigestStatusTodo || row.Status == db.DigestStatusFailed) {
					t.Errorf("non-terminal orphan row remains: %+v", row)
				}
			}
		}
	}
}

func TestEnsureAllFiles(t *testing.T) {
	setupDB(t)
	addFile(t, &db.FileRecord{Path: "inbox/a.txt"})
	addFile(t, &db.FileRecord{Path: "inbox/b.txt"})
	addFile(t, &db.FileRecord{Path: "inbox", IsFolder: true})

	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "tags"})

	if err := EnsureAllFiles(reg); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"inbox/a.txt", "inbox/b.txt"} {
		if row, _ := db.GetDigestByFileAndDigester(path, "tags"); row == nil {
			t.Errorf("%s: expected placeholder", path)
		}
	}
	if row, _ := db.GetDigestByFileAndDigester("inbox", "tags"); row != nil {
		t.Error("folders must not get digest rows")
	}
}
