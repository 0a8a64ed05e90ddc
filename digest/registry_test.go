package digest

import "testing"

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(&fakeDigester{name: "tags"}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := reg.Register(&fakeDigester{name: "tags"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"one", "two", "three"}
	for _, name := range names {
		if err := reg.Register(&fakeDigester{name: name}); err != nil {
			t.Fatal(err)
		}
	}

	all := reg.All()
	if len(all) != len(names) {
		t.Fatalf("expected %d digesters, got %d", len(names), len(all))
	}
	for i, name := range names {
		if all[i].Name() != name {
			t.Errorf("position %d: expected %s, got %s", i, name, all[i].Name())
		}
	}
}

func TestRegistryAllOutputNames(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "url-crawl", outputs: []string{"url-crawl-content", "url-crawl-screenshot"}})
	reg.Register(&fakeDigester{name: "tags"})

	names := reg.AllOutputNames()
	want := []string{"url-crawl-content", "url-crawl-screenshot", "tags"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestRegistryReset(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeDigester{name: "tags"})
	reg.Reset()

	if len(reg.All()) != 0 {
		t.Error("expected empty registry after reset")
	}
	if reg.Get("tags") != nil {
		t.Error("expected lookup to miss after reset")
	}
	if err := reg.Register(&fakeDigester{name: "tags"}); err != nil {
		t.Errorf("expected re-registration after reset to succeed: %v", err)
	}
}
