package docstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bihub/searchapi/internal/domain/doc"
)

func TestNewDedupAndOrder(t *testing.T) {
	docs := []doc.Document{
		{ID: "a", Payload: doc.Report{Title: "first"}},
		{ID: "b", Payload: doc.Report{Title: "second"}},
		{ID: "a", Payload: doc.Report{Title: "replacement"}},
		{ID: "", Payload: doc.Report{Title: "dropped"}},
	}

	s := New(docs)
	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2", s.Count())
	}

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("a missing")
	}
	if got.Payload.(doc.Report).Title != "replacement" {
		t.Errorf("later duplicate must win, got %q", got.Payload.(doc.Report).Title)
	}

	all := s.All()
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Errorf("All() order = %v, want first-seen order", all)
	}
}

func TestGetMissing(t *testing.T) {
	s := New(nil)
	if _, ok := s.Get("nope"); ok {
		t.Error("Get on empty store returned ok")
	}
}

func TestLoadJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.jsonl")
	content := `{"docId":"rpt-1","type":"report","title":"Annual giving"}

{"docId":"gls-1","type":"glossary","term":"WPU","definition":"Wealth Processing Unit"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2 (blank lines skipped)", s.Count())
	}

	d, ok := s.Get("gls-1")
	if !ok {
		t.Fatal("gls-1 missing")
	}
	if d.Kind() != doc.KindGlossary {
		t.Errorf("kind = %q, want glossary", d.Kind())
	}
}

func TestLoadReportsLineNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.jsonl")
	content := `{"docId":"ok-1","type":"report","title":"fine"}
{not json}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got := err.Error(); !strings.Contains(got, "line 2") {
		t.Errorf("error %q should name the failing line", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
