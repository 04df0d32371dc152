package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func course(id, code, title string) Document {
	return Document{
		ID:     id,
		Domain: DomainCourse,
		Title:  title,
		Fields: map[string]string{FieldCode: code},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		docs    []Document
		wantErr string
	}{
		{"valid", []Document{course("c1", "EECS 700", "Special Topics")}, ""},
		{"missing id", []Document{{Domain: DomainCourse, Title: "x"}}, "#0: id is required"},
		{"unknown domain", []Document{{ID: "x", Domain: "weather", Title: "x"}}, "unknown domain"},
		{"bad code", []Document{course("c1", "eecs700", "x")}, "course code"},
		{"duplicate", []Document{course("c1", "EECS 700", "a"), course("c1", "EECS 701", "b")}, "duplicate id"},
		{"faculty name", []Document{{ID: "f1", Domain: DomainFaculty, Title: "Prof"}}, "faculty name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.docs)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("courses.json", `[{"id":"eecs-700","domain":"course","title":"Special Topics","fields":{"code":"EECS 700"}}]`)
	write("dining.json", `[{"id":"mrkt","domain":"dining","title":"The Market","fields":{"building":"Kansas Union"}}]`)
	write("notes.txt", "ignored")

	docs, err := FileLoader{Dir: dir}.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "eecs-700" || docs[1].Domain != DomainDining {
		t.Errorf("unexpected order or content: %+v", docs)
	}

	write("broken.json", `{"not":"an array"}`)
	if _, err := (FileLoader{Dir: dir}).Load(context.Background()); err == nil {
		t.Error("expected parse error for broken.json")
	}
	if _, err := (FileLoader{Dir: t.TempDir()}).Load(context.Background()); err == nil {
		t.Error("expected error for empty directory")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := course("c1", "EECS 700", "Special Topics")
	orig.Keywords = []string{"robotics"}
	cp := orig.Clone()
	cp.Fields["seats"] = "4"
	cp.Keywords[0] = "changed"
	if orig.Field("seats") != "" || orig.Keywords[0] != "robotics" {
		t.Fatal("Clone shares state with the original")
	}
}

func TestContentIncludesFields(t *testing.T) {
	d := course("c1", "EECS 738", "Machine Learning")
	d.Text = "Neural networks and deep learning."
	d.Keywords = []string{"ai"}
	content := d.Content()
	for _, want := range []string{"Machine Learning", "deep learning", "ai", "EECS 738"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q: %q", want, content)
		}
	}
}

func TestNewPostgresStoreRejectsTableNames(t *testing.T) {
	for _, table := range []string{"documents", "campus_docs2"} {
		if _, err := NewPostgresStore(nil, table); err != nil {
			t.Errorf("%q: %v", table, err)
		}
	}
	for _, table := range []string{"", "Documents", "docs; DROP TABLE x", "1docs"} {
		if _, err := NewPostgresStore(nil, table); err == nil {
			t.Errorf("%q should be rejected", table)
		}
	}
}

func TestShippedCorpusIsValid(t *testing.T) {
	docs, err := FileLoader{Dir: "../../data"}.Load(context.Background())
	if err != nil {
		t.Fatalf("shipped corpus: %v", err)
	}
	counts := make(map[Domain]int)
	for _, d := range docs {
		counts[d.Domain]++
	}
	for _, domain := range []Domain{DomainCourse, DomainFaculty, DomainDining, DomainTransit} {
		if counts[domain] == 0 {
			t.Errorf("no %s documents in data/", domain)
		}
	}
}
