package topic

import (
	"context"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

func course(code, title, text string) corpus.Document {
	return corpus.Document{
		ID:     code,
		Domain: corpus.DomainCourse,
		Title:  title,
		Text:   text,
		Fields: map[string]string{corpus.FieldCode: code},
	}
}

func newTestResolver(t *testing.T, opts Options) (*Resolver, *index.CourseIndex) {
	t.Helper()
	set, err := index.Build(context.Background(), []corpus.Document{
		course("EECS 658", "Introduction to Machine Learning", "Supervised and unsupervised learning algorithms."),
		course("EECS 738", "Machine Learning", "Neural networks, deep learning and probabilistic models."),
		course("EECS 700", "Special Topics", "Deep reinforcement learning for mobile robotics."),
		course("EECS 845", "Statistical Learning", "Regression and classification."),
		course("MATH 728", "Statistical Learning", "Regression and classification."),
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewResolver(set.Courses, DefaultMapping, opts), set.Courses
}

func TestCuratedTable(t *testing.T) {
	r, _ := newTestResolver(t, Options{})
	tests := []struct {
		text string
		want []string
	}{
		{"machine learning", []string{"EECS 658", "EECS 836"}},
		{"Machine Learning courses", []string{"EECS 658", "EECS 836"}},
		{"deep reinforcement learning", []string{"EECS 700"}},
		{"robotics research", []string{"EECS 690", "EECS 700"}},
		{"data", []string{"EECS 731", "EECS 658", "BSAN 440"}},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFuzzyDeepLearning(t *testing.T) {
	r, _ := newTestResolver(t, Options{})
	got := r.Resolve("deep learning courses")
	if !reflect.DeepEqual(got, []string{"EECS 738"}) {
		t.Fatalf("Resolve = %v, want [EECS 738]", got)
	}

	strict, _ := newTestResolver(t, Options{MinScore: 0.8})
	if got := strict.Resolve("deep learning courses"); len(got) != 0 {
		t.Errorf("score below threshold should resolve to nothing, got %v", got)
	}
}

func TestFuzzyTieBreaks(t *testing.T) {
	r, courses := newTestResolver(t, Options{})
	if got := r.Resolve("statistical learning"); !reflect.DeepEqual(got, []string{"EECS 845", "MATH 728"}) {
		t.Errorf("equal scores without department should order by code, got %v", got)
	}

	p := query.NewPreprocessor(query.Vocabulary{Subjects: courses.Subjects(), Words: courses.TitleWords()})
	q := p.Preprocess("math statistical learning")
	if got := r.ResolveQuery(q); !reflect.DeepEqual(got, []string{"MATH 728", "EECS 845"}) {
		t.Errorf("department entity should win the tie, got %v", got)
	}
}

func TestResolveQueryExpandsSynonyms(t *testing.T) {
	r, courses := newTestResolver(t, Options{})
	p := query.NewPreprocessor(query.Vocabulary{Subjects: courses.Subjects(), Words: courses.TitleWords()})
	if got := r.ResolveQuery(p.Preprocess("dl classes")); !reflect.DeepEqual(got, []string{"EECS 738"}) {
		t.Errorf("dl should resolve like deep learning, got %v", got)
	}
	if got := r.ResolveQuery(p.Preprocess("ml")); !reflect.DeepEqual(got, []string{"EECS 658", "EECS 836"}) {
		t.Errorf("ml should hit the curated table, got %v", got)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r, _ := newTestResolver(t, Options{})
	for _, text := range []string{"deep learning", "supply chain", "", "courses", "quantum basket weaving"} {
		first, second := r.Resolve(text), r.Resolve(text)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%q: %v then %v", text, first, second)
		}
	}
	if got := r.Resolve("quantum basket weaving"); len(got) != 0 {
		t.Errorf("unrelated text resolved to %v", got)
	}
}
