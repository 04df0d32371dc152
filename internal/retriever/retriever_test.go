package retriever

import (
	"context"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/topic"
)

func course(code, title, text, credits string) corpus.Document {
	return corpus.Document{
		ID: code, Domain: corpus.DomainCourse, Title: title, Text: text,
		Fields: map[string]string{corpus.FieldCode: code, corpus.FieldCredits: credits},
	}
}

func faculty(id, name, dept string, keywords ...string) corpus.Document {
	return corpus.Document{
		ID: id, Domain: corpus.DomainFaculty, Title: "Professor", Keywords: keywords,
		Fields: map[string]string{corpus.FieldName: name, corpus.FieldDepartment: dept},
	}
}

type fixture struct {
	set *index.Set
	pre *query.Preprocessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	set, err := index.Build(context.Background(), []corpus.Document{
		course("EECS 700", "Special Topics", "Deep reinforcement learning for mobile robotics.", "3"),
		course("EECS 738", "Machine Learning", "Neural networks, deep learning and probabilistic models.", "3"),
		course("EECS 658", "Introduction to Machine Learning", "Supervised and unsupervised learning algorithms.", "3"),
		course("EECS 168", "Programming I", "Problem solving with Python.", "4"),
		course("EECS 448", "Software Engineering I", "Team software projects.", "3"),
		course("MATH 526", "Applied Mathematical Statistics I", "Probability and statistics.", "3"),
		faculty("f-rivera", "Alex Rivera", "EECS", "artificial intelligence", "fairness", "machine learning"),
		faculty("f-chen", "Mei Chen", "EECS", "robotics", "motion planning"),
		faculty("f-chen-math", "Mei Chen", "MATH", "robotics", "control theory"),
		faculty("f-okafor", "Sam Okafor", "HIST", "medieval history"),
		{ID: "d-market", Domain: corpus.DomainDining, Title: "The Market", Text: "Pizza, sandwiches and salads.",
			Fields: map[string]string{corpus.FieldBuilding: "Kansas Union", corpus.FieldType: "food court"}},
		{ID: "d-crimson", Domain: corpus.DomainDining, Title: "Crimson Cafe", Text: "Coffee and pastries.",
			Fields: map[string]string{corpus.FieldBuilding: "Capitol Federal Hall", corpus.FieldType: "coffee"}},
		{ID: "t-11", Domain: corpus.DomainTransit, Title: "Route 11", Text: "Downtown to campus via Massachusetts Street."},
		{ID: "t-safebus", Domain: corpus.DomainTransit, Title: "SafeBus", Text: "Late night rides home."},
	})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		set: set,
		pre: query.NewPreprocessor(query.Vocabulary{
			Subjects: set.Courses.Subjects(),
			Words:    set.Courses.TitleWords(),
			Known:    set.Faculty.NameTokens(),
		}),
	}
}

func ids(res *Result) []string {
	var out []string
	for _, d := range res.Documents() {
		out = append(out, d.ID)
	}
	return out
}

func (f *fixture) course(limits Limits) *CourseRetriever {
	return NewCourseRetriever(f.set.Courses, topic.NewResolver(f.set.Courses, topic.DefaultMapping, topic.Options{}), limits)
}

func TestCourseRetriever(t *testing.T) {
	f := newFixture(t)
	r := f.course(Limits{})
	tests := []struct {
		raw    string
		want   []string
		source string
	}{
		{"EECS 700 seats", []string{"EECS 700"}, SourceCourseCode},
		{"eecs738 and EECS 658", []string{"EECS 738", "EECS 658"}, SourceCourseCode},
		{"deep learning courses", []string{"EECS 738"}, SourceTopic},
		{"graduate courses in computer science", []string{"EECS 738", "EECS 700"}, SourceSubject},
		{"python", []string{"EECS 168"}, SourceKeyword},
		{"EECS 999 seats", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res, err := r.Retrieve(context.Background(), f.pre.Preprocess(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			if got := ids(res); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			if res.Empty() {
				if res.Provenance != ProvenanceNone {
					t.Errorf("empty result provenance = %s", res.Provenance)
				}
				return
			}
			if res.Provenance != ProvenanceFastPath || res.Hits[0].Source != tt.source {
				t.Errorf("provenance=%s source=%s, want fast_path/%s", res.Provenance, res.Hits[0].Source, tt.source)
			}
		})
	}
}

func TestCourseCodeIsAlwaysTopResult(t *testing.T) {
	f := newFixture(t)
	r := f.course(Limits{})
	for _, d := range f.set.Courses.Docs() {
		code := d.Field(corpus.FieldCode)
		res, err := r.Retrieve(context.Background(), f.pre.Preprocess("tell me about "+code+" machine learning"))
		if err != nil {
			t.Fatal(err)
		}
		if res.Empty() || res.Hits[0].Document.ID != d.ID {
			t.Errorf("%s: top result = %v", code, ids(res))
		}
	}
}

func TestCourseCreditsAndScope(t *testing.T) {
	f := newFixture(t)

	res, _ := f.course(Limits{}).Retrieve(context.Background(), f.pre.Preprocess("3 credit eecs courses"))
	got := ids(res)
	if len(got) != 5 || got[len(got)-1] != "EECS 168" {
		t.Errorf("3-credit courses should rank first, got %v", got)
	}

	small := f.course(Limits{TopResults: 1, CompleteList: 50})
	if res, _ := small.Retrieve(context.Background(), f.pre.Preprocess("eecs courses")); len(res.Hits) != 1 {
		t.Errorf("top results limit ignored: %v", ids(res))
	}
	if res, _ := small.Retrieve(context.Background(), f.pre.Preprocess("all eecs courses")); len(res.Hits) != 5 {
		t.Errorf("complete list should return every EECS course: %v", ids(res))
	}
}

func TestFacultyRetriever(t *testing.T) {
	f := newFixture(t)
	r := NewFacultyRetriever(f.set.Faculty, Limits{})
	tests := []struct {
		raw  string
		want []string
	}{
		{"professor rivera", []string{"f-rivera"}},
		{"who teaches AI ethics", nil},
		{"robotics professors", []string{"f-chen"}},
		{"eecs faculty working on machine learning", []string{"f-rivera"}},
		{"eecs faculty", []string{"f-chen", "f-rivera"}},
		{"history faculty", []string{"f-okafor"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res, err := r.Retrieve(context.Background(), f.pre.Preprocess(tt.raw))
			if err != nil {
				t.Fatal(err)
			}
			got := ids(res)
			if len(got) == 2 && len(tt.want) == 2 && got[0] > got[1] {
				got[0], got[1] = got[1], got[0]
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCampusRetriever(t *testing.T) {
	f := newFixture(t)
	r := NewCampusRetriever(f.set.Campus, Limits{})
	tests := []struct {
		raw    string
		intent query.Intent
		want   []string
	}{
		{"where can I eat", query.IntentDiningInfo, []string{"d-crimson", "d-market"}},
		{"coffee near campus", query.IntentDiningInfo, []string{"d-crimson"}},
		{"sushi", query.IntentDiningInfo, nil},
		{"bus to downtown", query.IntentTransitInfo, []string{"t-11"}},
		{"bus to downtown", query.IntentGeneral, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw+"/"+string(tt.intent), func(t *testing.T) {
			q := f.pre.Preprocess(tt.raw)
			if err := q.SetIntent(tt.intent, 0.9); err != nil {
				t.Fatal(err)
			}
			res, err := r.Retrieve(context.Background(), q)
			if err != nil {
				t.Fatal(err)
			}
			if got := ids(res); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetrieversDoNotMutateIndex(t *testing.T) {
	f := newFixture(t)
	before := make(map[string]string)
	for _, d := range f.set.Docs() {
		before[d.ID] = d.Content()
	}
	q := f.pre.Preprocess("all eecs courses")
	f.course(Limits{}).Retrieve(context.Background(), q)
	NewFacultyRetriever(f.set.Faculty, Limits{}).Retrieve(context.Background(), f.pre.Preprocess("eecs faculty"))
	for _, d := range f.set.Docs() {
		if before[d.ID] != d.Content() {
			t.Errorf("%s changed during retrieval", d.ID)
		}
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		text, word string
		want       bool
	}{
		{"machine learning", "learning", true},
		{"deep learning", "learn", false},
		{"relearning learning", "learning", true},
		{"eecs 700", "700", true},
		{"eecs 7000", "700", false},
	}
	for _, tt := range tests {
		if got := containsWord(tt.text, tt.word); got != tt.want {
			t.Errorf("containsWord(%q, %q) = %v", tt.text, tt.word, got)
		}
	}
}
