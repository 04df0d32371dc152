package router

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/topic"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/tracing"
)

func course(code, title, text string) corpus.Document {
	return corpus.Document{
		ID: code, Domain: corpus.DomainCourse, Title: title, Text: text,
		Fields: map[string]string{corpus.FieldCode: code, corpus.FieldCredits: "3"},
	}
}

func testDocs() []corpus.Document {
	return []corpus.Document{
		course("EECS 700", "Special Topics", "Deep reinforcement learning for mobile robotics."),
		course("EECS 738", "Machine Learning", "Neural networks, deep learning and probabilistic models."),
		course("EECS 658", "Introduction to Machine Learning", "Supervised and unsupervised learning algorithms."),
		course("MATH 526", "Applied Mathematical Statistics I", "Probability and statistics."),
		{ID: "f-rivera", Domain: corpus.DomainFaculty, Title: "Associate Professor",
			Text:     "Research on artificial intelligence, fairness and machine learning.",
			Keywords: []string{"artificial intelligence", "fairness", "machine learning"},
			Fields:   map[string]string{corpus.FieldName: "Alex Rivera", corpus.FieldDepartment: "EECS"}},
		{ID: "f-okafor", Domain: corpus.DomainFaculty, Title: "Professor",
			Text:     "Medieval European history and manuscripts.",
			Keywords: []string{"medieval history"},
			Fields:   map[string]string{corpus.FieldName: "Sam Okafor", corpus.FieldDepartment: "HIST"}},
		{ID: "d-market", Domain: corpus.DomainDining, Title: "The Market", Text: "Pizza, sandwiches and salads.",
			Fields: map[string]string{corpus.FieldBuilding: "Kansas Union"}},
	}
}

type fakeLive struct {
	mu      sync.Mutex
	calls   []string
	stale   bool
	err     error
	payload func(course string, field query.LiveField) *live.Payload
}

func (f *fakeLive) FetchLive(_ context.Context, course string, field query.LiveField) (*live.Payload, error) {
	f.mu.Lock()
	f.calls = append(f.calls, course+"/"+string(field))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &live.Payload{
		Course:    course,
		Semester:  "spring 2026",
		Field:     field,
		FetchedAt: time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC),
		Stale:     f.stale,
		Sections: []live.Section{
			{Type: "LEC", ClassNumber: "12345", Instructor: "Rivera, Alex", Seats: 8, Status: live.StatusOpen, Enrolled: 22, Capacity: 30},
		},
	}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []analytics.RouteEvent
}

func (s *recordingSink) Track(e analytics.RouteEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

type fixture struct {
	set  *index.Set
	deps Deps
	live *fakeLive
	sink *recordingSink
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	ctx := context.Background()
	set, err := index.Build(ctx, testDocs())
	if err != nil {
		t.Fatal(err)
	}
	emb := vector.NewHashEmbedder(256)
	store, err := vector.BuildMemoryStore(ctx, set.Docs(), emb, vector.BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	limits := retriever.DefaultLimits
	campus := retriever.NewCampusRetriever(set.Campus, limits)
	f := &fixture{set: set, live: &fakeLive{}, sink: &recordingSink{}}
	f.deps = Deps{
		Preprocessor: query.NewPreprocessor(query.Vocabulary{
			Subjects: set.Courses.Subjects(),
			Words:    set.Courses.TitleWords(),
			Known:    set.Faculty.NameTokens(),
		}),
		Classifier: classifier.New(ctx, emb, classifier.Options{}, nil),
		Retrievers: map[query.Intent]retriever.Retriever{
			query.IntentCourseInfo:    retriever.NewCourseRetriever(set.Courses, topic.NewResolver(set.Courses, topic.DefaultMapping, topic.Options{}), limits),
			query.IntentFacultySearch: retriever.NewFacultyRetriever(set.Faculty, limits),
			query.IntentDiningInfo:    campus,
			query.IntentTransitInfo:   campus,
		},
		Fallback: vector.NewFallback(emb, store, set.Lookup, vector.FallbackOptions{TopK: 3, MinScore: 0.05, Timeout: time.Second}, nil),
		Live:     f.live,
		Events:   f.sink,
		Tracer:   tracing.NewTracer(true, 1.0),
	}
	return f
}

func ids(res *retriever.Result) []string {
	var out []string
	for _, d := range res.Documents() {
		out = append(out, d.ID)
	}
	return out
}

func TestCourseCodeWithSeatsMergesLiveData(t *testing.T) {
	f := newFixture(t)
	res := New(f.deps).Route(context.Background(), "EECS 700 seats")

	if res.Provenance != retriever.ProvenanceFastPathLive {
		t.Fatalf("provenance = %s, want fast_path+live_lookup", res.Provenance)
	}
	if res.Intent != query.IntentCourseInfo {
		t.Errorf("intent = %s", res.Intent)
	}
	if len(res.Hits) != 1 || res.Hits[0].Document.ID != "EECS 700" {
		t.Fatalf("hits = %v", ids(res))
	}
	doc := res.Hits[0].Document
	if doc.Field("live_open_seats") != "8" || doc.Title != "Special Topics" {
		t.Errorf("live fields not merged: %+v", doc.Fields)
	}
	if !reflect.DeepEqual(f.live.calls, []string{"EECS 700/seats"}) {
		t.Errorf("live calls = %v", f.live.calls)
	}
	indexed, _ := f.set.Lookup("EECS 700")
	if indexed.Field("live_open_seats") != "" || indexed == doc {
		t.Error("live merge must not touch the indexed document")
	}
	want := []string{StateReceived, StatePreprocessed, StateClassified, StateFastPath, StateLiveLookup, StateResolved}
	if !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v", res.Trace)
	}
	if res.Degraded || res.Stale {
		t.Errorf("degraded=%v stale=%v", res.Degraded, res.Stale)
	}
}

func TestTopicQueryResolvesOnFastPath(t *testing.T) {
	f := newFixture(t)
	res := New(f.deps).Route(context.Background(), "deep learning courses")
	if res.Provenance != retriever.ProvenanceFastPath {
		t.Fatalf("provenance = %s", res.Provenance)
	}
	if got := ids(res); len(got) == 0 || got[0] != "EECS 738" {
		t.Errorf("hits = %v, want EECS 738 first", got)
	}
	if len(f.live.calls) != 0 {
		t.Error("no freshness marker, live lookup must not run")
	}
}

func TestFacultyMissEscalatesToFallback(t *testing.T) {
	f := newFixture(t)
	res := New(f.deps).Route(context.Background(), "who teaches AI ethics")
	if res.Intent != query.IntentFacultySearch {
		t.Fatalf("intent = %s", res.Intent)
	}
	if res.Provenance != retriever.ProvenanceVectorFallback {
		t.Fatalf("provenance = %s", res.Provenance)
	}
	if res.Hits[0].Document.ID != "f-rivera" {
		t.Errorf("top hit = %s", res.Hits[0].Document.ID)
	}
	for _, h := range res.Hits {
		if h.Document.Domain != corpus.DomainFaculty {
			t.Errorf("fallback returned %s outside the faculty domain", h.Document.ID)
		}
	}
	want := []string{StateReceived, StatePreprocessed, StateClassified, StateFastPath, StateFallback, StateResolved}
	if !reflect.DeepEqual(res.Trace, want) {
		t.Errorf("trace = %v", res.Trace)
	}
	if len(f.live.calls) != 0 {
		t.Errorf("no course to look up, got live calls %v", f.live.calls)
	}
}

func TestStaleLiveDataStillResolves(t *testing.T) {
	f := newFixture(t)
	f.live.stale = true
	res := New(f.deps).Route(context.Background(), "EECS 700 seats")
	if !res.Stale || !res.Degraded {
		t.Errorf("stale=%v degraded=%v", res.Stale, res.Degraded)
	}
	if res.Provenance != retriever.ProvenanceFastPathLive {
		t.Errorf("provenance = %s", res.Provenance)
	}
	if res.Hits[0].Document.Field("live_stale") != "true" {
		t.Error("merged document should carry the stale flag")
	}
}

func TestLiveFailureKeepsStaticResult(t *testing.T) {
	f := newFixture(t)
	f.live.err = fmt.Errorf("live lookup EECS 700: %w: %w", apperrors.ErrUpstreamTimeout, context.DeadlineExceeded)
	res := New(f.deps).Route(context.Background(), "EECS 700 seats")
	if res.Provenance != retriever.ProvenanceFastPath {
		t.Errorf("provenance = %s", res.Provenance)
	}
	if !res.Degraded || !reflect.DeepEqual(res.Reasons, []string{"live lookup timed out"}) {
		t.Errorf("degraded=%v reasons=%v", res.Degraded, res.Reasons)
	}
	if res.Live != nil || res.Hits[0].Document.Field("live_open_seats") != "" {
		t.Error("failed lookup must not merge anything")
	}
}

func TestLiveOnlyResultSynthesizesDocument(t *testing.T) {
	f := newFixture(t)
	f.deps.Fallback = nil
	res := New(f.deps).Route(context.Background(), "EECS 999 seats")
	if res.Provenance != retriever.ProvenanceLiveLookup {
		t.Fatalf("provenance = %s", res.Provenance)
	}
	if len(res.Hits) != 1 || res.Hits[0].Document.ID != "live:EECS 999" {
		t.Fatalf("hits = %v", ids(res))
	}
	if res.Hits[0].Document.Field(corpus.FieldCode) != "EECS 999" {
		t.Errorf("fields = %v", res.Hits[0].Document.Fields)
	}
}

func TestRouteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.deps.Live = nil
	r := New(f.deps)
	for _, raw := range []string{"deep learning courses", "who teaches AI ethics", "where can I eat", "EECS 700", "xyzzy"} {
		a := r.Route(context.Background(), raw)
		b := r.Route(context.Background(), raw)
		if !reflect.DeepEqual(ids(a), ids(b)) || a.Provenance != b.Provenance || a.Intent != b.Intent {
			t.Errorf("%q: %v/%s vs %v/%s", raw, ids(a), a.Provenance, ids(b), b.Provenance)
		}
	}
}

type fixedClassifier query.Intent

func (c fixedClassifier) Classify(_ context.Context, q *query.Query) (query.Intent, float64) {
	_ = q.SetIntent(query.Intent(c), 0.8)
	return q.Intent(), q.Confidence()
}

type stubRetriever struct {
	mu    sync.Mutex
	calls int
	hits  []string
	err   error
	prov  retriever.Provenance
}

func (s *stubRetriever) Name() string { return "stub" }

func (s *stubRetriever) Retrieve(context.Context, *query.Query) (*retriever.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	res := &retriever.Result{Provenance: retriever.ProvenanceNone}
	for _, id := range s.hits {
		res.Hits = append(res.Hits, retriever.Hit{Document: &corpus.Document{ID: id, Domain: corpus.DomainCampus}})
	}
	if len(res.Hits) > 0 {
		res.Provenance = s.prov
	}
	return res, nil
}

func stubDeps(intent query.Intent, fast, fallback *stubRetriever) Deps {
	return Deps{
		Preprocessor: query.NewPreprocessor(query.Vocabulary{}),
		Classifier:   fixedClassifier(intent),
		Retrievers:   map[query.Intent]retriever.Retriever{intent: fast},
		Fallback:     fallback,
	}
}

func TestEscalation(t *testing.T) {
	tests := []struct {
		name         string
		intent       query.Intent
		fast         *stubRetriever
		fallback     *stubRetriever
		fastCalls    int
		fallbackHits int
		provenance   retriever.Provenance
		degraded     bool
	}{
		{"fast path hit", query.IntentDiningInfo,
			&stubRetriever{hits: []string{"a"}, prov: retriever.ProvenanceFastPath}, &stubRetriever{hits: []string{"v"}, prov: retriever.ProvenanceVectorFallback},
			1, 0, retriever.ProvenanceFastPath, false},
		{"fast path empty", query.IntentDiningInfo,
			&stubRetriever{}, &stubRetriever{hits: []string{"v"}, prov: retriever.ProvenanceVectorFallback},
			1, 1, retriever.ProvenanceVectorFallback, false},
		{"fast path error", query.IntentDiningInfo,
			&stubRetriever{err: errors.New("boom")}, &stubRetriever{hits: []string{"v"}, prov: retriever.ProvenanceVectorFallback},
			1, 1, retriever.ProvenanceVectorFallback, true},
		{"general skips fast path", query.IntentGeneral,
			&stubRetriever{hits: []string{"a"}, prov: retriever.ProvenanceFastPath}, &stubRetriever{hits: []string{"v"}, prov: retriever.ProvenanceVectorFallback},
			0, 1, retriever.ProvenanceVectorFallback, false},
		{"everything empty", query.IntentTransitInfo,
			&stubRetriever{}, &stubRetriever{},
			1, 1, retriever.ProvenanceNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(stubDeps(tt.intent, tt.fast, tt.fallback)).Route(context.Background(), "anything at all")
			if tt.fast.calls != tt.fastCalls {
				t.Errorf("fast path calls = %d, want %d", tt.fast.calls, tt.fastCalls)
			}
			if tt.fallback.calls != tt.fallbackHits {
				t.Errorf("fallback calls = %d, want %d", tt.fallback.calls, tt.fallbackHits)
			}
			if res.Provenance != tt.provenance {
				t.Errorf("provenance = %s, want %s", res.Provenance, tt.provenance)
			}
			if res.Degraded != tt.degraded {
				t.Errorf("degraded = %v", res.Degraded)
			}
			if res.Trace[len(res.Trace)-1] != StateResolved {
				t.Errorf("trace = %v", res.Trace)
			}
		})
	}
}

func TestRouteEventsPublished(t *testing.T) {
	f := newFixture(t)
	r := New(f.deps)
	r.Route(context.Background(), "deep learning courses")
	f.deps.Fallback = nil
	f.deps.Retrievers = nil
	New(f.deps).Route(context.Background(), "xyzzy plugh")

	if len(f.sink.events) != 2 {
		t.Fatalf("events = %d", len(f.sink.events))
	}
	first, second := f.sink.events[0], f.sink.events[1]
	if first.Type != analytics.EventRoute || first.Provenance != "fast_path" || first.Hits == 0 || first.RequestID == "" {
		t.Errorf("first event = %+v", first)
	}
	if second.Type != analytics.EventZeroResult || second.Provenance != "none" {
		t.Errorf("second event = %+v", second)
	}
}

func TestConcurrentRoutes(t *testing.T) {
	f := newFixture(t)
	r := New(f.deps)
	queries := []string{"EECS 700 seats", "deep learning courses", "who teaches AI ethics", "where can I eat"}
	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := r.Route(context.Background(), queries[i%len(queries)]); res == nil || res.Trace[len(res.Trace)-1] != StateResolved {
				t.Errorf("query %d did not resolve", i)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkRoute(b *testing.B) {
	f := newFixture(b)
	f.deps.Tracer = nil
	f.deps.Events = nil
	rt := New(f.deps)
	queries := []struct{ name, raw string }{
		{"fast_path_live", "EECS 700 seats"},
		{"topic", "deep learning courses"},
		{"fallback", "who teaches AI ethics"},
		{"general", "what is the meaning of life"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				rt.Route(context.Background(), q.raw)
			}
		})
	}
}
