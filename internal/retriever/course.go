package retriever

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

// Course field weights.
const (
	weightCode        = 10
	weightTitle       = 8
	weightSubject     = 6
	weightLevel       = 5
	weightDepartment  = 4
	weightDescription = 3
	weightSchool      = 3
	weightPrereqs     = 2

	creditBonus = 5
	levelBonus  = 5

	exactCodeScore = 1000
	topicScore     = 500
)

// Hit sources reported by the course retriever.
const (
	SourceCourseCode = "course_code"
	SourceTopic      = "topic"
	SourceSubject    = "subject_partition"
	SourceLevel      = "level_partition"
	SourceKeyword    = "keyword_postings"
)

var courseIgnore = union(departmentWords, wordSet(
	"course", "courses", "class", "classes", "credit", "credits", "hour", "hours",
	"graduate", "undergraduate", "grad", "undergrad", "level", "offered", "offer", "offering",
	"list", "all", "every", "show", "tell", "find", "need", "want", "take", "taking",
	"available", "availability", "seats", "seat", "open", "sections", "section", "semester",
	"teaches", "teach", "taught", "instructor", "enroll", "enrollment", "waitlist", "full",
	"schedule", "time", "located", "location", "room", "good", "best", "easy",
))

// TopicResolver maps a query's topic onto course codes, best first.
type TopicResolver interface {
	ResolveQuery(q *query.Query) []string
}

// CourseRetriever serves course_info queries from the course index.
type CourseRetriever struct {
	courses *index.CourseIndex
	topics  TopicResolver
	limits  Limits
	logger  *slog.Logger
}

// NewCourseRetriever builds the retriever. topics may be nil.
func NewCourseRetriever(courses *index.CourseIndex, topics TopicResolver, limits Limits) *CourseRetriever {
	return &CourseRetriever{
		courses: courses,
		topics:  topics,
		limits:  limits,
		logger:  slog.Default().With("component", "course-retriever"),
	}
}

func (r *CourseRetriever) Name() string { return "course" }

// Retrieve tries exact codes, then topic resolution, then a subject or level
// partition, and finally keyword postings. The first step that yields
// documents wins.
func (r *CourseRetriever) Retrieve(ctx context.Context, q *query.Query) (*Result, error) {
	start := time.Now()
	limit := r.limits.For(q)

	var hits []Hit
	seen := make(map[string]struct{})
	for _, code := range q.CourseCodes() {
		d, ok := r.courses.ByCode(code)
		if !ok {
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		hits = append(hits, Hit{Document: d, Score: exactCodeScore - float64(len(hits)), Source: SourceCourseCode})
	}
	if len(hits) > 0 {
		return finish(hits, start), nil
	}

	words := contentWords(q, courseIgnore, false)
	words = dropSubjects(words, r.courses)

	if r.topics != nil && len(words) > 0 {
		for i, code := range r.topics.ResolveQuery(q) {
			d, ok := r.courses.ByCode(code)
			if !ok || !levelMatches(d, q.Level) {
				continue
			}
			seen[d.ID] = struct{}{}
			hits = append(hits, Hit{Document: d, Score: topicScore - float64(i), Source: SourceTopic})
		}
		if len(hits) > 0 && q.Scope != query.ScopeCompleteList {
			return finish(hits, start), nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, source := r.partition(q)
	terms := stems(words)
	var scored []Hit
	switch {
	case part != nil && len(words) == 0:
		scored = r.score(part, q, nil, nil, source, true)
	case part != nil:
		scored = r.score(part, q, words, terms, source, false)
	case len(terms) > 0:
		scored = r.score(r.courses.Candidates(terms), q, words, terms, SourceKeyword, false)
	}
	for _, h := range scored {
		if _, dup := seen[h.Document.ID]; dup {
			continue
		}
		hits = append(hits, h)
	}
	r.logger.Debug("course partition scored", "source", source, "words", words, "hits", len(hits))
	return finish(rank(hits, limit), start), nil
}

// partition picks the subject partition of the first known department, or
// the level partition, narrowed by level when both are present.
func (r *CourseRetriever) partition(q *query.Query) (*index.Partition, string) {
	for _, dept := range q.Departments() {
		if p := r.courses.Subject(dept); p.Len() > 0 {
			if q.Level != "" {
				p = p.Filter(func(d *corpus.Document) bool { return levelMatches(d, q.Level) })
			}
			return p, SourceSubject
		}
	}
	if q.Level != "" {
		if p := r.courses.Level(q.Level); p.Len() > 0 {
			return p, SourceLevel
		}
	}
	return nil, ""
}

// score ranks a partition. With keepAll every document is kept; otherwise
// only documents matching some word or term survive.
func (r *CourseRetriever) score(part *index.Partition, q *query.Query, words, terms []string, source string, keepAll bool) []Hit {
	bm25 := part.BM25(terms)
	hits := make([]Hit, 0, part.Len())
	for _, d := range part.Docs() {
		s := bm25[d.ID] + fieldScore(words, courseFields(d))
		if s <= 0 && !keepAll {
			continue
		}
		if q.Credits > 0 && creditsMatch(d, q.Credits) {
			s += creditBonus
		}
		if q.Level != "" && levelMatches(d, q.Level) {
			s += levelBonus
		}
		hits = append(hits, Hit{Document: d, Score: s, Source: source})
	}
	return hits
}

func courseFields(d *corpus.Document) []weightedField {
	return []weightedField{
		{d.Field(corpus.FieldCode), weightCode},
		{d.Title, weightTitle},
		{index.CourseSubject(d), weightSubject},
		{index.CourseLevel(d), weightLevel},
		{d.Field(corpus.FieldDepartment), weightDepartment},
		{d.Text, weightDescription},
		{d.Field(corpus.FieldSchool), weightSchool},
		{d.Field(corpus.FieldPrerequisites), weightPrereqs},
	}
}

// levelMatches accepts "graduate", "undergraduate" or a hundreds band.
func levelMatches(d *corpus.Document, level string) bool {
	switch level {
	case "":
		return true
	case index.LevelGraduate, index.LevelUndergraduate:
		return index.CourseLevel(d) == level
	default:
		return index.CourseBand(d) == level
	}
}

// creditsMatch accepts a single value ("3") or a range ("1-3").
func creditsMatch(d *corpus.Document, credits int) bool {
	raw := strings.TrimSpace(d.Field(corpus.FieldCredits))
	if raw == "" {
		return false
	}
	lo, hi, found := strings.Cut(raw, "-")
	minC, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return false
	}
	maxC := minC
	if found {
		if maxC, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return false
		}
	}
	return credits >= minC && credits <= maxC
}

// dropSubjects removes words that are subject codes such as "eecs".
func dropSubjects(words []string, courses *index.CourseIndex) []string {
	subjects := make(map[string]struct{}, len(courses.Subjects()))
	for _, s := range courses.Subjects() {
		subjects[strings.ToLower(s)] = struct{}{}
	}
	out := words[:0]
	for _, w := range words {
		if _, ok := subjects[w]; !ok {
			out = append(out, w)
		}
	}
	return out
}
