package retriever

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

const (
	SourceFacultyName       = "faculty_name"
	SourceFacultyDepartment = "faculty_department"
	SourceFacultyResearch   = "faculty_research"
)

var facultyIgnore = union(departmentWords, wordSet(
	"professor", "professors", "prof", "profs", "faculty", "teaches", "teach", "teaching", "taught",
	"research", "researcher", "researchers", "researching", "researches", "work", "works", "working",
	"studies", "study", "studying", "expert", "experts", "specialist", "specializes", "department",
	"dept", "instructor", "instructors", "teacher", "teachers", "advisor", "advisors", "lecturer",
	"find", "show", "list", "all", "every", "interested", "interest", "interests", "area", "areas",
	"field", "fields", "email", "office", "contact", "people", "someone", "anyone", "person",
	"does", "doing", "whose", "focus", "focuses", "on", "in", "at", "ku", "university",
))

// FacultyRetriever serves faculty_search queries from the faculty index.
type FacultyRetriever struct {
	faculty *index.FacultyIndex
	limits  Limits
	logger  *slog.Logger
}

func NewFacultyRetriever(faculty *index.FacultyIndex, limits Limits) *FacultyRetriever {
	return &FacultyRetriever{
		faculty: faculty,
		limits:  limits,
		logger:  slog.Default().With("component", "faculty-retriever"),
	}
}

func (r *FacultyRetriever) Name() string { return "faculty" }

// Retrieve matches names first, then the department partition filtered by
// research concepts, then research-keyword postings when the query names no
// department. Every research concept must match.
func (r *FacultyRetriever) Retrieve(ctx context.Context, q *query.Query) (*Result, error) {
	start := time.Now()
	limit := r.limits.For(q)

	if hits := r.byName(q); len(hits) > 0 {
		return finish(rank(dedupeByName(hits), limit), start), nil
	}

	concepts := q.Concepts(facultyIgnore)
	var terms []string
	for _, c := range concepts {
		terms = append(terms, stems(c)...)
	}

	var hits []Hit
	departments := q.Departments()
	for _, dept := range departments {
		part := r.faculty.Department(dept)
		if part.Len() == 0 {
			continue
		}
		if len(concepts) == 0 {
			hits = append(hits, partitionHits(part.Docs(), 1, SourceFacultyDepartment)...)
			continue
		}
		hits = append(hits, r.research(part.Filter(matchesAll(concepts)), terms, SourceFacultyDepartment)...)
	}

	if len(departments) == 0 && len(concepts) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cands := r.faculty.ResearchCandidates(terms)
		hits = r.research(cands.Filter(matchesAll(concepts)), terms, SourceFacultyResearch)
	}

	r.logger.Debug("faculty retrieval", "concepts", len(concepts), "departments", departments, "hits", len(hits))
	return finish(rank(dedupeByName(hits), limit), start), nil
}

func (r *FacultyRetriever) byName(q *query.Query) []Hit {
	matched := make(map[*corpus.Document]float64)
	var order []*corpus.Document
	for _, tok := range q.Tokens {
		if len(tok) < 3 || index.IsStopWord(tok) {
			continue
		}
		if _, skip := facultyIgnore[tok]; skip {
			continue
		}
		for _, d := range r.faculty.ByNameToken(tok) {
			if _, ok := matched[d]; !ok {
				order = append(order, d)
			}
			matched[d]++
		}
	}
	hits := make([]Hit, 0, len(order))
	for _, d := range order {
		hits = append(hits, Hit{Document: d, Score: 100 * matched[d], Source: SourceFacultyName})
	}
	return hits
}

func (r *FacultyRetriever) research(part *index.Partition, terms []string, source string) []Hit {
	scores := part.BM25(terms)
	hits := make([]Hit, 0, part.Len())
	for _, d := range part.Docs() {
		hits = append(hits, Hit{Document: d, Score: 1 + scores[d.ID], Source: source})
	}
	return hits
}

// matchesAll keeps profiles whose research text satisfies every concept. A
// concept is satisfied when all stems of any one of its phrasings appear.
func matchesAll(concepts [][]string) func(*corpus.Document) bool {
	phrasings := make([][][]string, len(concepts))
	for i, c := range concepts {
		for _, alt := range c {
			if toks := index.Tokenize(alt); len(toks) > 0 {
				phrasings[i] = append(phrasings[i], toks)
			}
		}
	}
	return func(d *corpus.Document) bool {
		terms := index.TermSet(index.ResearchText(d))
		for _, alts := range phrasings {
			if len(alts) == 0 {
				continue
			}
			if !anyPhrasing(alts, terms) {
				return false
			}
		}
		return true
	}
}

func anyPhrasing(alts [][]string, terms map[string]struct{}) bool {
	for _, toks := range alts {
		all := true
		for _, t := range toks {
			if _, ok := terms[t]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// dedupeByName keeps the best-scoring hit per person. Profiles listed under
// several departments share a name.
func dedupeByName(hits []Hit) []Hit {
	best := make(map[string]int, len(hits))
	out := hits[:0:0]
	for _, h := range hits {
		name := strings.ToLower(strings.TrimSpace(h.Document.Field(corpus.FieldName)))
		if name == "" {
			name = h.Document.ID
		}
		if i, ok := best[name]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		best[name] = len(out)
		out = append(out, h)
	}
	return out
}
