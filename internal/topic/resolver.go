package topic

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

const (
	DefaultMinScore = 0.6
	DefaultTopK     = 3
	curatedLimit    = 3
)

// genericWords carry no topic signal and are dropped before matching.
var genericWords = map[string]struct{}{
	"course": {}, "courses": {}, "class": {}, "classes": {}, "credit": {}, "credits": {},
	"graduate": {}, "undergraduate": {}, "grad": {}, "undergrad": {}, "level": {},
	"offered": {}, "offer": {}, "list": {}, "all": {}, "show": {}, "tell": {}, "are": {},
	"seats": {}, "seat": {}, "open": {}, "available": {}, "sections": {}, "semester": {},
	"take": {}, "taking": {}, "find": {}, "need": {}, "want": {}, "good": {}, "best": {},
	"prerequisites": {}, "prerequisite": {}, "prereqs": {}, "prereq": {},
}

type Options struct {
	MinScore float64
	TopK     int
}

type courseTerms struct {
	code    string
	subject string
	title   map[string]struct{}
	body    map[string]struct{}
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	table    Mapping
	courses  []courseTerms
	postings map[string][]int
	subjects map[string]struct{}
	opts     Options
}

// NewResolver indexes course titles and descriptions for fuzzy matching.
// courses may be nil, leaving only the curated table.
func NewResolver(courses *index.CourseIndex, table Mapping, opts Options) *Resolver {
	if opts.MinScore <= 0 {
		opts.MinScore = DefaultMinScore
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	r := &Resolver{
		table:    table,
		postings: make(map[string][]int),
		subjects: make(map[string]struct{}),
		opts:     opts,
	}
	if courses == nil {
		return r
	}
	for _, d := range courses.Docs() {
		ct := courseTerms{
			code:    index.NormalizeCode(d.Field(corpus.FieldCode)),
			subject: index.CourseSubject(d),
			title:   index.TermSet(d.Title),
			body:    index.TermSet(d.Text),
		}
		i := len(r.courses)
		r.courses = append(r.courses, ct)
		seen := make(map[string]struct{}, len(ct.title)+len(ct.body))
		for _, set := range []map[string]struct{}{ct.title, ct.body} {
			for term := range set {
				if _, dup := seen[term]; dup {
					continue
				}
				seen[term] = struct{}{}
				r.postings[term] = append(r.postings[term], i)
			}
		}
	}
	for _, s := range courses.Subjects() {
		r.subjects[strings.ToLower(s)] = struct{}{}
	}
	return r
}

// Resolve maps free text to at most TopK course codes, best first.
func (r *Resolver) Resolve(text string) []string {
	return r.resolve(text, nil)
}

// ResolveQuery resolves the query with synonyms expanded, preferring courses in the
// query's departments on ties.
func (r *Resolver) ResolveQuery(q *query.Query) []string {
	return r.resolve(q.Expanded(), q.Departments())
}

func (r *Resolver) resolve(text string, departments []string) []string {
	core := r.coreTokens(query.Normalize(text))
	if len(core) == 0 {
		return nil
	}
	if ids := r.curated(strings.Join(core, " ")); len(ids) > 0 {
		return ids
	}
	return r.fuzzy(core, departments)
}

func (r *Resolver) coreTokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if _, ok := genericWords[tok]; ok {
			continue
		}
		if _, ok := r.subjects[tok]; ok {
			continue
		}
		if index.IsStopWord(tok) || isNumber(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (r *Resolver) curated(text string) []string {
	for _, e := range r.table {
		if e.Phrase == text {
			return capped(e.Courses, curatedLimit)
		}
	}
	padded := " " + text + " "
	var out []string
	seen := make(map[string]struct{})
	for _, e := range r.table {
		if !strings.Contains(padded, " "+e.Phrase+" ") && !strings.Contains(" "+e.Phrase+" ", padded) {
			continue
		}
		for _, id := range e.Courses {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return capped(out, curatedLimit)
}

type candidate struct {
	code        string
	score       float64
	specificity int
}

func (r *Resolver) fuzzy(core, departments []string) []string {
	terms := make([]string, 0, len(core))
	seenTerm := make(map[string]struct{})
	for _, tok := range core {
		for _, term := range index.Tokenize(tok) {
			if _, dup := seenTerm[term]; !dup {
				seenTerm[term] = struct{}{}
				terms = append(terms, term)
			}
		}
	}
	if len(terms) == 0 {
		return nil
	}

	hinted := make(map[string]int)
	for _, d := range departments {
		hinted[strings.ToUpper(d)] = 2
	}
	for _, tok := range core {
		for _, d := range DepartmentHints[tok] {
			if hinted[d] < 1 {
				hinted[d] = 1
			}
		}
	}

	matched := make(map[int]struct{})
	for _, term := range terms {
		for _, i := range r.postings[term] {
			matched[i] = struct{}{}
		}
	}
	var cands []candidate
	for i := range matched {
		ct := &r.courses[i]
		var total float64
		for _, term := range terms {
			if _, ok := ct.title[term]; ok {
				total += 2
			} else if _, ok := ct.body[term]; ok {
				total++
			}
		}
		score := total / float64(2*len(terms))
		if score < r.opts.MinScore {
			continue
		}
		cands = append(cands, candidate{code: ct.code, score: score, specificity: hinted[ct.subject]})
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.specificity != b.specificity {
			return a.specificity > b.specificity
		}
		return a.code < b.code
	})
	out := make([]string, 0, min(len(cands), r.opts.TopK))
	for _, c := range cands {
		if len(out) == r.opts.TopK {
			break
		}
		out = append(out, c.code)
	}
	return out
}

func capped(ids []string, n int) []string {
	if len(ids) > n {
		ids = ids[:n]
	}
	return append([]string(nil), ids...)
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
