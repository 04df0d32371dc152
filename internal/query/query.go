// Package query defines the preprocessed query that flows through the router
// and the preprocessor that produces it.
package query

import (
	"fmt"
	"strings"
)

// Intent is the single label the classifier assigns to a query.
type Intent string

const (
	IntentCourseInfo    Intent = "course_info"
	IntentFacultySearch Intent = "faculty_search"
	IntentDiningInfo    Intent = "dining_info"
	IntentTransitInfo   Intent = "transit_info"
	IntentGeneral       Intent = "general"
)

// Intents lists the closed set of intents in rule tie-break order, general
// last.
var Intents = []Intent{
	IntentCourseInfo, IntentFacultySearch, IntentDiningInfo, IntentTransitInfo, IntentGeneral,
}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// EntityKind tags an extracted entity.
type EntityKind string

const (
	EntityCourseCode EntityKind = "course_code"
	EntityDepartment EntityKind = "department"
	EntityKeyword    EntityKind = "keyword"
)

type Entity struct {
	Kind  EntityKind `json:"kind"`
	Value string     `json:"value"`
}

// Correction records a spelling fix or a synonym expansion.
type Correction struct {
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
}

// LiveField is the piece of live class data a fresh query asks for.
type LiveField string

const (
	LiveSeats      LiveField = "seats"
	LiveInstructor LiveField = "instructor"
	LiveSchedule   LiveField = "schedule"
	LiveLocation   LiveField = "location"
	LiveSections   LiveField = "sections"
)

func (f LiveField) Valid() bool {
	switch f {
	case LiveSeats, LiveInstructor, LiveSchedule, LiveLocation, LiveSections:
		return true
	}
	return false
}

// Scope says whether the caller wants a complete list or the best matches.
type Scope string

const (
	ScopeTopResults   Scope = "top_results"
	ScopeCompleteList Scope = "complete_list"
)

// Query is the preprocessed form of a raw user question. Everything except
// the intent is fixed by the preprocessor.
type Query struct {
	Raw         string       `json:"raw"`
	Normalized  string       `json:"normalized"`
	Tokens      []string     `json:"tokens"`
	Terms       []string     `json:"terms"`
	Entities    []Entity     `json:"entities,omitempty"`
	Corrections []Correction `json:"corrections,omitempty"`
	Freshness   bool         `json:"freshness"`
	LiveField   LiveField    `json:"live_field,omitempty"`
	Level       string       `json:"level,omitempty"`
	Credits     int          `json:"credits,omitempty"`
	Scope       Scope        `json:"scope"`

	// expansions maps a token (or two-token phrase) to its synonym expansion.
	expansions map[string]string
	intent     Intent
	confidence float64
}

// SetIntent assigns the intent once. A second call returns an error and
// leaves the first assignment in place.
func (q *Query) SetIntent(intent Intent, confidence float64) error {
	if q.intent != "" {
		return fmt.Errorf("intent already set to %s", q.intent)
	}
	if !intent.Valid() {
		return fmt.Errorf("unknown intent %q", intent)
	}
	q.intent = intent
	q.confidence = confidence
	return nil
}

// Intent returns the assigned intent, or "" before classification.
func (q *Query) Intent() Intent { return q.intent }

func (q *Query) Confidence() float64 { return q.confidence }

// Values returns the entity values of kind in extraction order.
func (q *Query) Values(kind EntityKind) []string {
	var out []string
	for _, e := range q.Entities {
		if e.Kind == kind {
			out = append(out, e.Value)
		}
	}
	return out
}

func (q *Query) CourseCodes() []string { return q.Values(EntityCourseCode) }

func (q *Query) Departments() []string { return q.Values(EntityDepartment) }

// Text is the expanded search surface: every term joined by spaces.
func (q *Query) Text() string { return strings.Join(q.Terms, " ") }

// Limit picks the result count for the query's scope.
func (q *Query) Limit(topResults, completeList int) int {
	if q.Scope == ScopeCompleteList {
		return completeList
	}
	return topResults
}

// Concepts groups the query's content tokens with their expansions. Each
// concept lists alternative phrasings; a document matches the concept when
// it contains any one of them. Tokens in ignore are skipped.
func (q *Query) Concepts(ignore map[string]struct{}) [][]string {
	var concepts [][]string
	skip := make(map[int]bool)
	for i := 0; i < len(q.Tokens); i++ {
		if skip[i] {
			continue
		}
		tok := q.Tokens[i]
		if i+1 < len(q.Tokens) {
			pair := tok + " " + q.Tokens[i+1]
			if exp, ok := q.expansions[pair]; ok {
				concepts = append(concepts, []string{pair, exp})
				skip[i+1] = true
				continue
			}
		}
		if _, ok := ignore[tok]; ok || isNumber(tok) || isStopWord(tok) || len(tok) < 2 {
			continue
		}
		if exp, ok := q.expansions[tok]; ok {
			concepts = append(concepts, []string{tok, exp})
			continue
		}
		concepts = append(concepts, []string{tok})
	}
	return concepts
}

// Expanded returns the tokens with every synonym replaced by its expansion,
// e.g. "dl courses" becomes "deep learning courses".
func (q *Query) Expanded() string {
	out := make([]string, 0, len(q.Tokens))
	for i := 0; i < len(q.Tokens); i++ {
		tok := q.Tokens[i]
		if i+1 < len(q.Tokens) {
			if exp, ok := q.expansions[tok+" "+q.Tokens[i+1]]; ok {
				out = append(out, exp)
				i++
				continue
			}
		}
		if exp, ok := q.expansions[tok]; ok {
			out = append(out, exp)
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
