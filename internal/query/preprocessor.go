package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	courseCodeRE = regexp.MustCompile(`\b([a-z]{2,4})\s*(\d{3,4})\b`)
	bandRE       = regexp.MustCompile(`\b([1-9])00[\s-]?level\b|\blevel\s*([1-9])00\b`)
	creditsRE    = regexp.MustCompile(`\b(\d{1,2})[\s-]*(?:credit|credits|credit hours?|hours?|cr)\b`)
)

// Vocabulary is the static word knowledge a Preprocessor is built from.
type Vocabulary struct {
	// Subjects are the known course subject codes, e.g. "EECS".
	Subjects []string
	// Words are extra spelling-correction targets, usually course title words.
	Words []string
	// Known are extra words that are never corrected, e.g. faculty names.
	Known []string
}

// Preprocessor turns raw text into a Query. It holds only immutable tables
// and is safe for concurrent use.
type Preprocessor struct {
	subjects map[string]struct{}
	subjList []string
	targets  []string
	known    map[string]struct{}
}

func NewPreprocessor(v Vocabulary) *Preprocessor {
	p := &Preprocessor{
		subjects: make(map[string]struct{}, len(v.Subjects)),
		known:    make(map[string]struct{}),
	}
	for _, s := range v.Subjects {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := p.subjects[s]; !dup {
			p.subjects[s] = struct{}{}
			p.subjList = append(p.subjList, s)
		}
	}
	sort.Strings(p.subjList)

	targets := make(map[string]struct{})
	for _, w := range courseVocabulary {
		targets[w] = struct{}{}
	}
	for _, w := range v.Words {
		w = strings.ToLower(w)
		if len(w) >= 4 && isAlpha(w) {
			targets[w] = struct{}{}
		}
	}
	for w := range targets {
		p.targets = append(p.targets, w)
		p.known[w] = struct{}{}
	}
	sort.Strings(p.targets)

	addKnown := func(phrase string) {
		for _, w := range strings.Fields(phrase) {
			p.known[w] = struct{}{}
		}
	}
	for w := range stopWords {
		addKnown(w)
	}
	for w := range protectedWords {
		addKnown(w)
	}
	for k, v := range Synonyms {
		addKnown(k)
		addKnown(v)
	}
	for alias := range DepartmentAliases {
		addKnown(alias)
	}
	for _, m := range freshnessMarkers {
		addKnown(m.phrase)
	}
	for _, m := range fieldHints {
		addKnown(m.phrase)
	}
	for _, w := range v.Known {
		addKnown(strings.ToLower(w))
	}
	for s := range p.subjects {
		addKnown(s)
	}
	return p
}

// Preprocess never fails: malformed input yields a Query with empty
// extraction fields.
func (p *Preprocessor) Preprocess(raw string) *Query {
	q := &Query{
		Raw:        raw,
		Scope:      ScopeTopResults,
		expansions: make(map[string]string),
	}
	q.Normalized = Normalize(raw)
	if q.Normalized == "" {
		return q
	}

	protected := p.extractCourseCodes(q)
	q.Tokens = strings.Fields(q.Normalized)
	p.correct(q, protected)
	padded := " " + strings.Join(q.Tokens, " ") + " "

	p.expandSynonyms(q)
	p.extractDepartments(q, padded, protected)
	extractFreshness(q, padded)
	extractLevel(q, padded)
	extractCredits(q, padded)
	for _, m := range completeListMarkers {
		if strings.Contains(padded, " "+m+" ") {
			q.Scope = ScopeCompleteList
			break
		}
	}
	extractKeywords(q, protected)
	return q
}

// Normalize lowercases raw, replaces characters other than letters, digits,
// whitespace and hyphens with spaces, and collapses whitespace.
func Normalize(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-':
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, raw)
	return strings.Join(strings.Fields(mapped), " ")
}

// extractCourseCodes records course code entities and returns the tokens that
// belong to them so later stages leave them alone.
func (p *Preprocessor) extractCourseCodes(q *Query) map[string]struct{} {
	protected := make(map[string]struct{})
	seen := make(map[string]struct{})
	for _, m := range courseCodeRE.FindAllStringSubmatch(q.Normalized, -1) {
		subject, ok := p.resolveSubject(m[1])
		if !ok {
			continue
		}
		if subject != m[1] {
			q.Corrections = append(q.Corrections, Correction{Kind: "subject", From: m[1], To: subject})
		}
		code := strings.ToUpper(subject) + " " + m[2]
		for _, tok := range strings.Fields(m[0]) {
			protected[tok] = struct{}{}
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		q.Entities = append(q.Entities, Entity{Kind: EntityCourseCode, Value: code})
	}
	return protected
}

// resolveSubject accepts a known subject code, or an unknown one of three or
// more letters within one edit of exactly one known code.
func (p *Preprocessor) resolveSubject(s string) (string, bool) {
	if _, ok := p.subjects[s]; ok {
		return s, true
	}
	if len(s) < 3 {
		return "", false
	}
	match := ""
	for _, known := range p.subjList {
		if _, ok := withinDistance(s, known, 1); ok {
			if match != "" {
				return "", false
			}
			match = known
		}
	}
	return match, match != ""
}

func (p *Preprocessor) correct(q *Query, protected map[string]struct{}) {
	for i, tok := range q.Tokens {
		if _, ok := protected[tok]; ok {
			continue
		}
		if _, ok := p.known[tok]; ok {
			continue
		}
		limit := maxCorrectionDistance(len(tok))
		if limit == 0 || !isAlpha(tok) {
			continue
		}
		best, bestDist := "", limit+1
		for _, cand := range p.targets {
			// targets are sorted, so the first word at a distance wins ties.
			if d, ok := withinDistance(tok, cand, bestDist-1); ok {
				best, bestDist = cand, d
			}
		}
		if best == "" {
			continue
		}
		q.Tokens[i] = best
		q.Corrections = append(q.Corrections, Correction{Kind: "typo", From: tok, To: best})
	}
	q.Normalized = strings.Join(q.Tokens, " ")
}

func (p *Preprocessor) expandSynonyms(q *Query) {
	terms := make([]string, 0, len(q.Tokens)*2)
	seen := make(map[string]struct{})
	add := func(words ...string) {
		for _, w := range words {
			if _, dup := seen[w]; !dup {
				seen[w] = struct{}{}
				terms = append(terms, w)
			}
		}
	}
	for i := 0; i < len(q.Tokens); i++ {
		tok := q.Tokens[i]
		add(tok)
		if i+1 < len(q.Tokens) {
			pair := tok + " " + q.Tokens[i+1]
			if exp, ok := Synonyms[pair]; ok {
				add(q.Tokens[i+1])
				add(strings.Fields(exp)...)
				q.expansions[pair] = exp
				q.Corrections = append(q.Corrections, Correction{Kind: "synonym", From: pair, To: exp})
				i++
				continue
			}
		}
		exp, ok := Synonyms[tok]
		if !ok {
			continue
		}
		if _, isSubject := p.subjects[tok]; isSubject {
			continue
		}
		add(strings.Fields(exp)...)
		q.expansions[tok] = exp
		q.Corrections = append(q.Corrections, Correction{Kind: "synonym", From: tok, To: exp})
	}
	q.Terms = terms
}

func (p *Preprocessor) extractDepartments(q *Query, padded string, protected map[string]struct{}) {
	surface := padded
	if len(q.Terms) > 0 {
		surface = padded + strings.Join(q.Terms, " ") + " "
	}
	found := make(map[string]struct{})
	aliases := make([]string, 0, len(DepartmentAliases))
	for alias := range DepartmentAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		if _, isCodePart := protected[alias]; isCodePart {
			continue
		}
		if strings.Contains(surface, " "+alias+" ") {
			found[DepartmentAliases[alias]] = struct{}{}
		}
	}
	for _, tok := range q.Tokens {
		if _, isCodePart := protected[tok]; isCodePart {
			continue
		}
		if _, ok := p.subjects[tok]; ok {
			found[strings.ToUpper(tok)] = struct{}{}
		}
	}
	depts := make([]string, 0, len(found))
	for d := range found {
		depts = append(depts, d)
	}
	sort.Strings(depts)
	for _, d := range depts {
		q.Entities = append(q.Entities, Entity{Kind: EntityDepartment, Value: d})
	}
}

func extractFreshness(q *Query, padded string) {
	best := LiveField("")
	for _, m := range freshnessMarkers {
		if !strings.Contains(padded, " "+m.phrase+" ") {
			continue
		}
		if m.phrase == "full" && strings.Contains(padded, " full list ") {
			continue
		}
		q.Freshness = true
		if best == "" || livePriority[m.field] > livePriority[best] {
			best = m.field
		}
	}
	if !q.Freshness {
		return
	}
	for _, m := range fieldHints {
		if strings.Contains(padded, " "+m.phrase+" ") && livePriority[m.field] > livePriority[best] {
			best = m.field
		}
	}
	q.LiveField = best
}

func extractLevel(q *Query, padded string) {
	if m := bandRE.FindStringSubmatch(padded); m != nil {
		digit := m[1]
		if digit == "" {
			digit = m[2]
		}
		q.Level = digit + "00"
		return
	}
	switch {
	case strings.Contains(padded, " undergraduate "), strings.Contains(padded, " undergrad "):
		q.Level = "undergraduate"
	case strings.Contains(padded, " graduate "), strings.Contains(padded, " grad "):
		q.Level = "graduate"
	}
}

func extractCredits(q *Query, padded string) {
	if m := creditsRE.FindStringSubmatch(padded); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 && n <= 20 {
			q.Credits = n
		}
	}
}

func extractKeywords(q *Query, protected map[string]struct{}) {
	seen := make(map[string]struct{})
	for _, tok := range q.Tokens {
		if _, ok := protected[tok]; ok {
			continue
		}
		if len(tok) < 3 || isStopWord(tok) || strings.IndexFunc(tok, unicode.IsLetter) < 0 {
			continue
		}
		if _, ok := protectedWords[tok]; ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		q.Entities = append(q.Entities, Entity{Kind: EntityKeyword, Value: tok})
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
