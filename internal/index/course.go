package index

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
)

const (
	LevelGraduate      = "graduate"
	LevelUndergraduate = "undergraduate"
)

// CourseIndex partitions course documents by code, subject and level.
type CourseIndex struct {
	byCode    map[string]*corpus.Document
	bySubject map[string]*Partition
	byLevel   map[string]*Partition
	all       *Partition
	subjects  []string
}

func newCourseIndex(docs []*corpus.Document) *CourseIndex {
	c := &CourseIndex{
		byCode:    make(map[string]*corpus.Document, len(docs)),
		bySubject: make(map[string]*Partition),
		byLevel:   make(map[string]*Partition),
	}
	subjects := make(map[string][]*corpus.Document)
	levels := make(map[string][]*corpus.Document)
	for _, d := range docs {
		code := NormalizeCode(d.Field(corpus.FieldCode))
		c.byCode[code] = d
		subject := CourseSubject(d)
		subjects[subject] = append(subjects[subject], d)
		if level := CourseLevel(d); level != "" {
			levels[level] = append(levels[level], d)
		}
		if band := CourseBand(d); band != "" {
			levels[band] = append(levels[band], d)
		}
	}
	for subject, list := range subjects {
		c.bySubject[subject] = newPartition(list)
		c.subjects = append(c.subjects, subject)
	}
	sort.Strings(c.subjects)
	for level, list := range levels {
		c.byLevel[level] = newPartition(list)
	}
	c.all = newPartition(append([]*corpus.Document(nil), docs...))
	return c
}

// ByCode returns the course with the given code, e.g. "EECS 700".
func (c *CourseIndex) ByCode(code string) (*corpus.Document, bool) {
	d, ok := c.byCode[NormalizeCode(code)]
	return d, ok
}

// Subject returns the partition for a subject code such as "EECS".
func (c *CourseIndex) Subject(subject string) *Partition {
	return c.bySubject[strings.ToUpper(subject)]
}

// Level returns the partition for "graduate", "undergraduate" or a hundreds
// band such as "700".
func (c *CourseIndex) Level(level string) *Partition {
	return c.byLevel[strings.ToLower(level)]
}

// Candidates returns the courses containing at least one of terms. Terms must
// already be tokenized.
func (c *CourseIndex) Candidates(terms []string) *Partition {
	return c.all.candidates(terms)
}

// Subjects lists the known subject codes in ascending order.
func (c *CourseIndex) Subjects() []string { return c.subjects }

// Docs returns every course.
func (c *CourseIndex) Docs() []*corpus.Document { return c.all.Docs() }

func (c *CourseIndex) Len() int { return c.all.Len() }

// NormalizeCode upper-cases a course code and puts a single space between
// subject and number.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	i := strings.IndexFunc(code, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return code
	}
	return strings.TrimSpace(code[:i]) + " " + code[i:]
}

// CourseSubject returns the subject field, or the code prefix when the field
// is missing.
func CourseSubject(d *corpus.Document) string {
	if s := d.Field(corpus.FieldSubject); s != "" {
		return strings.ToUpper(s)
	}
	code := NormalizeCode(d.Field(corpus.FieldCode))
	if i := strings.IndexByte(code, ' '); i > 0 {
		return code[:i]
	}
	return code
}

func courseNumber(d *corpus.Document) int {
	if n, err := strconv.Atoi(d.Field(corpus.FieldNumber)); err == nil {
		return n
	}
	code := NormalizeCode(d.Field(corpus.FieldCode))
	if i := strings.IndexByte(code, ' '); i > 0 {
		if n, err := strconv.Atoi(code[i+1:]); err == nil {
			return n
		}
	}
	return 0
}

// CourseLevel returns the level field, deriving graduate for numbers of 700
// and above when it is missing.
func CourseLevel(d *corpus.Document) string {
	if l := strings.ToLower(d.Field(corpus.FieldLevel)); l == LevelGraduate || l == LevelUndergraduate {
		return l
	}
	n := courseNumber(d)
	switch {
	case n == 0:
		return ""
	case n >= 700:
		return LevelGraduate
	default:
		return LevelUndergraduate
	}
}

// CourseBand returns the hundreds band of the course number, e.g. "700".
func CourseBand(d *corpus.Document) string {
	n := courseNumber(d)
	if n < 100 {
		return ""
	}
	if n >= 1000 {
		n /= 10
	}
	return strconv.Itoa(n / 100 * 100)
}

// TitleWords returns the distinct lowercase alphabetic words of four or more
// letters found in course titles, for spelling correction.
func (c *CourseIndex) TitleWords() []string {
	seen := make(map[string]struct{})
	for _, d := range c.all.docs {
		for _, w := range strings.Fields(strings.ToLower(d.Title)) {
			w = strings.Trim(w, ",.:;()'\"")
			if len(w) < 4 || strings.IndexFunc(w, func(r rune) bool { return r < 'a' || r > 'z' }) >= 0 {
				continue
			}
			seen[w] = struct{}{}
		}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
