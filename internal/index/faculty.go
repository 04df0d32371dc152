package index

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
)

// FacultyIndex partitions faculty profiles by name token and department, and
// keeps a keyword index over research interests.
type FacultyIndex struct {
	byNameToken  map[string][]*corpus.Document
	byDepartment map[string]*Partition
	research     *Partition
	all          []*corpus.Document
	nameTokens   []string
}

func newFacultyIndex(docs []*corpus.Document) *FacultyIndex {
	f := &FacultyIndex{
		byNameToken:  make(map[string][]*corpus.Document),
		byDepartment: make(map[string]*Partition),
		all:          docs,
	}
	departments := make(map[string][]*corpus.Document)
	for _, d := range docs {
		for _, tok := range NameTokens(d.Field(corpus.FieldName)) {
			f.byNameToken[tok] = append(f.byNameToken[tok], d)
		}
		if dept := strings.ToUpper(d.Field(corpus.FieldDepartment)); dept != "" {
			departments[dept] = append(departments[dept], d)
		}
	}
	for dept, list := range departments {
		f.byDepartment[dept] = newPartition(list)
	}
	for tok := range f.byNameToken {
		f.nameTokens = append(f.nameTokens, tok)
	}
	sort.Strings(f.nameTokens)
	f.research = newPartitionWith(append([]*corpus.Document(nil), docs...), researchText)
	return f
}

// ByNameToken returns the profiles whose name contains tok (lowercase).
func (f *FacultyIndex) ByNameToken(tok string) []*corpus.Document {
	return f.byNameToken[tok]
}

// NameTokens lists every lowercase name token, for spelling protection.
func (f *FacultyIndex) NameTokens() []string { return f.nameTokens }

// Department returns the partition for a department code such as "EECS".
func (f *FacultyIndex) Department(dept string) *Partition {
	return f.byDepartment[strings.ToUpper(dept)]
}

// ResearchCandidates returns the profiles whose research interests contain at
// least one of terms.
func (f *FacultyIndex) ResearchCandidates(terms []string) *Partition {
	return f.research.candidates(terms)
}

func (f *FacultyIndex) Len() int { return len(f.all) }

// ResearchText is the text research matching runs over: keywords, title and
// body.
func ResearchText(d *corpus.Document) string { return researchText(d) }

func researchText(d *corpus.Document) string {
	return strings.Join(d.Keywords, " ") + " " + d.Title + " " + d.Text
}

// NameTokens splits a person's name into lowercase tokens of two or more
// letters.
func NameTokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && r != '-' && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
