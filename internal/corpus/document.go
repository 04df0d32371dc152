// Package corpus defines the documents served by the retrieval engine and
// the loaders that supply them at startup.
package corpus

import (
	"context"
	"sort"
	"strings"
)

// Domain tags the index a document belongs to.
type Domain string

const (
	DomainCourse  Domain = "course"
	DomainFaculty Domain = "faculty"
	DomainDining  Domain = "dining"
	DomainTransit Domain = "transit"
	DomainHousing Domain = "housing"
	DomainTuition Domain = "tuition"
	DomainCampus  Domain = "campus"
)

// Domains lists every known domain in a stable order.
var Domains = []Domain{
	DomainCourse, DomainFaculty, DomainDining, DomainTransit,
	DomainHousing, DomainTuition, DomainCampus,
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// IsCampus reports whether d is served by the campus index.
func (d Domain) IsCampus() bool {
	return d != DomainCourse && d != DomainFaculty && d.Valid()
}

// Well-known structured field names.
const (
	FieldCode          = "code"
	FieldSubject       = "subject"
	FieldNumber        = "number"
	FieldLevel         = "level"
	FieldCredits       = "credits"
	FieldDepartment    = "department"
	FieldSchool        = "school"
	FieldPrerequisites = "prerequisites"
	FieldName          = "name"
	FieldTitle         = "title"
	FieldEmail         = "email"
	FieldBuilding      = "building"
	FieldType          = "type"
	FieldLocation      = "location"
)

// Document is a retrievable unit owned by its index. Documents handed out by
// an index must be treated as read-only; use Clone before changing one.
type Document struct {
	ID       string            `json:"id"`
	Domain   Domain            `json:"domain"`
	Title    string            `json:"title"`
	Text     string            `json:"text"`
	Fields   map[string]string `json:"fields,omitempty"`
	Keywords []string          `json:"keywords,omitempty"`
}

// Field returns a structured field or "".
func (d *Document) Field(name string) string {
	if d.Fields == nil {
		return ""
	}
	return d.Fields[name]
}

// Clone returns a deep copy.
func (d *Document) Clone() Document {
	out := *d
	if d.Fields != nil {
		out.Fields = make(map[string]string, len(d.Fields))
		for k, v := range d.Fields {
			out.Fields[k] = v
		}
	}
	out.Keywords = append([]string(nil), d.Keywords...)
	return out
}

// Content is the text used for keyword and embedding indexes: title, body,
// keywords and the values of structured fields in key order.
func (d *Document) Content() string {
	var b strings.Builder
	b.WriteString(d.Title)
	b.WriteByte('\n')
	b.WriteString(d.Text)
	if len(d.Keywords) > 0 {
		b.WriteByte('\n')
		b.WriteString(strings.Join(d.Keywords, ", "))
	}
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(d.Fields[k])
	}
	return b.String()
}

// Loader supplies the full document set at startup.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}
