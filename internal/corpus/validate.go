package corpus

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	maxTitleLength = 512
	maxTextLength  = 1 << 20
)

var courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4} \d{3,4}$`)

// ValidationError holds per-document validation failures keyed by document
// id (or "#<index>" when the id is missing).
type ValidationError struct {
	Problems map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Problems[k]))
	}
	return fmt.Sprintf("%d invalid documents: %s", len(keys), strings.Join(parts, "; "))
}

// Validate checks identity, domain, size limits and the course code format,
// and rejects duplicate ids.
func Validate(docs []Document) error {
	problems := make(map[string]string)
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		d := &docs[i]
		key := d.ID
		if key == "" {
			key = fmt.Sprintf("#%d", i)
		}
		if msg := validateOne(d); msg != "" {
			problems[key] = msg
			continue
		}
		if _, dup := seen[d.ID]; dup {
			problems[key] = "duplicate id"
			continue
		}
		seen[d.ID] = struct{}{}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateOne(d *Document) string {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return "id is required"
	case !d.Domain.Valid():
		return fmt.Sprintf("unknown domain %q", d.Domain)
	case strings.TrimSpace(d.Title) == "":
		return "title is required"
	case len(d.Title) > maxTitleLength:
		return fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	case len(d.Text) > maxTextLength:
		return fmt.Sprintf("text must be at most %d characters", maxTextLength)
	}
	switch d.Domain {
	case DomainCourse:
		if !courseCodePattern.MatchString(d.Field(FieldCode)) {
			return fmt.Sprintf("course code %q must look like \"EECS 700\"", d.Field(FieldCode))
		}
	case DomainFaculty:
		if strings.TrimSpace(d.Field(FieldName)) == "" {
			return "faculty name is required"
		}
	}
	return ""
}
