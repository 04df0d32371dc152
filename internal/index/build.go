// Package index holds the immutable, partitioned in-memory indexes the
// specialized retrievers read from. Indexes are built once at startup and
// shared without locking.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"golang.org/x/sync/errgroup"
)

// Set bundles the three domain indexes over one document snapshot.
type Set struct {
	Courses *CourseIndex
	Faculty *FacultyIndex
	Campus  *CampusIndex

	docs []corpus.Document
	byID map[string]*corpus.Document
}

// Build copies docs and builds the course, faculty and campus indexes
// concurrently.
func Build(ctx context.Context, docs []corpus.Document) (*Set, error) {
	start := time.Now()
	s := &Set{
		docs: make([]corpus.Document, len(docs)),
		byID: make(map[string]*corpus.Document, len(docs)),
	}
	var courses, faculty, campus []*corpus.Document
	for i := range docs {
		s.docs[i] = docs[i].Clone()
		d := &s.docs[i]
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate document id %q", d.ID)
		}
		s.byID[d.ID] = d
		switch {
		case d.Domain == corpus.DomainCourse:
			courses = append(courses, d)
		case d.Domain == corpus.DomainFaculty:
			faculty = append(faculty, d)
		case d.Domain.IsCampus():
			campus = append(campus, d)
		default:
			return nil, fmt.Errorf("document %q has unknown domain %q", d.ID, d.Domain)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Courses = newCourseIndex(courses)
		return ctx.Err()
	})
	g.Go(func() error {
		s.Faculty = newFacultyIndex(faculty)
		return ctx.Err()
	})
	g.Go(func() error {
		s.Campus = newCampusIndex(campus)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building indexes: %w", err)
	}

	slog.Default().With("component", "index").Info("indexes built",
		"courses", len(courses),
		"faculty", len(faculty),
		"campus", len(campus),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

// Lookup returns the document with the given id.
func (s *Set) Lookup(id string) (*corpus.Document, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Docs returns every document ordered by id, for building the global
// embedding index.
func (s *Set) Docs() []*corpus.Document {
	out := make([]*corpus.Document, 0, len(s.docs))
	for i := range s.docs {
		out = append(out, &s.docs[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Counts reports the number of documents per domain.
func (s *Set) Counts() map[corpus.Domain]int {
	counts := make(map[corpus.Domain]int, len(corpus.Domains))
	for i := range s.docs {
		counts[s.docs[i].Domain]++
	}
	return counts
}
