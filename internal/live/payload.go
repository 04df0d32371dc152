package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/query"
)

// Seat status of a section.
const (
	StatusOpen     = "open"
	StatusFull     = "full"
	StatusUnopened = "unopened"
	StatusUnknown  = "unknown"
)

// Section is one scheduled offering of a course.
type Section struct {
	Type        string `json:"type"`
	Topic       string `json:"topic,omitempty"`
	Instructor  string `json:"instructor"`
	Credits     string `json:"credits,omitempty"`
	ClassNumber string `json:"class_number,omitempty"`
	Seats       int    `json:"seats"`
	Status      string `json:"status"`
	Enrolled    int    `json:"enrolled,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Days        string `json:"days,omitempty"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Payload is the live answer for one (course, semester, field) request.
type Payload struct {
	Course    string          `json:"course"`
	Semester  string          `json:"semester"`
	Field     query.LiveField `json:"field"`
	Sections  []Section       `json:"sections"`
	FetchedAt time.Time       `json:"fetched_at"`
	Stale     bool            `json:"stale"`
}

// OpenSeats sums the open seats over every section.
func (p *Payload) OpenSeats() int {
	total := 0
	for _, s := range p.Sections {
		if s.Seats > 0 {
			total += s.Seats
		}
	}
	return total
}

// Instructors lists distinct instructors in section order.
func (p *Payload) Instructors() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range p.Sections {
		if s.Instructor == "" {
			continue
		}
		if _, ok := seen[s.Instructor]; ok {
			continue
		}
		seen[s.Instructor] = struct{}{}
		out = append(out, s.Instructor)
	}
	return out
}

// Fields renders the payload as structured document fields for merging
// into a retrieved course record.
func (p *Payload) Fields() map[string]string {
	out := map[string]string{
		"live_semester":   p.Semester,
		"live_fetched_at": p.FetchedAt.UTC().Format(time.RFC3339),
		"live_sections":   fmt.Sprint(len(p.Sections)),
		"live_open_seats": fmt.Sprint(p.OpenSeats()),
	}
	if names := p.Instructors(); len(names) > 0 {
		out["live_instructors"] = strings.Join(names, "; ")
	}
	if p.Stale {
		out["live_stale"] = "true"
	}
	return out
}

// Summary is a plain-text rendering of the sections, focused on field.
func (p *Payload) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Live %s data for %s (%s), as of %s", p.Field, p.Course, p.Semester,
		p.FetchedAt.UTC().Format("2006-01-02 15:04 MST"))
	if p.Stale {
		b.WriteString(" (may be out of date)")
	}
	b.WriteString(":")
	if len(p.Sections) == 0 {
		b.WriteString(" no sections offered.")
		return b.String()
	}
	for _, s := range p.Sections {
		b.WriteString("\n- ")
		b.WriteString(s.Type)
		if s.ClassNumber != "" {
			fmt.Fprintf(&b, " #%s", s.ClassNumber)
		}
		switch p.Field {
		case query.LiveInstructor:
			fmt.Fprintf(&b, ": %s", orTBA(s.Instructor))
		case query.LiveSchedule:
			fmt.Fprintf(&b, ": %s %s", orTBA(s.Days), orTBA(s.Time))
		case query.LiveLocation:
			fmt.Fprintf(&b, ": %s", orTBA(s.Location))
		default:
			fmt.Fprintf(&b, ": %s", seatText(s))
			fmt.Fprintf(&b, ", %s, %s %s, %s", orTBA(s.Instructor), orTBA(s.Days), orTBA(s.Time), orTBA(s.Location))
		}
	}
	return b.String()
}

func seatText(s Section) string {
	switch s.Status {
	case StatusUnopened:
		return "not yet open"
	case StatusFull:
		return "full"
	case StatusOpen:
		if s.Capacity > 0 {
			return fmt.Sprintf("%d seats open (%d/%d enrolled)", s.Seats, s.Enrolled, s.Capacity)
		}
		return fmt.Sprintf("%d seats open", s.Seats)
	}
	return "seats unknown"
}

func orTBA(s string) string {
	if s == "" {
		return "TBA"
	}
	return s
}
