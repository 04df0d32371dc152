package router

import (
	"maps"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/index"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/live"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/retriever"
)

const sourceLive = "live_lookup"

// merge attaches live data to the hit for the payload's course. The hit gets
// a private copy of its document so the index stays untouched. Without such
// a hit a synthesized live document is appended.
func merge(res *retriever.Result, p *live.Payload) {
	res.Live = p
	res.Stale = res.Stale || p.Stale
	res.Provenance = res.Provenance.WithLive()

	for i, h := range res.Hits {
		d := h.Document
		if d.Domain != corpus.DomainCourse || index.NormalizeCode(d.Field(corpus.FieldCode)) != p.Course {
			continue
		}
		doc := d.Clone()
		if doc.Fields == nil {
			doc.Fields = make(map[string]string)
		}
		maps.Copy(doc.Fields, p.Fields())
		doc.Text = strings.TrimSpace(doc.Text + "\n\n" + p.Summary())
		res.Hits[i].Document = &doc
		return
	}

	fields := p.Fields()
	fields[corpus.FieldCode] = p.Course
	res.Hits = append(res.Hits, retriever.Hit{
		Document: &corpus.Document{
			ID:     "live:" + p.Course,
			Domain: corpus.DomainCourse,
			Title:  p.Course + " live class data",
			Text:   p.Summary(),
			Fields: fields,
		},
		Source: sourceLive,
	})
}
